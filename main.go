package main

import (
	"github.com/tokamak-network/trh-platform-desktop/cmd"
)

var (
	version string
	commit  string
	date    string
)

func main() {
	cmd.Execute(version, commit, date)
}
