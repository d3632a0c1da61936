package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Display the version of trh-desktop",
	Run: func(cmd *cobra.Command, args []string) {
		v := buildVersion
		if v == "" {
			v = "dev"
		}
		color.Green("trh-desktop %s", v)
		if buildCommit != "" {
			fmt.Printf("commit %s, built %s\n", buildCommit, buildDate)
		}
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
