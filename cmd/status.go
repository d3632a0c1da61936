package cmd

import (
	"github.com/charmbracelet/log"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/tokamak-network/trh-platform-desktop/internal/config"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current state of the TRH Platform stack",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		log.Error("Configuration rejected", "error", err)
		return err
	}
	gw, err := newGateway(cfg)
	if err != nil {
		return err
	}

	status := gw.Status(cmd.Context())

	printBool("Docker installed", status.DaemonInstalled)
	printBool("Daemon running  ", status.DaemonRunning)
	printBool("Containers up   ", status.ContainersUp)
	printBool("All healthy     ", status.AllHealthy)
	if status.LastError != "" {
		color.Yellow("Detail: %s", status.LastError)
	}
	return nil
}

func printBool(label string, ok bool) {
	if ok {
		color.Green("%s  yes", label)
	} else {
		color.Red("%s  no", label)
	}
}
