package cmd

import (
	"github.com/charmbracelet/log"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/tokamak-network/trh-platform-desktop/internal/config"
)

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the TRH Platform stack",
	Long:  `Stops all stack containers. Safe to run when nothing is running.`,
	RunE:  runStop,
}

func init() {
	rootCmd.AddCommand(stopCmd)
}

func runStop(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		log.Error("Configuration rejected", "error", err)
		return err
	}
	gw, err := newGateway(cfg)
	if err != nil {
		return err
	}

	if err := gw.Down(cmd.Context()); err != nil {
		return err
	}
	color.Green("Stack stopped.")
	return nil
}
