// Package cmd is the entrypoint for the trh-desktop CLI.
package cmd

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tokamak-network/trh-platform-desktop/internal/logging"
)

var (
	cfgFile  string
	logLevel string

	buildVersion string
	buildCommit  string
	buildDate    string
)

var rootCmd = &cobra.Command{
	Use:   "trh-desktop",
	Short: "TRH Platform Desktop - local rollup hub stack manager",
	Long: `trh-desktop brings up the TRH Platform stack (database, backend API,
web UI) on this machine, verifies it reaches a healthy state, and recovers
from the common local-environment failures on the way there.`,
}

// Execute runs the CLI with build metadata injected at link time.
func Execute(version, commit, date string) {
	buildVersion, buildCommit, buildDate = version, commit, date
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./trh-desktop.toml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("trh-desktop")
		viper.SetConfigType("toml")
		viper.AddConfigPath(".")
		if userConfigDir, err := os.UserConfigDir(); err == nil {
			viper.AddConfigPath(userConfigDir + "/trh-desktop")
		}
		if homeDir, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(homeDir + "/.trh-platform")
		}
	}

	viper.SetEnvPrefix("TRH")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	} else if cfgFile != "" {
		log.Fatal("Error reading config file", "error", err)
	}
	// No config file anywhere is fine; defaults cover everything.

	if logLevel != "" {
		viper.Set("logging.level", logLevel)
	}
	logging.Setup(viper.GetString("logging.level"))
}
