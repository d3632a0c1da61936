// Package logging configures the process-wide structured logger.
package logging

import (
	"os"
	"time"

	"github.com/charmbracelet/log"
)

// Setup applies the configured level to the default logger. Output goes to
// stderr so it never interleaves with TUI rendering on stdout.
func Setup(level string) {
	parsed, err := log.ParseLevel(level)
	if err != nil {
		parsed = log.InfoLevel
		log.Warn("Invalid log level, using info", "invalid_level", level)
	}

	log.SetDefault(log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.Kitchen,
		Level:           parsed,
	}))
}
