package main

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/srg/blesession/internal/config"
)

// configureLogger creates a logger with the appropriate log level based on
// flags and the loaded config. Precedence: --log-level, then --verbose, then
// the config file's log_level when a config file was given explicitly.
// Without any of those the logger stays essentially silent so command output
// is not interleaved with log lines.
func configureLogger(cmd *cobra.Command, verboseFlagName string, cfg *config.Config) (*logrus.Logger, error) {
	logLevel := logrus.PanicLevel

	// Check --log-level first (takes precedence)
	logLevelStr, _ := cmd.Flags().GetString("log-level")
	switch {
	case logLevelStr != "":
		switch logLevelStr {
		case "debug":
			logLevel = logrus.DebugLevel
		case "info":
			logLevel = logrus.InfoLevel
		case "warn":
			logLevel = logrus.WarnLevel
		case "error":
			logLevel = logrus.ErrorLevel
		default:
			return nil, fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", logLevelStr)
		}
	case verboseFlag(cmd, verboseFlagName):
		logLevel = logrus.DebugLevel
	case cfg != nil && cmd.Flags().Changed("config"):
		parsed, err := logrus.ParseLevel(cfg.LogLevel)
		if err == nil {
			logLevel = parsed
		}
	}

	// Create logger with configured level
	logger := logrus.New()
	logger.SetLevel(logLevel)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	})

	return logger, nil
}

func verboseFlag(cmd *cobra.Command, name string) bool {
	if name == "" {
		return false
	}
	verbose, _ := cmd.Flags().GetBool(name)
	return verbose
}
