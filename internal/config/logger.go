package config

import (
	"os"

	"github.com/sirupsen/logrus"
)

// NewLogger builds the service logger from the configured level and format.
// An unknown level falls back to info.
func NewLogger(cfg Config) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)

	if cfg.LogFormat == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, DisableColors: true})
	}

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logger.WithField("component", "config").WithField("log_level", cfg.LogLevel).Warn("unknown log level; using info")
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	return logger
}
