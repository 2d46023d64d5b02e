package logging

import (
	"io"
	"os"

	"github.com/rs/zerolog"

	"github.com/edvin/deploy-installer/internal/config"
)

const serviceName = "deploy-installer"

// NewLogger creates a structured zerolog.Logger writing to stdout.
func NewLogger(cfg *config.Config) zerolog.Logger {
	return newLogger(cfg, os.Stdout)
}

func newLogger(cfg *config.Config, w io.Writer) zerolog.Logger {
	if cfg.LogFormat == "console" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"}
	}

	ctx := zerolog.New(w).With().Timestamp().Str("service", serviceName)
	if cfg.InstallDir != "" {
		ctx = ctx.Str("install_dir", cfg.InstallDir)
	}

	logger := ctx.Logger()

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || cfg.LogLevel == "" {
		level = zerolog.InfoLevel
	}

	return logger.Level(level)
}
