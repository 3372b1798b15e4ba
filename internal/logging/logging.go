// Package logging builds the zerolog logger shared by the loader, registry
// and commands.
package logging

import (
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/reoring/skema/config"
)

// New returns a logger writing to w at the configured level. An unknown level
// falls back to info.
func New(cfg config.LoggingConfig, w io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}

	if cfg.Format == "console" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339, NoColor: true}
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}
