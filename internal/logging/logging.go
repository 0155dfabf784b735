// Package logging configures the process-wide structured logger. Grounded
// on pkg/logging/structured_logger.go's LoggerConfig fields, collapsed onto
// zerolog's native configuration surface.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// Config selects level, format, and output for the process logger.
type Config struct {
	Level          string // debug, info, warn, error
	Format         string // json or console
	Output         io.Writer
	ServiceName    string
	ServiceVersion string
}

// New builds a zerolog.Logger from cfg. An unset Output defaults to
// os.Stdout; an unset Format defaults to "json"; an unset Level defaults
// to "info".
func New(cfg Config) zerolog.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}

	var writer io.Writer = out
	if strings.EqualFold(cfg.Format, "console") {
		writer = zerolog.ConsoleWriter{Out: out}
	}

	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}

	logger := zerolog.New(writer).Level(level).With().Timestamp().Logger()
	if cfg.ServiceName != "" {
		logger = logger.With().Str("service", cfg.ServiceName).Logger()
	}
	if cfg.ServiceVersion != "" {
		logger = logger.With().Str("version", cfg.ServiceVersion).Logger()
	}
	return logger
}
