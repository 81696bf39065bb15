package telemetry

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// LoggerConfig holds configuration for the service logger.
type LoggerConfig struct {
	ServiceName    string
	ServiceVersion string

	// Level is a zerolog level name (default: info).
	Level string

	// Format is "json" or "console" (default: json).
	Format string

	// Output defaults to stdout.
	Output io.Writer
}

// NewLogger creates the structured service logger.
// An unknown level falls back to info.
func NewLogger(cfg LoggerConfig) zerolog.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}
	if strings.EqualFold(cfg.Format, "console") {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	ctx := zerolog.New(out).Level(level).With().Timestamp()
	if cfg.ServiceName != "" {
		ctx = ctx.Str("service", cfg.ServiceName)
	}
	if cfg.ServiceVersion != "" {
		ctx = ctx.Str("version", cfg.ServiceVersion)
	}
	return ctx.Logger()
}
