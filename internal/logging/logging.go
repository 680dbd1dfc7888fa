// Package logging configures the global zerolog logger and hands out
// component-scoped loggers.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Config controls logger initialization.
type Config struct {
	// Level is the minimum level: trace, debug, info, warn, error.
	Level string
	// Format is "console" for human output or "json" for machine output.
	Format string
	// Output overrides the destination. Defaults to stderr.
	Output io.Writer
	// EnableCaller annotates events with file:line.
	EnableCaller bool
}

// Init configures the global logger. Safe to call more than once; the last
// call wins.
func Init(cfg Config) {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	if cfg.Format != "json" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen}
	}

	ctx := zerolog.New(out).With().Timestamp()
	if cfg.EnableCaller {
		ctx = ctx.Caller()
	}
	log.Logger = ctx.Logger()
}

// Component returns a logger tagged with a component name.
func Component(name string) zerolog.Logger {
	return log.Logger.With().Str("component", name).Logger()
}
