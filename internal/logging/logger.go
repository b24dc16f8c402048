// Package logging builds the server's structured logger, grounded on
// ws/internal/single/monitoring/logger.go: zerolog with a timestamp,
// caller info, and a fixed service field, JSON by default and a console
// writer for local/pretty output.
package logging

import (
	"os"
	"runtime/debug"
	"time"

	"github.com/rs/zerolog"
)

// New builds a logger at the given level ("debug"|"info"|"warn"|"error")
// and format ("json"|"pretty").
func New(level, format string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	var output = os.Stdout
	logger := zerolog.New(output)
	if format == "pretty" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	}

	return logger.With().
		Timestamp().
		Caller().
		Str("service", "redikv").
		Logger()
}

// LogPanic records a recovered panic with a full stack trace; every
// per-connection goroutine defers this so one bad command can never take
// the listener down with it.
func LogPanic(logger zerolog.Logger, panicValue any, msg string, fields map[string]any) {
	event := logger.Error().
		Interface("panic_value", panicValue).
		Str("stack_trace", string(debug.Stack()))
	for k, v := range fields {
		event = event.Interface(k, v)
	}
	event.Msg(msg)
}
