// Package logging builds the console loggers used by the commands.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New returns a logger that writes human-readable lines to stdout.
func New(app string, level zerolog.Level) zerolog.Logger {
	return NewWriter(os.Stdout, app, level)
}

// NewWriter is like New but writes to w.
func NewWriter(w io.Writer, app string, level zerolog.Level) zerolog.Logger {
	output := zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: time.RFC3339,
	}
	return zerolog.New(output).Level(level).With().Timestamp().Str("app", app).Logger()
}

// ParseLevel parses a level name, treating the empty string as info.
func ParseLevel(name string) (zerolog.Level, error) {
	if name == "" {
		return zerolog.InfoLevel, nil
	}
	return zerolog.ParseLevel(name)
}
