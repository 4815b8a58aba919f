// Package debug implements the protocol trace that is enabled by
// setting $WAYLAND_DEBUG to a positive integer.
package debug

import (
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog"
)

var (
	enabled bool
	logger  = zerolog.New(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.StampMicro,
	}).With().Timestamp().Logger()
)

func init() {
	debugLevel, err := strconv.ParseInt(os.Getenv("WAYLAND_DEBUG"), 10, 0)
	if err != nil {
		return
	}
	enabled = debugLevel > 0
}

// Enabled reports whether tracing is turned on.
func Enabled() bool {
	return enabled
}

// SetLogger replaces the logger that trace lines are written to.
func SetLogger(l zerolog.Logger) {
	logger = l
}

func Printf(str string, args ...any) {
	if !enabled {
		return
	}
	logger.Debug().Str("component", "wayland").Msgf(str, args...)
}
