// Package logger configures the process wide zerolog logger.
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup builds a logger writing to w, installs it as the global zerolog logger and returns it.
// format "console" gives human readable output, anything else JSON.
func Setup(w io.Writer, level, format string) zerolog.Logger {
	if w == nil {
		w = os.Stdout
	}

	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	zerolog.TimeFieldFormat = time.RFC3339

	if format == "console" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}

	l := zerolog.New(w).With().Timestamp().Str("service", "storefront").Logger()
	log.Logger = l
	return l
}

// Discard silences the global logger. Tests use it to keep output clean.
func Discard() {
	log.Logger = zerolog.New(io.Discard)
}
