// Package logging builds the process logger.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
)

// New returns a logger tagged with service. Unparseable levels fall back to
// info. It also becomes the global zerolog logger.
func New(service, level string, json bool) zerolog.Logger {
	return newWithWriter(os.Stderr, service, level, json)
}

func newWithWriter(w io.Writer, service, level string, json bool) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.TimeFieldFormat = time.RFC3339Nano
	if !json {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"}
	}
	l := zerolog.New(w).Level(lvl).With().Timestamp().Str("service", service).Logger()
	zlog.Logger = l
	return l
}
