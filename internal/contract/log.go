package contract

import (
	"io"
	"time"

	"github.com/oilshock/brentcp/schema"
	"github.com/rs/zerolog"
)

// LogTimeFormat is the timestamp layout of the console encoder.
const LogTimeFormat = time.TimeOnly

// NewLogger builds the process logger. The console encoder is used unless
// format is JSONLog; colors follow the --color flag.
func NewLogger(level zerolog.Level, format schema.LogFormat, w io.Writer, useColors bool) zerolog.Logger {
	output := w
	if format != schema.JSONLog {
		output = zerolog.ConsoleWriter{
			Out:        w,
			TimeFormat: LogTimeFormat,
			NoColor:    !useColors,
		}
	}
	return zerolog.New(output).
		Level(level).
		With().
		Timestamp().
		Logger()
}

// ParseLogLevel parses a level name. An empty string selects warn so that
// normal command output is not interleaved with progress messages.
func ParseLogLevel(s string) (zerolog.Level, error) {
	if s == "" {
		return zerolog.WarnLevel, nil
	}
	return zerolog.ParseLevel(s)
}
