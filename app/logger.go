package app

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/pkgerrors"
)

type Level string

const (
	TRACE Level = "TRACE"
	DEBUG Level = "DEBUG"
	INFO  Level = "INFO"
	WARN  Level = "WARN"
	ERROR Level = "ERROR"
	PANIC Level = "PANIC"
)

func NewZeroLogger(logLevel Level) zerolog.Logger {
	return newZeroLogger(os.Stdout, logLevel)
}

func newZeroLogger(out io.Writer, logLevel Level) zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs
	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack

	return zerolog.New(out).
		Level(logLevel.zero()).
		With().
		Timestamp().
		Caller().
		Str("service", "sitetrack").
		Logger()
}

// zero maps the level onto zerolog, case-insensitively. Unknown levels fall
// back to INFO.
func (l Level) zero() zerolog.Level {
	switch Level(strings.ToUpper(strings.TrimSpace(string(l)))) {
	case PANIC:
		return zerolog.PanicLevel
	case ERROR:
		return zerolog.ErrorLevel
	case WARN:
		return zerolog.WarnLevel
	case INFO:
		return zerolog.InfoLevel
	case DEBUG:
		return zerolog.DebugLevel
	case TRACE:
		return zerolog.TraceLevel
	default:
		return zerolog.InfoLevel
	}
}
