// Package observability configures structured logging for the CLI and the
// HTTP host.
package observability

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/pdiddy/pdf2md/pkg/types"
)

// ServiceName is attached to every log line.
const ServiceName = "pdf2md"

// NewLogger builds a zerolog.Logger from cfg. Output defaults to stderr so
// that converted markdown written to stdout stays clean.
func NewLogger(cfg types.LogConfig, out io.Writer) zerolog.Logger {
	if out == nil {
		out = os.Stderr
	}

	if strings.EqualFold(cfg.Format, "console") {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	return zerolog.New(out).
		Level(ParseLevel(cfg.Level)).
		With().
		Timestamp().
		Str("service", ServiceName).
		Logger()
}

// WithRequest returns a child logger tagged with a conversion request ID.
func WithRequest(log zerolog.Logger, requestID string) zerolog.Logger {
	if requestID == "" {
		return log
	}
	return log.With().Str("request_id", requestID).Logger()
}

// ParseLevel converts a level name to a zerolog.Level, defaulting to info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "info", "":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "disabled", "off":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}
