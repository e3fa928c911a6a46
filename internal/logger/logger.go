// Package logger provides structured logging for servefs, backed by zerolog.
// It exposes a small field-map API so callers do not depend on the zerolog
// types directly, plus a dedicated access-log entry point.
package logger

import (
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"
)

// LogFields carries structured context for a log entry. A nil map is valid.
type LogFields map[string]any

// Logger wraps a zerolog.Logger for error/diagnostic output and, optionally,
// a second logger for access entries.
type Logger struct {
	zl       zerolog.Logger
	access   zerolog.Logger
	accessOn bool
}

// NewLogger creates a Logger writing to out.
// level is one of debug, info, warn, error. format is "json" or "console".
func NewLogger(level, format string, out io.Writer) (*Logger, error) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	var w io.Writer = out
	if format == "console" {
		w = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	zl := zerolog.New(w).Level(lvl).With().Timestamp().Logger()
	return &Logger{zl: zl, access: zl, accessOn: true}, nil
}

// NewDiscardLogger returns a Logger that drops everything. Used as the
// fallback when a component is constructed without a logger.
func NewDiscardLogger() *Logger {
	return &Logger{zl: zerolog.Nop(), access: zerolog.Nop()}
}

// NewTestLogger returns a debug-level JSON logger writing to w, for tests.
func NewTestLogger(w io.Writer) *Logger {
	zl := zerolog.New(w).Level(zerolog.DebugLevel).With().Timestamp().Logger()
	return &Logger{zl: zl, access: zl, accessOn: true}
}

// SetAccessLog enables or disables access-log entries.
func (l *Logger) SetAccessLog(on bool) {
	l.accessOn = on
}

func (l *Logger) emit(ev *zerolog.Event, msg string, fields LogFields) {
	for k, v := range fields {
		ev = ev.Interface(k, v)
	}
	ev.Msg(msg)
}

// Debug logs a debug-level message with optional fields.
func (l *Logger) Debug(msg string, fields LogFields) {
	l.emit(l.zl.Debug(), msg, fields)
}

// Info logs an info-level message with optional fields.
func (l *Logger) Info(msg string, fields LogFields) {
	l.emit(l.zl.Info(), msg, fields)
}

// Warn logs a warning-level message with optional fields.
func (l *Logger) Warn(msg string, fields LogFields) {
	l.emit(l.zl.Warn(), msg, fields)
}

// Error logs an error-level message with optional fields.
func (l *Logger) Error(msg string, fields LogFields) {
	l.emit(l.zl.Error(), msg, fields)
}

// Access writes one access-log entry for a completed request.
func (l *Logger) Access(method, uri string, status int, bytes int64, duration time.Duration) {
	if !l.accessOn {
		return
	}
	l.access.Info().
		Str("method", method).
		Str("uri", uri).
		Int("status", status).
		Int64("resp_bytes", bytes).
		Str("resp_size", humanize.IBytes(uint64(max(bytes, 0)))).
		Dur("duration", duration).
		Msg("access")
}
