// Package logger provides the gateway's structured logging, split into an
// error stream (server events, failures) and an access stream (one line per
// request). Both are zerolog-backed JSON writers that can target stdout,
// stderr or an append-only file.
package logger

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"example.com/mediagate/internal/config"
)

// LogFields carries additional structured context for an event log line.
type LogFields map[string]interface{}

// AccessEntry is the fixed shape of one access log line.
type AccessEntry struct {
	RequestID  string
	RemoteAddr string
	Method     string
	Path       string
	Query      string
	Status     int
	Bytes      int64
	Duration   time.Duration
	UserAgent  string
}

// Logger owns the error and access streams. It is safe for concurrent use;
// zerolog serializes writes internally.
type Logger struct {
	errLog zerolog.Logger
	accLog zerolog.Logger
	files  []*os.File
}

// New creates a Logger from the logging configuration. File targets are
// opened append-only; Close releases them.
func New(cfg *config.LoggingConfig) (*Logger, error) {
	if cfg == nil {
		return nil, fmt.Errorf("logging configuration cannot be nil")
	}

	l := &Logger{}

	errOut, err := l.openTarget(cfg.ErrorTarget)
	if err != nil {
		return nil, fmt.Errorf("error log target: %w", err)
	}
	accOut, err := l.openTarget(cfg.AccessTarget)
	if err != nil {
		l.Close()
		return nil, fmt.Errorf("access log target: %w", err)
	}

	l.errLog = zerolog.New(errOut).Level(levelFor(cfg.Level)).With().Timestamp().Logger()
	// The access stream is unconditional: level filtering applies to event
	// logs only.
	l.accLog = zerolog.New(accOut).With().Timestamp().Logger()
	return l, nil
}

// NewDiscard returns a Logger that drops everything. Intended for tests.
func NewDiscard() *Logger {
	return &Logger{
		errLog: zerolog.New(io.Discard),
		accLog: zerolog.New(io.Discard),
	}
}

func (l *Logger) openTarget(target string) (io.Writer, error) {
	switch target {
	case "", "stdout":
		return os.Stdout, nil
	case "stderr":
		return os.Stderr, nil
	default:
		f, err := os.OpenFile(target, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", target, err)
		}
		l.files = append(l.files, f)
		return f, nil
	}
}

func levelFor(lv config.LogLevel) zerolog.Level {
	switch lv {
	case config.LogLevelDebug:
		return zerolog.DebugLevel
	case config.LogLevelWarning:
		return zerolog.WarnLevel
	case config.LogLevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func (l *Logger) emit(ev *zerolog.Event, msg string, fields LogFields) {
	for k, v := range fields {
		ev = ev.Interface(k, v)
	}
	ev.Msg(msg)
}

// Debug logs a debug-level event.
func (l *Logger) Debug(msg string, fields LogFields) { l.emit(l.errLog.Debug(), msg, fields) }

// Info logs an info-level event.
func (l *Logger) Info(msg string, fields LogFields) { l.emit(l.errLog.Info(), msg, fields) }

// Warn logs a warning-level event.
func (l *Logger) Warn(msg string, fields LogFields) { l.emit(l.errLog.Warn(), msg, fields) }

// Error logs an error-level event.
func (l *Logger) Error(msg string, fields LogFields) { l.emit(l.errLog.Error(), msg, fields) }

// Access writes one line to the access stream.
func (l *Logger) Access(e AccessEntry) {
	l.accLog.Log().
		Str("request_id", e.RequestID).
		Str("remote", e.RemoteAddr).
		Str("method", e.Method).
		Str("path", e.Path).
		Str("query", e.Query).
		Int("status", e.Status).
		Int64("bytes", e.Bytes).
		Dur("duration_ms", e.Duration).
		Str("user_agent", e.UserAgent).
		Msg("request")
}

// Close closes any log files opened by New.
func (l *Logger) Close() error {
	var firstErr error
	for _, f := range l.files {
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	l.files = nil
	return firstErr
}
