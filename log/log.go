// Package log provides structured logging for the block engine. It wraps
// log/slog with per-module child loggers and a terminal handler borrowed
// from go-ethereum for the command line tools.
package log

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync/atomic"

	gethlog "github.com/ethereum/go-ethereum/log"
)

// LevelTrace is below debug; used for per-item trie and decode tracing.
const LevelTrace = gethlog.LevelTrace

// Logger wraps slog.Logger with module context.
type Logger struct {
	inner *slog.Logger
}

var defaultLogger atomic.Pointer[Logger]

func init() {
	defaultLogger.Store(New(slog.LevelInfo))
}

// New creates a Logger that writes JSON to stderr at the given level.
func New(level slog.Level) *Logger {
	h := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{inner: slog.New(h)}
}

// NewTerminal creates a Logger writing go-ethereum's human readable
// terminal format to w.
func NewTerminal(w io.Writer, level slog.Level, color bool) *Logger {
	return &Logger{inner: slog.New(gethlog.NewTerminalHandlerWithLevel(w, level, color))}
}

// NewWithHandler creates a Logger backed by the supplied slog.Handler.
func NewWithHandler(h slog.Handler) *Logger {
	return &Logger{inner: slog.New(h)}
}

// VerbosityToLevel maps the 0 (silent) to 5 (trace) verbosity scale of the
// command line onto slog levels.
func VerbosityToLevel(v int) slog.Level {
	switch {
	case v <= 0:
		return slog.LevelError + 4
	case v == 1:
		return slog.LevelError
	case v == 2:
		return slog.LevelWarn
	case v == 3:
		return slog.LevelInfo
	case v == 4:
		return slog.LevelDebug
	default:
		return LevelTrace
	}
}

// SetDefault replaces the package-level default logger.
func SetDefault(l *Logger) {
	if l != nil {
		defaultLogger.Store(l)
	}
}

// Default returns the current package-level default logger.
func Default() *Logger {
	return defaultLogger.Load()
}

// Module returns the default logger with a "module" attribute. Resolved
// on every call so SetDefault takes effect for existing callers.
func Module(name string) *Logger {
	return Default().Module(name)
}

// Module returns a child logger with an additional "module" attribute.
func (l *Logger) Module(name string) *Logger {
	return &Logger{inner: l.inner.With("module", name)}
}

// With returns a child logger with additional key-value context.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{inner: l.inner.With(args...)}
}

// Trace logs at LevelTrace.
func (l *Logger) Trace(msg string, args ...any) { l.inner.Log(context.Background(), LevelTrace, msg, args...) }

// Debug logs at LevelDebug.
func (l *Logger) Debug(msg string, args ...any) { l.inner.Debug(msg, args...) }

// Info logs at LevelInfo.
func (l *Logger) Info(msg string, args ...any) { l.inner.Info(msg, args...) }

// Warn logs at LevelWarn.
func (l *Logger) Warn(msg string, args ...any) { l.inner.Warn(msg, args...) }

// Error logs at LevelError.
func (l *Logger) Error(msg string, args ...any) { l.inner.Error(msg, args...) }

// Debug logs at LevelDebug using the default logger.
func Debug(msg string, args ...any) { Default().Debug(msg, args...) }

// Info logs at LevelInfo using the default logger.
func Info(msg string, args ...any) { Default().Info(msg, args...) }

// Warn logs at LevelWarn using the default logger.
func Warn(msg string, args ...any) { Default().Warn(msg, args...) }

// Error logs at LevelError using the default logger.
func Error(msg string, args ...any) { Default().Error(msg, args...) }
