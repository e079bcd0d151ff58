// Package debug provides the process-wide logger using log/slog.
// Storage failures are always logged; Init(true) additionally enables
// per-statement debug output.
package debug

import (
	"log/slog"
	"os"
	"sync"
)

var (
	mu      sync.RWMutex
	logger  = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	verbose bool
)

// Init reconfigures the logger. With verbose enabled every statement and
// cache decision is logged at debug level; otherwise only warnings and
// errors are emitted.
func Init(enable bool) {
	mu.Lock()
	defer mu.Unlock()

	verbose = enable
	level := slog.LevelWarn
	if enable {
		level = slog.LevelDebug
	}
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// Enabled reports whether verbose logging is on.
func Enabled() bool {
	mu.RLock()
	defer mu.RUnlock()
	return verbose
}

// Debug logs a debug message.
func Debug(msg string, args ...any) {
	current().Debug(msg, args...)
}

// Info logs an info message.
func Info(msg string, args ...any) {
	current().Info(msg, args...)
}

// Warn logs a warning.
func Warn(msg string, args ...any) {
	current().Warn(msg, args...)
}

// Error logs an error.
func Error(msg string, args ...any) {
	current().Error(msg, args...)
}

// With returns a logger carrying the given attributes.
func With(args ...any) *slog.Logger {
	return current().With(args...)
}

// Logger returns the underlying slog.Logger.
func Logger() *slog.Logger {
	return current()
}

func current() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}
