package logger

import (
	"log/slog"
	"os"
	"sync"
)

var (
	mu           sync.RWMutex
	globalLogger *slog.Logger
	debugEnabled bool
)

// New builds a text handler logger at the given verbosity, writing to
// stderr so command output stays parseable.
func New(debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	return slog.New(handler)
}

// SetGlobal installs the logger shared by all commands.
func SetGlobal(logger *slog.Logger, debug bool) {
	mu.Lock()
	defer mu.Unlock()
	globalLogger = logger
	debugEnabled = debug
}

// Get returns the global logger. Before SetGlobal runs it falls back to
// a fresh info-level logger.
func Get() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()

	if globalLogger != nil {
		return globalLogger
	}
	return New(debugEnabled)
}

// IsDebug returns whether debug mode is enabled
func IsDebug() bool {
	mu.RLock()
	defer mu.RUnlock()
	return debugEnabled
}
