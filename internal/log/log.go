package log

import "sync"

var (
	defaultLogger *Logger
	mu            sync.RWMutex
)

// SetDefaultLogger sets the default global logger that will be used if calling logging functions directly exported by this package
func SetDefaultLogger(logger *Logger) {
	mu.Lock()
	defaultLogger = logger
	mu.Unlock()
}

// DefaultLogger returns the current default logger
func DefaultLogger() *Logger {
	mu.RLock()
	defer mu.RUnlock()
	return defaultLogger
}

// withDefault runs fn against the default logger.  Records are dropped until a default logger has been set, which
// keeps library code and tests silent.
func withDefault(fn func(l *Logger)) {
	if logger := DefaultLogger(); logger != nil {
		fn(logger)
	}
}

// Debug logs at debug Level using the default logger
func Debug(msg string, args ...any) {
	withDefault(func(l *Logger) { l.Debug(msg, args...) })
}

// Info logs at info Level using the default logger
func Info(msg string, args ...any) {
	withDefault(func(l *Logger) { l.Info(msg, args...) })
}

// Warn logs at warn Level using the default logger
func Warn(msg string, args ...any) {
	withDefault(func(l *Logger) { l.Warn(msg, args...) })
}

// Error logs at error Level using the default logger
func Error(msg string, args ...any) {
	withDefault(func(l *Logger) { l.Error(msg, args...) })
}

// Trace logs at debug level, but only if trace logging is enabled
func Trace(msg string, args ...any) {
	withDefault(func(l *Logger) { l.Trace(msg, args...) })
}
