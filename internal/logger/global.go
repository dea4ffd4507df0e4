package logger

import (
	"sync"
)

var (
	globalDispatcher *Dispatcher
	globalMu         sync.Mutex
)

// SetGlobal installs d as the process-wide dispatcher.
func SetGlobal(d *Dispatcher) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalDispatcher = d
}

// Global returns the process-wide dispatcher. If none has been set it
// installs a console-only fallback at DefaultLevel.
func Global() *Dispatcher {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalDispatcher != nil {
		return globalDispatcher
	}

	// Without a file path NewDispatcher cannot fail
	globalDispatcher, _ = NewDispatcher(Config{Level: DefaultLevel})
	return globalDispatcher
}

// Info dispatches an informational message through the global dispatcher.
func Info(format string, args ...any) {
	d := Global()
	d.reportSinkFailure(d.dispatch(1, KindInfo, format, args...))
}

// Warn dispatches a warning through the global dispatcher.
func Warn(format string, args ...any) {
	d := Global()
	d.reportSinkFailure(d.dispatch(1, KindWarning, format, args...))
}

// Deprecated dispatches a deprecation notice through the global dispatcher.
func Deprecated(format string, args ...any) {
	d := Global()
	d.reportSinkFailure(d.dispatch(1, KindDeprecated, format, args...))
}

// Debug dispatches a debug message through the global dispatcher.
func Debug(format string, args ...any) {
	d := Global()
	d.reportSinkFailure(d.dispatch(1, KindDebug, format, args...))
}

// Error dispatches an error through the global dispatcher and returns the fatal error.
func Error(format string, args ...any) error {
	return Global().dispatch(1, KindError, format, args...)
}
