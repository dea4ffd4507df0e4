package logger

import (
	"context"
	"io"
	"log/slog"
	"sync"
)

// consoleHandler prints enabled records as plain lines, splitting stdout
// and stderr by kind. Attributes and groups are not rendered.
type consoleHandler struct {
	mu     *sync.Mutex
	stdout io.Writer
	stderr io.Writer
	level  func() Level
}

func newConsoleHandler(stdout, stderr io.Writer, level func() Level) *consoleHandler {
	return &consoleHandler{
		mu:     &sync.Mutex{},
		stdout: stdout,
		stderr: stderr,
		level:  level,
	}
}

// Enabled applies the verbosity threshold.
func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return h.level() >= kindFromSlogLevel(level).Threshold()
}

//nolint:gocritic // slog.Handler interface requires record by value
func (h *consoleHandler) Handle(_ context.Context, record slog.Record) error {
	kind := kindFromSlogLevel(record.Level)
	w := h.stdout
	if kind.toStderr() {
		w = h.stderr
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(w, kind.consolePrefix()+record.Message+"\n")
	return err
}

func (h *consoleHandler) WithAttrs([]slog.Attr) slog.Handler { return h }

func (h *consoleHandler) WithGroup(string) slog.Handler { return h }
