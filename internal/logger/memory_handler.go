package logger

import (
	"context"
	"log/slog"
	"os"
	"slices"
	"strings"
	"sync"

	"github.com/spf13/afero"
)

// Entry is one captured message.
type Entry struct {
	Tag     string `json:"tag" yaml:"tag"`
	Message string `json:"message" yaml:"message"`
}

// String renders the entry in the persisted "TAG: message" form.
func (e Entry) String() string {
	return strings.TrimSuffix(formatLine(e.Tag, e.Message), "\n")
}

// memoryHandler appends every record to an unbounded in-memory buffer while
// capture is switched on.
type memoryHandler struct {
	mu      sync.RWMutex
	entries []Entry
	enabled func() bool
}

func newMemoryHandler(enabled func() bool) *memoryHandler {
	return &memoryHandler{enabled: enabled}
}

func (h *memoryHandler) Enabled(context.Context, slog.Level) bool {
	return h.enabled()
}

//nolint:gocritic // slog.Handler interface requires record by value
func (h *memoryHandler) Handle(_ context.Context, record slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = append(h.entries, Entry{
		Tag:     kindFromSlogLevel(record.Level).Tag(),
		Message: record.Message,
	})
	return nil
}

func (h *memoryHandler) WithAttrs([]slog.Attr) slog.Handler { return h }

func (h *memoryHandler) WithGroup(string) slog.Handler { return h }

// snapshot returns a copy of the captured entries in emission order.
func (h *memoryHandler) snapshot() []Entry {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return slices.Clone(h.entries)
}

// dump writes every entry to path, replacing any existing file.
func (h *memoryHandler) dump(fs afero.Fs, path string) error {
	entries := h.snapshot()

	var sb strings.Builder
	for _, e := range entries {
		sb.WriteString(formatLine(e.Tag, e.Message))
	}

	if err := ensureFileDirectory(fs, path); err != nil {
		return err
	}
	return afero.WriteFile(fs, path, []byte(sb.String()), os.FileMode(LogFilePermissions))
}
