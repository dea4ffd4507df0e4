package logger

import (
	"context"
	"io"
	"log/slog"
)

// fileHandler appends every record as "TAG: message" to the log file and
// flushes it before returning. It ignores the verbosity threshold.
type fileHandler struct {
	w *BufferedFileWriter
}

func newFileHandler(w *BufferedFileWriter) *fileHandler {
	return &fileHandler{w: w}
}

func (h *fileHandler) Enabled(context.Context, slog.Level) bool {
	return h.w != nil
}

//nolint:gocritic // slog.Handler interface requires record by value
func (h *fileHandler) Handle(_ context.Context, record slog.Record) error {
	if _, err := io.WriteString(h.w, formatLine(kindFromSlogLevel(record.Level).Tag(), record.Message)); err != nil {
		return err
	}
	return h.w.Flush()
}

func (h *fileHandler) WithAttrs([]slog.Attr) slog.Handler { return h }

func (h *fileHandler) WithGroup(string) slog.Handler { return h }
