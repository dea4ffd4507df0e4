package logger

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Copani/matRad/internal/errors"
)

// stubHandler records records it receives and can fail on demand
type stubHandler struct {
	enabled bool
	err     error
	got     []string
}

func (s *stubHandler) Enabled(context.Context, slog.Level) bool { return s.enabled }

//nolint:gocritic // slog.Handler interface requires record by value
func (s *stubHandler) Handle(_ context.Context, r slog.Record) error {
	s.got = append(s.got, r.Message)
	return s.err
}

func (s *stubHandler) WithAttrs([]slog.Attr) slog.Handler { return s }
func (s *stubHandler) WithGroup(string) slog.Handler      { return s }

func TestMultiWriterHandlerRespectsPerHandlerEnabled(t *testing.T) {
	t.Parallel()

	on := &stubHandler{enabled: true}
	off := &stubHandler{enabled: false}
	h := newMultiWriterHandler(on, nil, off)

	assert.True(t, h.Enabled(context.Background(), slog.LevelInfo))
	require.NoError(t, h.Handle(context.Background(), slog.NewRecord(time.Now(), slog.LevelInfo, "m", 0)))

	assert.Equal(t, []string{"m"}, on.got)
	assert.Empty(t, off.got)
}

func TestMultiWriterHandlerJoinsErrors(t *testing.T) {
	t.Parallel()

	errA := errors.NewStd("a")
	errB := errors.NewStd("b")
	first := &stubHandler{enabled: true, err: errA}
	second := &stubHandler{enabled: true, err: errB}

	err := newMultiWriterHandler(first, second).Handle(context.Background(), slog.NewRecord(time.Now(), slog.LevelWarn, "m", 0))
	require.ErrorIs(t, err, errA)
	require.ErrorIs(t, err, errB)
	assert.Len(t, second.got, 1, "a failing handler must not stop the others")
}

func TestMultiWriterHandlerNoneEnabled(t *testing.T) {
	t.Parallel()
	h := newMultiWriterHandler()
	assert.False(t, h.Enabled(context.Background(), slog.LevelError))
	assert.NoError(t, h.Handle(context.Background(), slog.NewRecord(time.Now(), slog.LevelError, "m", 0)))
}
