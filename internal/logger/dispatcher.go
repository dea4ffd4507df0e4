// Package logger implements the leveled message dispatcher. Every message
// passes through Dispatch, which captures it into the memory buffer and the
// log file (when enabled) before the verbosity threshold decides whether the
// console shows it.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spf13/afero"

	"github.com/Copani/matRad/internal/errors"
)

// ErrorID is the identifier carried by every fatal dispatch.
const ErrorID = "matRad:Error"

// FatalError is the result of an error-kind dispatch. Stack starts at the
// code that called the dispatcher.
type FatalError struct {
	ID      string         `json:"identifier"`
	Message string         `json:"message"`
	Stack   []errors.Frame `json:"stack"`
}

func (e *FatalError) Error() string {
	return e.Message
}

// AsFatal extracts the FatalError from err's chain.
func AsFatal(err error) (*FatalError, bool) {
	var fe *FatalError
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}

// Dispatch outcomes and capture sinks reported to a Recorder.
const (
	OutcomeDisplayed  = "displayed"
	OutcomeSuppressed = "suppressed"
	OutcomeFatal      = "fatal"

	SinkMemory = "memory"
	SinkFile   = "file"
)

// Recorder receives dispatch statistics.
type Recorder interface {
	RecordDispatch(kind, outcome string)
	RecordCapture(sink string)
}

type noopRecorder struct{}

func (noopRecorder) RecordDispatch(string, string) {}
func (noopRecorder) RecordCapture(string)          {}

// Dispatcher routes messages to the console, memory and file sinks.
type Dispatcher struct {
	// mu serializes dispatches and guards the file sink
	mu sync.Mutex

	level   atomic.Int32
	keepLog atomic.Bool

	fs     afero.Fs
	stdout io.Writer
	stderr io.Writer

	console    *consoleHandler
	memory     *memoryHandler
	fileWriter *BufferedFileWriter
	fileSink   *fileHandler

	recorder   Recorder
	bufferSize int
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithFs sets the filesystem used for the log file and dumps.
func WithFs(fs afero.Fs) Option {
	return func(d *Dispatcher) {
		if fs != nil {
			d.fs = fs
		}
	}
}

// WithStdout redirects info and debug console output.
func WithStdout(w io.Writer) Option {
	return func(d *Dispatcher) {
		if w != nil {
			d.stdout = w
		}
	}
}

// WithStderr redirects warning, deprecation and error console output.
func WithStderr(w io.Writer) Option {
	return func(d *Dispatcher) {
		if w != nil {
			d.stderr = w
		}
	}
}

// WithRecorder attaches dispatch statistics collection.
func WithRecorder(r Recorder) Option {
	return func(d *Dispatcher) {
		if r != nil {
			d.recorder = r
		}
	}
}

// NewDispatcher creates a dispatcher from cfg. When cfg.FilePath is set the
// log file is opened immediately.
func NewDispatcher(cfg Config, opts ...Option) (*Dispatcher, error) {
	applyConfigDefaults(&cfg)
	if !cfg.Level.Valid() {
		return nil, errors.Newf("log level must be between %d and %d, got %d", MinLevel, MaxLevel, cfg.Level).
			Component("logger").
			Category(errors.CategoryValidation).
			Build()
	}

	d := &Dispatcher{
		fs:         afero.NewOsFs(),
		stdout:     os.Stdout,
		stderr:     os.Stderr,
		recorder:   noopRecorder{},
		bufferSize: cfg.BufferSize,
	}
	for _, opt := range opts {
		opt(d)
	}

	d.level.Store(int32(cfg.Level)) //nolint:gosec // validated range 1..5
	d.keepLog.Store(cfg.KeepLog)
	d.console = newConsoleHandler(d.stdout, d.stderr, d.Level)
	d.memory = newMemoryHandler(d.KeepLog)

	if cfg.FilePath != "" {
		if err := d.EnableFileLogging(cfg.FilePath); err != nil {
			return nil, err
		}
	}

	return d, nil
}

// Dispatch sends a message of the given kind. It returns a fatal error for
// KindError and for unknown kinds, and a file I/O error if a sink fails.
func (d *Dispatcher) Dispatch(kind Kind, format string, args ...any) error {
	return d.dispatch(1, kind, format, args...)
}

// Error dispatches an error-kind message and returns the resulting fatal error.
func (d *Dispatcher) Error(format string, args ...any) error {
	return d.dispatch(1, KindError, format, args...)
}

// Warn dispatches a warning.
func (d *Dispatcher) Warn(format string, args ...any) {
	d.reportSinkFailure(d.dispatch(1, KindWarning, format, args...))
}

// Info dispatches an informational message.
func (d *Dispatcher) Info(format string, args ...any) {
	d.reportSinkFailure(d.dispatch(1, KindInfo, format, args...))
}

// Deprecated dispatches a deprecation notice.
func (d *Dispatcher) Deprecated(format string, args ...any) {
	d.reportSinkFailure(d.dispatch(1, KindDeprecated, format, args...))
}

// Debug dispatches a debug message.
func (d *Dispatcher) Debug(format string, args ...any) {
	d.reportSinkFailure(d.dispatch(1, KindDebug, format, args...))
}

// dispatch does the routing. skip is the number of frames between the
// original caller and dispatch, so the fatal stack starts at that caller.
func (d *Dispatcher) dispatch(skip int, kind Kind, format string, args ...any) error {
	if !kind.Valid() {
		return d.dispatch(skip+1, KindError, "unknown log kind %q", string(kind))
	}

	msg := render(format, args...)
	record := slog.NewRecord(time.Now(), kind.slogLevel(), msg, 0)
	ctx := context.Background()

	d.mu.Lock()
	captureMemory := d.memory.Enabled(ctx, record.Level)
	captureFile := d.fileSink != nil
	displayed := d.console.Enabled(ctx, record.Level)

	// Capture sinks go first so a failing console never loses the record
	handlers := []slog.Handler{d.memory}
	if captureFile {
		handlers = append(handlers, d.fileSink)
	}
	handlers = append(handlers, d.console)

	sinkErr := newMultiWriterHandler(handlers...).Handle(ctx, record)
	d.mu.Unlock()

	if captureMemory {
		d.recorder.RecordCapture(SinkMemory)
	}
	if captureFile {
		d.recorder.RecordCapture(SinkFile)
	}

	if kind == KindError {
		d.recorder.RecordDispatch(string(kind), OutcomeFatal)
		fatal := &FatalError{
			ID:      ErrorID,
			Message: msg,
			Stack:   errors.Callers(skip + 1),
		}
		var cause error = fatal
		if sinkErr != nil {
			cause = errors.Join(fatal, sinkErr)
		}
		return errors.New(cause).
			Component("logger").
			Category(errors.CategoryFatal).
			Context("identifier", ErrorID).
			Build()
	}

	outcome := OutcomeSuppressed
	if displayed {
		outcome = OutcomeDisplayed
	}
	d.recorder.RecordDispatch(string(kind), outcome)

	if sinkErr != nil {
		return errors.New(sinkErr).
			Component("logger").
			Category(errors.CategoryFileIO).
			Context("operation", "write_log").
			Build()
	}
	return nil
}

// reportSinkFailure surfaces sink errors from the non-returning wrappers.
func (d *Dispatcher) reportSinkFailure(err error) {
	if err == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	_, _ = fmt.Fprintf(d.stderr, "matRad: log sink failure: %v\n", err)
}

// Level returns the current verbosity threshold.
func (d *Dispatcher) Level() Level {
	return Level(d.level.Load())
}

// SetLevel changes the verbosity threshold. Values outside [MinLevel,
// MaxLevel] are rejected through the fatal path and the old level is kept.
func (d *Dispatcher) SetLevel(level Level) error {
	if !level.Valid() {
		return d.dispatch(1, KindError, "log level must be an integer between %d and %d, got %d", MinLevel, MaxLevel, level)
	}
	d.level.Store(int32(level)) //nolint:gosec // validated range 1..5
	return nil
}

// KeepLog reports whether messages are captured into memory.
func (d *Dispatcher) KeepLog() bool {
	return d.keepLog.Load()
}

// SetKeepLog switches memory capture. Already captured entries stay.
func (d *Dispatcher) SetKeepLog(keep bool) {
	d.keepLog.Store(keep)
}

// Entries returns a copy of the captured entries in emission order.
func (d *Dispatcher) Entries() []Entry {
	return d.memory.snapshot()
}

// DumpLog writes the captured entries to path, one "TAG: message" line each.
func (d *Dispatcher) DumpLog(path string) error {
	if err := d.memory.dump(d.fs, path); err != nil {
		return errors.New(err).
			Component("logger").
			Category(errors.CategoryFileIO).
			Context("operation", "dump_log").
			FileContext(path).
			Build()
	}
	return nil
}

// EnableFileLogging opens path in append mode and starts writing every
// dispatched message to it. Enabling the already open path is a no-op;
// a different path replaces the current file.
func (d *Dispatcher) EnableFileLogging(path string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.fileWriter != nil {
		if d.fileWriter.FilePath() == path {
			return nil
		}
		if err := d.closeFileLocked(); err != nil {
			return err
		}
	}

	w, err := NewBufferedFileWriter(d.fs, path, WithBufferSize(d.bufferSize))
	if err != nil {
		return errors.New(err).
			Component("logger").
			Category(errors.CategoryFileIO).
			Context("operation", "open_log_file").
			FileContext(path).
			Build()
	}

	d.fileWriter = w
	d.fileSink = newFileHandler(w)
	return nil
}

// DisableFileLogging flushes and closes the log file. It is a no-op when
// file logging is off.
func (d *Dispatcher) DisableFileLogging() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closeFileLocked()
}

func (d *Dispatcher) closeFileLocked() error {
	if d.fileWriter == nil {
		return nil
	}
	w := d.fileWriter
	d.fileWriter = nil
	d.fileSink = nil

	if err := w.Close(); err != nil {
		return errors.New(err).
			Component("logger").
			Category(errors.CategoryFileIO).
			Context("operation", "close_log_file").
			FileContext(w.FilePath()).
			Build()
	}
	return nil
}

// FileLogging reports whether the file sink is open.
func (d *Dispatcher) FileLogging() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.fileWriter != nil
}

// LogFilePath returns the open log file path, or "" when file logging is off.
func (d *Dispatcher) LogFilePath() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.fileWriter == nil {
		return ""
	}
	return d.fileWriter.FilePath()
}

// Flush syncs the log file to stable storage.
func (d *Dispatcher) Flush() error {
	if d == nil {
		return nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.fileWriter == nil {
		return nil
	}
	if err := d.fileWriter.Sync(); err != nil {
		return errors.New(err).
			Component("logger").
			Category(errors.CategoryFileIO).
			Context("operation", "sync_log_file").
			Build()
	}
	return nil
}

// Close releases the file sink. The dispatcher stays usable for console
// and memory output.
func (d *Dispatcher) Close() error {
	if d == nil {
		return nil
	}
	return d.DisableFileLogging()
}
