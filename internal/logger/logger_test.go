package logger_test

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Copani/matRad/internal/errors"
	"github.com/Copani/matRad/internal/logger"
)

// consoleCapture collects what the dispatcher prints
type consoleCapture struct {
	stdout bytes.Buffer
	stderr bytes.Buffer
}

func newTestDispatcher(t *testing.T, level logger.Level, keepLog bool, opts ...logger.Option) (*logger.Dispatcher, *consoleCapture, afero.Fs) {
	t.Helper()
	console := &consoleCapture{}
	fs := afero.NewMemMapFs()
	opts = append([]logger.Option{
		logger.WithStdout(&console.stdout),
		logger.WithStderr(&console.stderr),
		logger.WithFs(fs),
	}, opts...)
	d, err := logger.NewDispatcher(logger.Config{Level: level, KeepLog: keepLog}, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })
	return d, console, fs
}

func TestThresholdMatrix(t *testing.T) {
	t.Parallel()

	kinds := []struct {
		kind      logger.Kind
		threshold logger.Level
		stderr    bool
		prefix    string
	}{
		{logger.KindWarning, 2, true, ""},
		{logger.KindInfo, 3, false, ""},
		{logger.KindDeprecated, 4, true, "DEPRECATION WARNING: "},
		{logger.KindDebug, 5, false, "DEBUG: "},
	}

	for level := logger.MinLevel; level <= logger.MaxLevel; level++ {
		level := level
		for _, k := range kinds {
			k := k
			t.Run(fmt.Sprintf("L%d/%s", level, k.kind), func(t *testing.T) {
				t.Parallel()
				d, console, _ := newTestDispatcher(t, level, true)

				require.NoError(t, d.Dispatch(k.kind, "msg %s", k.kind))

				want := ""
				if level >= k.threshold {
					want = k.prefix + "msg " + string(k.kind) + "\n"
				}
				if k.stderr {
					assert.Equal(t, want, console.stderr.String())
					assert.Empty(t, console.stdout.String())
				} else {
					assert.Equal(t, want, console.stdout.String())
					assert.Empty(t, console.stderr.String())
				}

				// Capture ignores the threshold
				assert.Equal(t, []logger.Entry{{Tag: k.kind.Tag(), Message: "msg " + string(k.kind)}}, d.Entries())
			})
		}
	}
}

func TestErrorKindIsFatalAtEveryLevel(t *testing.T) {
	t.Parallel()

	for level := logger.MinLevel; level <= logger.MaxLevel; level++ {
		level := level
		t.Run(level.String(), func(t *testing.T) {
			t.Parallel()
			d, console, _ := newTestDispatcher(t, level, false)

			err := d.Error("dose grid %s", "missing")
			require.Error(t, err)

			fatal, ok := logger.AsFatal(err)
			require.True(t, ok)
			assert.Equal(t, logger.ErrorID, fatal.ID)
			assert.Equal(t, "dose grid missing", fatal.Message)
			assert.True(t, errors.IsCategory(err, errors.CategoryFatal))
			assert.Equal(t, "dose grid missing\n", console.stderr.String())
			assert.Empty(t, console.stdout.String())
		})
	}
}

func TestFatalStackStartsAtCaller(t *testing.T) {
	t.Parallel()
	d, _, _ := newTestDispatcher(t, logger.LevelInfo, false)

	tests := []struct {
		name string
		call func() error
	}{
		{"Error", func() error { return d.Error("boom") }},
		{"Dispatch", func() error { return d.Dispatch(logger.KindError, "boom") }},
		{"unknown kind", func() error { return d.Dispatch(logger.Kind("verbose"), "boom") }},
		{"SetLevel", func() error { return d.SetLevel(9) }},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			fatal, ok := logger.AsFatal(tt.call())
			require.True(t, ok)
			require.NotEmpty(t, fatal.Stack)
			assert.Contains(t, fatal.Stack[0].Function, "TestFatalStackStartsAtCaller")
			for _, f := range fatal.Stack {
				assert.NotContains(t, f.Function, "(*Dispatcher).dispatch")
			}
		})
	}
}

func TestInfoScenario(t *testing.T) {
	t.Parallel()
	d, console, _ := newTestDispatcher(t, logger.LevelInfo, true)

	d.Info("Dose %d Gy", 2)

	assert.Equal(t, "Dose 2 Gy\n", console.stdout.String())
	assert.Equal(t, []logger.Entry{{Tag: "INFO", Message: "Dose 2 Gy"}}, d.Entries())
}

func TestWarningSuppressedButCaptured(t *testing.T) {
	t.Parallel()
	d, console, _ := newTestDispatcher(t, logger.LevelError, true)

	d.Warn("low density")

	assert.Empty(t, console.stdout.String())
	assert.Empty(t, console.stderr.String())
	assert.Equal(t, []logger.Entry{{Tag: "WARNING", Message: "low density"}}, d.Entries())
}

func TestWrappersRouteToKinds(t *testing.T) {
	t.Parallel()
	d, console, _ := newTestDispatcher(t, logger.LevelDebug, true)

	d.Deprecated("old option %q", "x")
	d.Debug("value=%d", 7)

	assert.Equal(t, "DEPRECATION WARNING: old option \"x\"\n", console.stderr.String())
	assert.Equal(t, "DEBUG: value=7\n", console.stdout.String())
	assert.Equal(t, []logger.Entry{
		{Tag: "DEPRECATED", Message: "old option \"x\""},
		{Tag: "DEBUG", Message: "value=7"},
	}, d.Entries())
}

func TestMessageRendering(t *testing.T) {
	t.Parallel()
	d, console, _ := newTestDispatcher(t, logger.LevelInfo, true)

	d.Info("trailing newline\n")
	literalPercent := "100% literal without args"
	d.Info(literalPercent)

	assert.Equal(t, "trailing newline\n100% literal without args\n", console.stdout.String())
	assert.Equal(t, "trailing newline", d.Entries()[0].Message)
}

func TestKeepLogOffCapturesNothing(t *testing.T) {
	t.Parallel()
	d, _, _ := newTestDispatcher(t, logger.LevelDebug, false)

	d.Info("not kept")
	assert.Empty(t, d.Entries())

	d.SetKeepLog(true)
	d.Info("kept")
	d.SetKeepLog(false)
	d.Info("not kept either")

	assert.Equal(t, []logger.Entry{{Tag: "INFO", Message: "kept"}}, d.Entries())
}

func TestSetLevelBoundaries(t *testing.T) {
	t.Parallel()

	tests := []struct {
		level logger.Level
		valid bool
	}{
		{0, false},
		{1, true},
		{3, true},
		{5, true},
		{6, false},
		{-1, false},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(fmt.Sprint(int(tt.level)), func(t *testing.T) {
			t.Parallel()
			d, console, _ := newTestDispatcher(t, logger.LevelWarning, false)

			err := d.SetLevel(tt.level)
			if tt.valid {
				require.NoError(t, err)
				assert.Equal(t, tt.level, d.Level())
				return
			}
			_, ok := logger.AsFatal(err)
			assert.True(t, ok)
			assert.Equal(t, logger.LevelWarning, d.Level(), "previous level must be retained")
			assert.Contains(t, console.stderr.String(), "between 1 and 5")
		})
	}
}

func TestNewDispatcherRejectsInvalidLevel(t *testing.T) {
	t.Parallel()
	_, err := logger.NewDispatcher(logger.Config{Level: 7})
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryValidation))
}

var entryLine = regexp.MustCompile(`^(ERROR|WARNING|INFO|DEPRECATED|DEBUG): .*$`)

func TestDumpLogRoundTrip(t *testing.T) {
	t.Parallel()
	d, _, fs := newTestDispatcher(t, logger.LevelError, true)

	const n = 25
	for i := 0; i < n; i++ {
		switch i % 4 {
		case 0:
			d.Info("info %d", i)
		case 1:
			d.Warn("warn %d", i)
		case 2:
			d.Debug("debug %d", i)
		default:
			_ = d.Error("error %d", i)
		}
	}

	const path = "/tmp/out/dump.log"
	require.NoError(t, d.DumpLog(path))

	content, err := afero.ReadFile(fs, path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSuffix(string(content), "\n"), "\n")
	require.Len(t, lines, n)
	for i, line := range lines {
		assert.Regexp(t, entryLine, line)
		assert.Equal(t, d.Entries()[i].String(), line)
	}

	// A second dump replaces the file rather than appending
	require.NoError(t, d.DumpLog(path))
	content, err = afero.ReadFile(fs, path)
	require.NoError(t, err)
	assert.Equal(t, n, strings.Count(string(content), "\n"))
}

func TestDumpLogKeepsMultiLineMessagesOnOneLine(t *testing.T) {
	t.Parallel()
	d, _, fs := newTestDispatcher(t, logger.LevelError, true)

	d.Info("beam 1\nbeam 2")
	d.Warn("gantry\r\ncouch")
	require.NoError(t, d.DumpLog("/dump.log"))

	content, err := afero.ReadFile(fs, "/dump.log")
	require.NoError(t, err)
	assert.Equal(t, "INFO: beam 1\\nbeam 2\nWARNING: gantry\\ncouch\n", string(content))
	assert.Equal(t, "beam 1\nbeam 2", d.Entries()[0].Message)
}

func TestDumpLogReadOnlyFs(t *testing.T) {
	t.Parallel()
	d, _, _ := newTestDispatcher(t, logger.LevelInfo, true,
		logger.WithFs(afero.NewReadOnlyFs(afero.NewMemMapFs())))

	d.Info("x")
	err := d.DumpLog("/dump.log")
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryFileIO))
}

func TestFileLogging(t *testing.T) {
	t.Parallel()
	d, _, fs := newTestDispatcher(t, logger.LevelError, false)
	const path = "/opt/matRad/matRad.log"

	assert.False(t, d.FileLogging())
	require.NoError(t, d.EnableFileLogging(path))
	require.NoError(t, d.EnableFileLogging(path), "enabling the open path is a no-op")
	assert.True(t, d.FileLogging())
	assert.Equal(t, path, d.LogFilePath())

	// Written regardless of threshold
	d.Debug("hidden debug")
	d.Info("hidden info")

	content, err := afero.ReadFile(fs, path)
	require.NoError(t, err)
	assert.Equal(t, "DEBUG: hidden debug\nINFO: hidden info\n", string(content), "records reach the file before Flush or Close")

	require.NoError(t, d.DisableFileLogging())
	assert.False(t, d.FileLogging())
	assert.Empty(t, d.LogFilePath())

	d.Info("after disable")

	content, err = afero.ReadFile(fs, path)
	require.NoError(t, err)
	assert.Equal(t, "DEBUG: hidden debug\nINFO: hidden info\n", string(content))

	// Reopening appends
	require.NoError(t, d.EnableFileLogging(path))
	d.Warn("again\nwrapped")

	content, err = afero.ReadFile(fs, path)
	require.NoError(t, err)
	assert.Equal(t, "DEBUG: hidden debug\nINFO: hidden info\nWARNING: again\\nwrapped\n", string(content))
	assert.NoError(t, d.Flush())
}

func TestFileLoggingWritesFatalBeforeReturning(t *testing.T) {
	t.Parallel()
	d, _, fs := newTestDispatcher(t, logger.LevelInfo, false)
	require.NoError(t, d.EnableFileLogging("/matRad.log"))

	_ = d.Error("abort")

	content, err := afero.ReadFile(fs, "/matRad.log")
	require.NoError(t, err)
	assert.Equal(t, "ERROR: abort\n", string(content))
}

func TestEnableFileLoggingFailure(t *testing.T) {
	t.Parallel()
	d, _, _ := newTestDispatcher(t, logger.LevelInfo, false,
		logger.WithFs(afero.NewReadOnlyFs(afero.NewMemMapFs())))

	err := d.EnableFileLogging("/root/matRad.log")
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryFileIO))
	assert.False(t, d.FileLogging())
}

func TestDisableFileLoggingWhenOff(t *testing.T) {
	t.Parallel()
	d, _, _ := newTestDispatcher(t, logger.LevelInfo, false)
	assert.NoError(t, d.DisableFileLogging())
	assert.NoError(t, d.Flush())
}

// countingRecorder tallies dispatch statistics
type countingRecorder struct {
	mu       sync.Mutex
	outcomes map[string]int
	captures map[string]int
}

func (r *countingRecorder) RecordDispatch(kind, outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes[kind+"/"+outcome]++
}

func (r *countingRecorder) RecordCapture(sink string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.captures[sink]++
}

func TestRecorderReceivesOutcomes(t *testing.T) {
	t.Parallel()
	rec := &countingRecorder{outcomes: map[string]int{}, captures: map[string]int{}}
	d, _, _ := newTestDispatcher(t, logger.LevelWarning, true, logger.WithRecorder(rec))
	require.NoError(t, d.EnableFileLogging("/matRad.log"))

	d.Info("suppressed")
	d.Warn("shown")
	_ = d.Error("fatal")

	assert.Equal(t, map[string]int{
		"info/suppressed":   1,
		"warning/displayed": 1,
		"error/fatal":       1,
	}, rec.outcomes)
	assert.Equal(t, map[string]int{logger.SinkMemory: 3, logger.SinkFile: 3}, rec.captures)
}

// Global state: not parallel
func TestGlobalDispatcher(t *testing.T) {
	d, console, _ := newTestDispatcher(t, logger.LevelDebug, true)
	logger.SetGlobal(d)
	t.Cleanup(func() { logger.SetGlobal(nil) })

	assert.Same(t, d, logger.Global())

	logger.Info("global info")
	logger.Warn("global warn")
	logger.Deprecated("global deprecated")
	logger.Debug("global debug")
	err := logger.Error("global error")

	assert.Equal(t, "global info\nDEBUG: global debug\n", console.stdout.String())
	assert.Equal(t, "global warn\nDEPRECATION WARNING: global deprecated\nglobal error\n", console.stderr.String())
	assert.Len(t, d.Entries(), 5)

	fatal, ok := logger.AsFatal(err)
	require.True(t, ok)
	assert.Contains(t, fatal.Stack[0].Function, "TestGlobalDispatcher")
}

func TestGlobalFallback(t *testing.T) {
	logger.SetGlobal(nil)
	t.Cleanup(func() { logger.SetGlobal(nil) })

	g := logger.Global()
	require.NotNil(t, g)
	assert.Equal(t, logger.DefaultLevel, g.Level())
	assert.False(t, g.KeepLog())
	assert.Same(t, g, logger.Global())
}
