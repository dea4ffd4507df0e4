package cmd

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Copani/matRad/internal/buildinfo"
	"github.com/Copani/matRad/internal/conf"
	"github.com/Copani/matRad/internal/errors"
	"github.com/Copani/matRad/internal/hostenv"
	"github.com/Copani/matRad/internal/logger"
)

type cliRun struct {
	fs     afero.Fs
	stdout bytes.Buffer
	stderr bytes.Buffer
}

// run executes the CLI against an in-memory filesystem without touching
// the process-wide configuration.
func (r *cliRun) run(t *testing.T, args ...string) error {
	t.Helper()
	if r.fs == nil {
		r.fs = afero.NewMemMapFs()
	}
	opts := Options{
		Fs:     r.fs,
		Stdout: &r.stdout,
		Stderr: &r.stderr,
		Build:  buildinfo.NewContext("3.1.0", "2026-01-01", "cli-test"),
		NewConfig: func(o ...conf.Option) (*conf.Config, error) {
			o = append(o, conf.WithHostRuntime(hostenv.Static{Name: "go", Version: "1.26"}))
			return conf.New(o...)
		},
	}
	return Execute(opts, args)
}

func TestVersionCommand(t *testing.T) {
	t.Parallel()
	var r cliRun
	require.NoError(t, r.run(t, "version"))

	out := r.stdout.String()
	assert.Contains(t, out, "matRad 3.1.0\n")
	assert.Contains(t, out, "System ID:  cli-test")
	assert.Contains(t, out, "Runtime:    go 1.26")
}

func TestConfigShowJSON(t *testing.T) {
	t.Parallel()
	var r cliRun
	require.NoError(t, r.run(t, "config", "show", "--format", "json"))

	var shown map[string]any
	require.NoError(t, json.Unmarshal(r.stdout.Bytes(), &shown))
	assert.Equal(t, "3.1.0", shown["matRad_version"])
	assert.InDelta(t, 3, shown["logLevel"], 0)
	require.IsType(t, map[string]any{}, shown["propOpt"])
	assert.Equal(t, "IPOPT", shown["propOpt"].(map[string]any)["optimizer"])
}

func TestConfigShowProfile(t *testing.T) {
	t.Parallel()
	var r cliRun
	require.NoError(t, r.run(t, "config", "show", "--profile", "testing"))

	out := r.stdout.String()
	assert.Contains(t, out, "defaultMaxIter: 10")
	assert.Contains(t, out, "disableGUI: true")
}

func TestConfigShowUnknownProfile(t *testing.T) {
	t.Parallel()
	var r cliRun
	err := r.run(t, "config", "show", "--profile", "bogus")

	require.Error(t, err)
	_, ok := logger.AsFatal(err)
	assert.True(t, ok)
	assert.Contains(t, r.stderr.String(), `Unknown default profile "bogus"`)
}

func TestConfigMigrate(t *testing.T) {
	t.Parallel()
	r := cliRun{fs: afero.NewMemMapFs()}
	old := "matRad_version: 2.10.1\nlogLevel: 2\nlegacyOption: 7\npropOpt:\n  defaultMaxIter: 42\n"
	require.NoError(t, afero.WriteFile(r.fs, "/snap/old.yaml", []byte(old), 0o644))

	require.NoError(t, r.run(t, "config", "migrate", "/snap/old.yaml", "--output", "/snap/new.toml"))

	assert.Contains(t, r.stderr.String(), "saved by matRad 2.10.1, current version is 3.1.0")

	snapshot, err := conf.LoadSnapshot(r.fs, "/snap/new.toml")
	require.NoError(t, err)
	fresh := conf.Settings{Version: "3.1.0"}
	m, err := conf.Migrate(fresh, snapshot)
	require.NoError(t, err)
	assert.False(t, m.VersionMismatch)
	assert.Equal(t, 42, m.Settings.Optimization.MaxIterations)
	assert.Equal(t, 2, m.Settings.LogLevel)
	assert.Empty(t, m.Ignored, "unknown fields are dropped from the migrated file")
}

func TestConfigMigrateLeavesRunningConfigAlone(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		snapshot   string
		args       []string
		wantYAML   string
		wantLogged bool
	}{
		{
			name:       "snapshot without writeLog keeps the requested file sink",
			snapshot:   "matRad_version: 3.1.0\nwriteLog: false\nlogLevel: 5\n",
			args:       []string{"--write-log", "--root", "/opt/matRad"},
			wantYAML:   "writeLog: false",
			wantLogged: true,
		},
		{
			name:     "snapshot with writeLog opens no file",
			snapshot: "matRad_version: 3.1.0\nwriteLog: true\nlogLevel: 5\n",
			args:     []string{"--root", "/opt/matRad"},
			wantYAML: "writeLog: true",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r := cliRun{fs: afero.NewMemMapFs()}
			require.NoError(t, afero.WriteFile(r.fs, "/snap/old.yaml", []byte(tt.snapshot), 0o644))

			args := append(append([]string{}, tt.args...), []string{"config", "migrate", "/snap/old.yaml"}...)
			require.NoError(t, r.run(t, args...))

			out := r.stdout.String()
			assert.Contains(t, out, tt.wantYAML)
			assert.Contains(t, out, "logLevel: 5")
			assert.NotContains(t, out, "Migrated old.yaml", "the snapshot log level is not applied")

			exists, err := afero.Exists(r.fs, "/opt/matRad/matRad.log")
			require.NoError(t, err)
			require.Equal(t, tt.wantLogged, exists)
			if tt.wantLogged {
				content, err := afero.ReadFile(r.fs, "/opt/matRad/matRad.log")
				require.NoError(t, err)
				assert.Contains(t, string(content), "DEBUG: Migrated old.yaml: ")
			}
		})
	}
}

func TestConfigMigrateMissingSnapshot(t *testing.T) {
	t.Parallel()
	var r cliRun
	err := r.run(t, "config", "migrate", "/nope.yaml")

	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryFileIO))
}

func TestLogLevelFlag(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		level     string
		wantErr   bool
		wantDebug bool
	}{
		{"numeric debug", "5", false, true},
		{"kind name", "debug", false, true},
		{"errors only", "1", false, false},
		{"out of range", "9", true, false},
		{"garbage", "loud", true, false},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var r cliRun
			err := r.run(t, "--log-level", tt.level, "version")
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.IsCategory(err, errors.CategoryFatal))
				return
			}
			require.NoError(t, err)
			if tt.wantDebug {
				assert.Contains(t, r.stdout.String(), "DEBUG: matRad 3.1.0 on go 1.26\n")
			} else {
				assert.NotContains(t, r.stdout.String(), "DEBUG:")
			}
		})
	}
}

func TestDumpLogFlag(t *testing.T) {
	t.Parallel()
	var r cliRun
	require.NoError(t, r.run(t, "--dump-log", "/logs/session.log", "version"))

	content, err := afero.ReadFile(r.fs, "/logs/session.log")
	require.NoError(t, err)
	assert.Equal(t, "DEBUG: matRad 3.1.0 on go 1.26\n", string(content))
}

func TestWriteLogFlag(t *testing.T) {
	t.Parallel()
	var r cliRun
	require.NoError(t, r.run(t, "--write-log", "--root", "/opt/matRad", "version"))

	content, err := afero.ReadFile(r.fs, "/opt/matRad/matRad.log")
	require.NoError(t, err)
	assert.Contains(t, string(content), "DEBUG: matRad 3.1.0 on go 1.26\n")
}

func TestPrintMetricsFlag(t *testing.T) {
	t.Parallel()
	var r cliRun
	require.NoError(t, r.run(t, "--print-metrics", "version"))

	out := r.stdout.String()
	assert.Contains(t, out, `matrad_log_dispatches_total{kind="debug",outcome="suppressed"} 1`)
	assert.Contains(t, out, `matrad_config_profile_applications_total{profile="production"} 1`)
}
