package conf

import (
	"bytes"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/Copani/matRad/internal/buildinfo"
	"github.com/Copani/matRad/internal/hostenv"
)

const testVersion = "3.1.0"

// testConfig bundles a Config with its captured console and filesystem.
type testConfig struct {
	*Config
	stdout *bytes.Buffer
	stderr *bytes.Buffer
	fs     afero.Fs
}

// newTestConfig builds an isolated Config on an in-memory filesystem.
func newTestConfig(t *testing.T, opts ...Option) *testConfig {
	t.Helper()
	tc := &testConfig{
		stdout: &bytes.Buffer{},
		stderr: &bytes.Buffer{},
		fs:     afero.NewMemMapFs(),
	}
	base := []Option{
		WithFs(tc.fs),
		WithStdout(tc.stdout),
		WithStderr(tc.stderr),
		WithRoot("/opt/matRad"),
		WithHostRuntime(hostenv.Static{Name: "go", Version: "1.26"}),
		WithBuildInfo(buildinfo.NewContext(testVersion, "2026-01-01", "test-system")),
	}
	c, err := New(append(base, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	tc.Config = c
	return tc
}
