package observability

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteTextIncludesRecordedFamilies(t *testing.T) {
	m, err := NewMetrics()
	require.NoError(t, err)

	m.Logging.RecordDispatch("info", "displayed")
	m.Config.RecordProfile("testing")

	var buf bytes.Buffer
	require.NoError(t, m.WriteText(&buf))

	out := buf.String()
	assert.Contains(t, out, `matrad_log_dispatches_total{kind="info",outcome="displayed"} 1`)
	assert.Contains(t, out, `matrad_config_profile_applications_total{profile="testing"} 1`)
	assert.Contains(t, out, "# TYPE matrad_log_level gauge")
}

func TestNewMetricsIsolatedRegistries(t *testing.T) {
	a, err := NewMetrics()
	require.NoError(t, err)
	b, err := NewMetrics()
	require.NoError(t, err)
	assert.NotSame(t, a.Registry(), b.Registry())
}
