package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ConfigMetrics tracks profile switches and snapshot migrations.
type ConfigMetrics struct {
	registry *prometheus.Registry

	profileApplicationsTotal *prometheus.CounterVec
	migrationsTotal          *prometheus.CounterVec
	migrationFieldsTotal     *prometheus.CounterVec
	migrationDuration        prometheus.Histogram
	logLevel                 prometheus.Gauge
}

// NewConfigMetrics creates and registers new configuration metrics
func NewConfigMetrics(registry *prometheus.Registry) (*ConfigMetrics, error) {
	m := &ConfigMetrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *ConfigMetrics) initMetrics() {
	m.profileApplicationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "config_profile_applications_total",
			Help:      "Total number of default profile applications",
		},
		[]string{"profile"},
	)

	m.migrationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "config_migrations_total",
			Help:      "Total number of snapshot migrations",
		},
		[]string{"result", "version_mismatch"},
	)

	m.migrationFieldsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "config_migration_fields_total",
			Help:      "Total number of fields handled by snapshot migrations",
		},
		[]string{"action"}, // action: kept, overwritten, ignored
	)

	m.migrationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "config_migration_duration_seconds",
			Help:      "Time taken to merge a snapshot into the current schema",
			Buckets:   prometheus.ExponentialBuckets(BucketStart10us, BucketFactor4, BucketCount8),
		},
	)

	m.logLevel = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "log_level",
			Help:      "Current console verbosity threshold (1-5)",
		},
	)
}

// Describe implements prometheus.Collector
func (m *ConfigMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.profileApplicationsTotal.Describe(ch)
	m.migrationsTotal.Describe(ch)
	m.migrationFieldsTotal.Describe(ch)
	m.migrationDuration.Describe(ch)
	m.logLevel.Describe(ch)
}

// Collect implements prometheus.Collector
func (m *ConfigMetrics) Collect(ch chan<- prometheus.Metric) {
	m.profileApplicationsTotal.Collect(ch)
	m.migrationsTotal.Collect(ch)
	m.migrationFieldsTotal.Collect(ch)
	m.migrationDuration.Collect(ch)
	m.logLevel.Collect(ch)
}

// RecordProfile counts one profile application.
func (m *ConfigMetrics) RecordProfile(profile string) {
	m.profileApplicationsTotal.WithLabelValues(profile).Inc()
}

// RecordMigration records the outcome of one snapshot merge.
func (m *ConfigMetrics) RecordMigration(result string, versionMismatch bool, kept, overwritten, ignored int, duration time.Duration) {
	mismatch := "false"
	if versionMismatch {
		mismatch = "true"
	}
	m.migrationsTotal.WithLabelValues(result, mismatch).Inc()
	m.migrationFieldsTotal.WithLabelValues(ActionKept).Add(float64(kept))
	m.migrationFieldsTotal.WithLabelValues(ActionOverwritten).Add(float64(overwritten))
	m.migrationFieldsTotal.WithLabelValues(ActionIgnored).Add(float64(ignored))
	m.migrationDuration.Observe(duration.Seconds())
}

// SetLogLevel tracks the active verbosity threshold.
func (m *ConfigMetrics) SetLogLevel(level int) {
	m.logLevel.Set(float64(level))
}
