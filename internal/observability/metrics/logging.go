// Package metrics provides Prometheus metrics for the logging dispatcher and
// configuration registry.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// LoggingMetrics counts dispatched messages and sink captures.
// It satisfies the dispatcher's Recorder interface.
type LoggingMetrics struct {
	registry *prometheus.Registry

	dispatchesTotal *prometheus.CounterVec
	capturesTotal   *prometheus.CounterVec
}

// NewLoggingMetrics creates and registers new logging metrics
func NewLoggingMetrics(registry *prometheus.Registry) (*LoggingMetrics, error) {
	m := &LoggingMetrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *LoggingMetrics) initMetrics() {
	m.dispatchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "log_dispatches_total",
			Help:      "Total number of dispatched log messages",
		},
		[]string{"kind", "outcome"}, // outcome: displayed, suppressed, fatal
	)

	m.capturesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "log_captures_total",
			Help:      "Total number of messages captured by a log sink",
		},
		[]string{"sink"}, // sink: memory, file
	)
}

// Describe implements prometheus.Collector
func (m *LoggingMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.dispatchesTotal.Describe(ch)
	m.capturesTotal.Describe(ch)
}

// Collect implements prometheus.Collector
func (m *LoggingMetrics) Collect(ch chan<- prometheus.Metric) {
	m.dispatchesTotal.Collect(ch)
	m.capturesTotal.Collect(ch)
}

// RecordDispatch counts one dispatched message.
func (m *LoggingMetrics) RecordDispatch(kind, outcome string) {
	m.dispatchesTotal.WithLabelValues(kind, outcome).Inc()
}

// RecordCapture counts one message written to a capture sink.
func (m *LoggingMetrics) RecordCapture(sink string) {
	m.capturesTotal.WithLabelValues(sink).Inc()
}
