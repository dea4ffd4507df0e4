// Package observability wires the Prometheus collectors for the matRad
// configuration registry and logging dispatcher.
package observability

import (
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	"github.com/Copani/matRad/internal/observability/metrics"
)

// Metrics holds all the metric collectors for the application.
type Metrics struct {
	registry *prometheus.Registry
	Logging  *metrics.LoggingMetrics
	Config   *metrics.ConfigMetrics
}

// NewMetrics creates a new instance of Metrics on a private registry.
func NewMetrics() (*Metrics, error) {
	registry := prometheus.NewRegistry()

	loggingMetrics, err := metrics.NewLoggingMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create logging metrics: %w", err)
	}

	configMetrics, err := metrics.NewConfigMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create config metrics: %w", err)
	}

	return &Metrics{
		registry: registry,
		Logging:  loggingMetrics,
		Config:   configMetrics,
	}, nil
}

// Registry exposes the underlying registry for gathering.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteText writes every gathered metric family in the Prometheus text
// exposition format.
func (m *Metrics) WriteText(w io.Writer) error {
	families, err := m.registry.Gather()
	if err != nil {
		return fmt.Errorf("failed to gather metrics: %w", err)
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("failed to encode metric family %s: %w", mf.GetName(), err)
		}
	}
	return nil
}
