// Package observability provides metrics and monitoring capabilities for surveygen.
package observability

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tphakala/surveygen/internal/observability/metrics"
)

// Metrics holds all the metric collectors for the application.
type Metrics struct {
	registry   *prometheus.Registry
	Generation *metrics.GenerationMetrics
	Results    *metrics.ResultsMetrics
	Export     *metrics.ExportMetrics
	HTTP       *metrics.HTTPMetrics
}

// NewMetrics creates a new instance of Metrics, initializing all metric collectors.
func NewMetrics() (*Metrics, error) {
	registry := prometheus.NewRegistry()

	generation, err := metrics.NewGenerationMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create generation metrics: %w", err)
	}

	results, err := metrics.NewResultsMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create results metrics: %w", err)
	}

	export, err := metrics.NewExportMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create export metrics: %w", err)
	}

	httpMetrics, err := metrics.NewHTTPMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP metrics: %w", err)
	}

	return &Metrics{
		registry:   registry,
		Generation: generation,
		Results:    results,
		Export:     export,
		HTTP:       httpMetrics,
	}, nil
}

// Registry returns the registry holding all collectors
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RegisterRuntimeCollectors adds Go runtime and process collectors, used by long-running servers
func (m *Metrics) RegisterRuntimeCollectors() error {
	if err := m.registry.Register(collectors.NewGoCollector()); err != nil {
		return err
	}
	return m.registry.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		ErrorHandling: promhttp.HTTPErrorOnError,
	})
}

// WriteTextFile writes all metrics to path for the node_exporter textfile collector.
// Batch commands call it once before exiting; an empty path is a no-op.
func (m *Metrics) WriteTextFile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile %s: %w", path, err)
	}
	return nil
}
