package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// ExportMetrics tracks survey document export
type ExportMetrics struct {
	surveysExported *prometheus.CounterVec
	exportErrors    *prometheus.CounterVec
	bytesWritten    *prometheus.CounterVec

	collectors []prometheus.Collector
}

// NewExportMetrics creates and registers export metrics
func NewExportMetrics(registry prometheus.Registerer) (*ExportMetrics, error) {
	m := &ExportMetrics{
		surveysExported: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "surveys_exported_total",
			Help: "Survey documents written by format",
		}, []string{"format"}),
		exportErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "export_errors_total",
			Help: "Survey documents that failed to write by format",
		}, []string{"format"}),
		bytesWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "export_bytes_written_total",
			Help: "Bytes of survey documents written by format",
		}, []string{"format"}),
	}
	m.collectors = []prometheus.Collector{m.surveysExported, m.exportErrors, m.bytesWritten}

	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

// Describe implements the Collector interface
func (m *ExportMetrics) Describe(ch chan<- *prometheus.Desc) {
	for _, collector := range m.collectors {
		collector.Describe(ch)
	}
}

// Collect implements the Collector interface
func (m *ExportMetrics) Collect(ch chan<- prometheus.Metric) {
	for _, collector := range m.collectors {
		collector.Collect(ch)
	}
}

// RecordExport records a written or failed document
func (m *ExportMetrics) RecordExport(format string, size int, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.exportErrors.WithLabelValues(format).Inc()
		return
	}
	m.surveysExported.WithLabelValues(format).Inc()
	m.bytesWritten.WithLabelValues(format).Add(float64(size))
}
