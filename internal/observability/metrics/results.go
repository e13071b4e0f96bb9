package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// ResultsMetrics tracks survey result ingestion
type ResultsMetrics struct {
	answersIngested  prometheus.Counter
	recordsProcessed *prometheus.CounterVec
	ingestionErrors  *prometheus.CounterVec

	collectors []prometheus.Collector
}

// NewResultsMetrics creates and registers ingestion metrics
func NewResultsMetrics(registry prometheus.Registerer) (*ResultsMetrics, error) {
	m := &ResultsMetrics{
		answersIngested: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "answers_ingested_total",
			Help: "Total number of answers stored",
		}),
		recordsProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "result_records_processed_total",
			Help: "Result records processed by status",
		}, []string{"status"}),
		ingestionErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ingestion_errors_total",
			Help: "Result records rejected by reason",
		}, []string{"reason"}),
	}
	m.collectors = []prometheus.Collector{m.answersIngested, m.recordsProcessed, m.ingestionErrors}

	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

// Describe implements the Collector interface
func (m *ResultsMetrics) Describe(ch chan<- *prometheus.Desc) {
	for _, collector := range m.collectors {
		collector.Describe(ch)
	}
}

// Collect implements the Collector interface
func (m *ResultsMetrics) Collect(ch chan<- prometheus.Metric) {
	for _, collector := range m.collectors {
		collector.Collect(ch)
	}
}

// RecordAnswers adds n stored answer fields
func (m *ResultsMetrics) RecordAnswers(n int) {
	if m == nil {
		return
	}
	m.answersIngested.Add(float64(n))
}

// RecordRecord counts a processed record
func (m *ResultsMetrics) RecordRecord(status string) {
	if m == nil {
		return
	}
	m.recordsProcessed.WithLabelValues(status).Inc()
}

// RecordError counts a rejected record
func (m *ResultsMetrics) RecordError(reason string) {
	if m == nil {
		return
	}
	m.ingestionErrors.WithLabelValues(reason).Inc()
}
