// Package metrics provides Prometheus collectors for surveygen operations
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// GenerationMetrics tracks question and survey generation
type GenerationMetrics struct {
	questionsGenerated *prometheus.CounterVec
	surveysGenerated   *prometheus.CounterVec
	questionsAssigned  *prometheus.CounterVec
	surveysUnderfilled *prometheus.CounterVec
	runDuration        *prometheus.HistogramVec

	collectors []prometheus.Collector
}

// NewGenerationMetrics creates and registers generation metrics
func NewGenerationMetrics(registry prometheus.Registerer) (*GenerationMetrics, error) {
	m := &GenerationMetrics{}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *GenerationMetrics) initMetrics() {
	m.questionsGenerated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "questions_generated_total",
			Help: "Total number of generated questions",
		},
		[]string{"type"},
	)
	m.surveysGenerated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "surveys_generated_total",
			Help: "Total number of committed surveys",
		},
		[]string{"type"},
	)
	m.questionsAssigned = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "survey_questions_assigned_total",
			Help: "Total number of questions assigned to surveys",
		},
		[]string{"type"},
	)
	m.surveysUnderfilled = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "survey_underfilled_total",
			Help: "Surveys committed with fewer questions than the quota",
		},
		[]string{"type"},
	)
	m.runDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "generation_run_duration_seconds",
			Help:    "Duration of generation runs",
			Buckets: prometheus.ExponentialBuckets(BucketStart1ms, BucketFactor2, BucketCount15),
		},
		[]string{"operation"},
	)

	m.collectors = []prometheus.Collector{
		m.questionsGenerated,
		m.surveysGenerated,
		m.questionsAssigned,
		m.surveysUnderfilled,
		m.runDuration,
	}
}

// Describe implements the Collector interface
func (m *GenerationMetrics) Describe(ch chan<- *prometheus.Desc) {
	for _, collector := range m.collectors {
		collector.Describe(ch)
	}
}

// Collect implements the Collector interface
func (m *GenerationMetrics) Collect(ch chan<- prometheus.Metric) {
	for _, collector := range m.collectors {
		collector.Collect(ch)
	}
}

// RecordQuestionsGenerated adds n generated questions of a type
func (m *GenerationMetrics) RecordQuestionsGenerated(questionType string, n int) {
	if m == nil {
		return
	}
	m.questionsGenerated.WithLabelValues(questionType).Add(float64(n))
}

// RecordSurvey records a committed survey and the questions assigned to it
func (m *GenerationMetrics) RecordSurvey(surveyType string, assigned int, underfilled bool) {
	if m == nil {
		return
	}
	m.surveysGenerated.WithLabelValues(surveyType).Inc()
	m.questionsAssigned.WithLabelValues(surveyType).Add(float64(assigned))
	if underfilled {
		m.surveysUnderfilled.WithLabelValues(surveyType).Inc()
	}
}

// RecordRunDuration records how long a generation run took
func (m *GenerationMetrics) RecordRunDuration(operation string, seconds float64) {
	if m == nil {
		return
	}
	m.runDuration.WithLabelValues(operation).Observe(seconds)
}
