package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gather returns the metric family with the given name
func gather(t *testing.T, reg *prometheus.Registry, name string) *dto.MetricFamily {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() == name {
			return mf
		}
	}
	t.Fatalf("metric family %s not gathered", name)
	return nil
}

func labels(m *dto.Metric) map[string]string {
	out := make(map[string]string, len(m.GetLabel()))
	for _, lp := range m.GetLabel() {
		out[lp.GetName()] = lp.GetValue()
	}
	return out
}

func TestHTTPMetricsRecordRequest(t *testing.T) {
	t.Parallel()
	reg := prometheus.NewRegistry()
	m, err := NewHTTPMetrics(reg)
	require.NoError(t, err)

	m.RecordRequest("POST", "/api/v1/results", 200, 0.004)
	m.RecordRequest("POST", "/api/v1/results", 422, 0.002)
	m.RecordRequest("POST", "/api/v1/results", 200, 0.003)

	requests := gather(t, reg, "http_requests_total")
	require.Len(t, requests.GetMetric(), 2)
	for _, metric := range requests.GetMetric() {
		l := labels(metric)
		assert.Equal(t, "/api/v1/results", l["path"])
		switch l["status"] {
		case "200":
			assert.InDelta(t, 2, metric.GetCounter().GetValue(), 0)
		case "422":
			assert.InDelta(t, 1, metric.GetCounter().GetValue(), 0)
		default:
			t.Errorf("unexpected status label %q", l["status"])
		}
	}

	latency := gather(t, reg, "http_request_duration_seconds")
	require.Len(t, latency.GetMetric(), 1)
	histogram := latency.GetMetric()[0].GetHistogram()
	assert.Equal(t, uint64(3), histogram.GetSampleCount())
	assert.InDelta(t, 0.009, histogram.GetSampleSum(), 1e-9)
}

func TestExportMetricsRecordExport(t *testing.T) {
	t.Parallel()
	reg := prometheus.NewRegistry()
	m, err := NewExportMetrics(reg)
	require.NoError(t, err)

	m.RecordExport("html", 2048, nil)
	m.RecordExport("html", 0, assert.AnError)

	exported := gather(t, reg, "surveys_exported_total").GetMetric()
	require.Len(t, exported, 1)
	assert.Equal(t, map[string]string{"format": "html"}, labels(exported[0]))
	assert.InDelta(t, 1, exported[0].GetCounter().GetValue(), 0)

	failed := gather(t, reg, "export_errors_total").GetMetric()
	require.Len(t, failed, 1)
	assert.InDelta(t, 1, failed[0].GetCounter().GetValue(), 0)

	written := gather(t, reg, "export_bytes_written_total").GetMetric()
	require.Len(t, written, 1)
	assert.InDelta(t, 2048, written[0].GetCounter().GetValue(), 0)
}

func TestNilCollectorsAreNoOps(t *testing.T) {
	t.Parallel()
	var (
		g *GenerationMetrics
		r *ResultsMetrics
		e *ExportMetrics
		h *HTTPMetrics
	)
	assert.NotPanics(t, func() {
		g.RecordQuestionsGenerated("2", 9)
		g.RecordRunDuration("surveys", 1.5)
		r.RecordAnswers(3)
		r.RecordRecord(StatusSuccess)
		r.RecordError(ReasonInvalidValue)
		e.RecordExport("json", 10, nil)
		h.RecordRequest("GET", "/healthz", 200, 0.001)
	})
}

func TestDuplicateRegistrationFails(t *testing.T) {
	t.Parallel()
	reg := prometheus.NewRegistry()
	_, err := NewResultsMetrics(reg)
	require.NoError(t, err)
	_, err = NewResultsMetrics(reg)
	require.Error(t, err)

	count, err := testutil.GatherAndCount(reg, "answers_ingested_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count, "only the first registration is gathered")
}
