package observability

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerationMetrics(t *testing.T) {
	t.Parallel()

	m, err := NewMetrics()
	require.NoError(t, err)

	m.Generation.RecordQuestionsGenerated("1", 45)
	m.Generation.RecordSurvey("regular", 20, false)
	m.Generation.RecordSurvey("regular", 20, false)
	m.Generation.RecordSurvey("regular", 5, true)

	expected := `
# HELP survey_underfilled_total Surveys committed with fewer questions than the quota
# TYPE survey_underfilled_total counter
survey_underfilled_total{type="regular"} 1
# HELP surveys_generated_total Total number of committed surveys
# TYPE surveys_generated_total counter
surveys_generated_total{type="regular"} 3
`
	require.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected),
		"surveys_generated_total", "survey_underfilled_total"))

	assert.Equal(t, 1, testutil.CollectAndCount(m.Generation, "questions_generated_total"))
	assert.Equal(t, 1, testutil.CollectAndCount(m.Generation, "survey_questions_assigned_total"))
}

func TestNilMetricsAreNoOps(t *testing.T) {
	t.Parallel()

	var m *Metrics
	assert.NoError(t, m.WriteTextFile("/nonexistent/metrics.prom"))

	m, err := NewMetrics()
	require.NoError(t, err)
	assert.NoError(t, m.WriteTextFile(""))

	// collectors may be omitted by callers that do not track metrics
	m.Generation = nil
	assert.NotPanics(t, func() { m.Generation.RecordSurvey("control", 1, true) })
}

func TestWriteTextFileAndHandler(t *testing.T) {
	t.Parallel()

	m, err := NewMetrics()
	require.NoError(t, err)
	m.Results.RecordAnswers(2)
	m.Results.RecordError("unknown_user")

	path := filepath.Join(t.TempDir(), "surveygen.prom")
	require.NoError(t, m.WriteTextFile(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "answers_ingested_total 2")
	assert.Contains(t, string(data), `ingestion_errors_total{reason="unknown_user"} 1`)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "answers_ingested_total 2")
}
