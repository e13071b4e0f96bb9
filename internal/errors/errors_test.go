package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingReporter struct {
	reported []*EnhancedError
}

func (r *recordingReporter) ReportError(ee *EnhancedError) { r.reported = append(r.reported, ee) }
func (r *recordingReporter) IsEnabled() bool               { return true }

func TestBuilderSetsMetadata(t *testing.T) {
	t.Parallel()

	ee := Newf("survey type %q is invalid", "weekly").
		Component("surveygen").
		Category(CategoryConfiguration).
		Context("setting", "survey_type").
		Priority("bogus").
		Build()

	assert.Equal(t, "survey type \"weekly\" is invalid", ee.Error())
	assert.Equal(t, "surveygen", ee.GetComponent())
	assert.Equal(t, CategoryConfiguration, ee.Category)
	assert.Equal(t, PriorityMedium, ee.GetPriority())
	assert.Equal(t, "survey_type", ee.GetContext()["setting"])
	assert.False(t, ee.GetTimestamp().IsZero())
}

func TestCategoryHelpers(t *testing.T) {
	t.Parallel()

	notFound := NotFoundError("results", "user", "abc")
	wrapped := fmt.Errorf("ingesting record 3: %w", notFound)

	assert.True(t, IsNotFound(wrapped))
	assert.False(t, IsConfiguration(wrapped))
	assert.Equal(t, "user abc not found", notFound.Error())

	cfg := ConfigurationError("export", "export_type", "pdf", "unsupported export type %q", "pdf")
	assert.True(t, IsConfiguration(cfg))
	assert.Equal(t, "pdf", cfg.GetContext()["value"])

	unsupported := New(NewStd("question type 3 has no generator")).Category(CategoryUnsupported).Build()
	assert.True(t, IsUnsupported(Join(NewStd("run failed"), unsupported)))
}

func TestIsMatchesByCategory(t *testing.T) {
	t.Parallel()

	a := New(NewStd("a")).Category(CategoryDatabase).Build()
	b := New(NewStd("b")).Category(CategoryDatabase).Build()
	c := New(NewStd("c")).Category(CategoryFileIO).Build()

	assert.True(t, Is(a, b))
	assert.False(t, Is(a, c))
}

func TestCategoryDetection(t *testing.T) {
	t.Parallel()

	assert.Equal(t, CategoryNotFound, New(NewStd("image im01.png not found")).Component("x").Build().Category)
	assert.Equal(t, CategoryValidation, New(NewStd("invalid certainty")).Component("x").Build().Category)
	assert.Equal(t, CategoryDatabase, New(NewStd("constraint failed")).Component("datastore").Build().Category)

	inner := New(NewStd("boom")).Category(CategoryFileParsing).Build()
	assert.Equal(t, CategoryFileParsing, New(fmt.Errorf("wrap: %w", inner)).Component("x").Build().Category)
}

func TestScrubMessage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		in      string
		absent  string
		present string
	}{
		{"url query", "GET https://results.example.com/api?key=secret failed", "secret", "?[REDACTED]"},
		{"json token", `record {"q-token":"Zx81-abc"} rejected`, "Zx81-abc", "[REDACTED]"},
		{"dsn password", "dial surveys:hunter2@tcp(db:3306)/surveys", "hunter2", "surveys:[REDACTED]@tcp("},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			out := scrubMessage(tt.in)
			assert.NotContains(t, out, tt.absent)
			assert.Contains(t, out, tt.present)
		})
	}
}

func TestTelemetryReporting(t *testing.T) {
	reporter := &recordingReporter{}
	SetTelemetryReporter(reporter)
	t.Cleanup(func() { SetTelemetryReporter(nil) })

	ee := New(NewStd("store unavailable")).Category(CategoryDatabase).Build()

	require.Len(t, reporter.reported, 1)
	assert.Same(t, ee, reporter.reported[0])
	assert.Equal(t, "Database Error", formatCategoryForTitle(ee.Category))
}
