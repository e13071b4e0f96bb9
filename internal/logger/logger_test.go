package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestSlogLoggerJSONOutput(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := NewSlogLogger(&buf, LogLevelDebug, time.UTC).Module("surveygen").Module("engine")

	log.With(String("run_id", "r-1")).Info("survey committed",
		Uint64("survey_id", 7),
		Int("questions", 20),
		Bool("partial", false))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, "survey committed", entry["msg"])
	assert.Equal(t, "surveygen.engine", entry["module"])
	assert.Equal(t, "r-1", entry["run_id"])
	assert.InDelta(t, 7, entry["survey_id"], 0)
	assert.Equal(t, false, entry["partial"])
}

func TestLevelFiltering(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := NewTextLogger(&buf, LogLevelWarn)

	log.Debug("hidden")
	log.Info("hidden too")
	log.Warn("survey under-filled", Int("assigned", 5), Int("quota", 20))
	log.Trace("never")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.NotContains(t, out, "never")
	assert.Contains(t, out, "WARN")
	assert.Contains(t, out, "survey under-filled assigned=5 quota=20")
}

func TestTraceLevelName(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	NewSlogLogger(&buf, LogLevelTrace, nil).Trace("sql query")
	assert.Contains(t, buf.String(), `"level":"TRACE"`)
}

func TestWithContextTraceID(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := NewTextLogger(&buf, LogLevelInfo).Module("results")

	ctx := WithTraceID(context.Background(), "abc-123")
	log.WithContext(ctx).Info("record ingested")
	log.WithContext(context.Background()).Info("plain")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "[results] record ingested trace_id=abc-123")
	assert.NotContains(t, lines[1], "trace_id")
}

func TestErrorField(t *testing.T) {
	t.Parallel()

	assert.Equal(t, Field{Key: "error", Value: nil}, Error(nil))
	assert.Equal(t, Field{Key: "error", Value: "file does not exist"}, Error(os.ErrNotExist))
}

func TestCentralLoggerWritesFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "logs", "surveygen.log")
	cl, err := NewCentralLogger(Config{Level: "debug", File: path, Timezone: "UTC"})
	require.NoError(t, err)

	cl.Module("export").Debug("survey written", String("file", "survey-1.json"))
	require.NoError(t, cl.Logger().Flush())
	require.NoError(t, cl.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"module":"export"`)
	assert.Contains(t, string(data), `"file":"survey-1.json"`)
}

func TestCentralLoggerRejectsBadTimezone(t *testing.T) {
	t.Parallel()

	_, err := NewCentralLogger(Config{Timezone: "Mars/Olympus"})
	require.Error(t, err)
}

func TestGormAdapterTrace(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	adapter := NewGormLoggerAdapter(NewTextLogger(&buf, LogLevelTrace), 50*time.Millisecond)
	fc := func() (string, int64) { return "SELECT 1", 1 }

	adapter.Trace(context.Background(), time.Now(), fc, nil)
	adapter.Trace(context.Background(), time.Now(), fc, gorm.ErrRecordNotFound)
	adapter.Trace(context.Background(), time.Now().Add(-time.Second), fc, nil)
	adapter.Trace(context.Background(), time.Now(), fc, assert.AnError)

	out := buf.String()
	assert.Equal(t, 2, strings.Count(out, "sql query"))
	assert.Contains(t, out, "slow query")
	assert.Contains(t, out, "query error")
}
