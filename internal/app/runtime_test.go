package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/surveygen/internal/conf"
	"github.com/tphakala/surveygen/internal/datastore"
	"github.com/tphakala/surveygen/internal/errors"
	"github.com/tphakala/surveygen/internal/logger"
)

func TestRuntimeLifecycle(t *testing.T) {
	t.Cleanup(func() { logger.SetGlobal(logger.NewDiscardLogger()) })

	dir := t.TempDir()
	settings := conf.NewTestSettings(dir)
	settings.Logging = conf.LoggingSettings{Level: "debug", File: filepath.Join(dir, "logs", "surveygen.log")}
	settings.Metrics.TextFile = filepath.Join(dir, "surveygen.prom")

	rt, err := Setup(settings)
	require.NoError(t, err)
	assert.False(t, rt.Notifier.Enabled())

	store, err := rt.Store()
	require.NoError(t, err)
	again, err := rt.Store()
	require.NoError(t, err)
	assert.Same(t, store, again)

	rt.Metrics.Generation.RecordSurvey(conf.SurveyTypeRegular, 20, false)
	require.NoError(t, rt.Close())

	data, err := os.ReadFile(settings.Metrics.TextFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "surveys_generated_total")
	assert.FileExists(t, settings.Logging.File)
}

func TestSetupRejectsInvalidNotificationURL(t *testing.T) {
	t.Cleanup(func() { logger.SetGlobal(logger.NewDiscardLogger()) })

	settings := conf.NewTestSettings(t.TempDir())
	settings.Notification.URLs = []string{"notaservice://x"}

	_, err := Setup(settings)
	require.Error(t, err)
	assert.True(t, errors.IsConfiguration(err))
}

func TestRunClosesRuntime(t *testing.T) {
	t.Cleanup(func() { logger.SetGlobal(logger.NewDiscardLogger()) })

	dir := t.TempDir()
	settings := conf.NewTestSettings(dir)
	settings.Metrics.TextFile = filepath.Join(dir, "run.prom")

	var seen *Runtime
	err := Run(settings, func(ctx context.Context, rt *Runtime) error {
		seen = rt
		store, err := rt.Store()
		if err != nil {
			return err
		}
		_, err = store.Counts(ctx)
		return err
	})
	require.NoError(t, err)
	require.NotNil(t, seen)
	assert.FileExists(t, settings.Metrics.TextFile)

	failure := errors.NewStd("boom")
	err = Run(settings, func(context.Context, *Runtime) error { return failure })
	assert.ErrorIs(t, err, failure)
}

func TestRendererFactory(t *testing.T) {
	settings := conf.NewTestSettings(t.TempDir())
	r, err := Renderer(settings)([]datastore.Disease{{ID: 1, Token: "glaucoma", Name: "Glaukom"}})
	require.NoError(t, err)
	assert.NotNil(t, r)
}
