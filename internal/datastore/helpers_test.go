package datastore

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/surveygen/internal/conf"
	"github.com/tphakala/surveygen/internal/logger"
)

func init() {
	SetLogger(logger.NewDiscardLogger())
}

// createDatabase opens a fresh SQLite store in a temporary directory
func createDatabase(t *testing.T, settings *conf.Settings) Interface {
	t.Helper()
	dataStore := New(settings)
	require.NoError(t, dataStore.Open(), "Failed to open database")
	t.Cleanup(func() { assert.NoError(t, dataStore.Close(), "Failed to close datastore") })
	return dataStore
}

func newTestStore(t *testing.T) Interface {
	t.Helper()
	store := createDatabase(t, conf.NewTestSettings(t.TempDir()))
	require.NoError(t, SeedDiseases(context.Background(), store, conf.DefaultDiseases))
	return store
}

// saveImage stores an image with its group and type
func saveImage(t *testing.T, store Store, filename, imageType string, group int, diseases ...string) *Image {
	t.Helper()
	ctx := context.Background()

	image := NewImage("/data/drive", filename)
	require.NoError(t, store.SaveImages(ctx, []*Image{image}))

	image.Type = imageType
	if group > 0 {
		image.GroupID = &group
	}
	require.NoError(t, store.UpdateImageMetadata(ctx, image, diseases))
	return image
}

// saveQuestions stores n diagnosis questions for one image
func saveQuestions(t *testing.T, store Store, n int, kind QuestionKind) []*Question {
	t.Helper()
	image := saveImage(t, store, fmt.Sprintf("q_%s_%d.tif", t.Name(), kind), ImageTypeOriginal, 0)

	questions := make([]*Question, n)
	for i := range questions {
		questions[i] = &Question{Kind: kind, ImageID: &image.ID, Content: "<p>question</p>"}
	}
	require.NoError(t, store.SaveQuestions(context.Background(), questions))
	return questions
}
