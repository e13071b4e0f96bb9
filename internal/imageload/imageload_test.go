package imageload

import (
	"bytes"
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

func init() {
	datastore.SetLogger(logger.NewDiscardLogger())
	SetLogger(logger.NewDiscardLogger())
}

func newStore(t *testing.T) datastore.Interface {
	t.Helper()
	settings := conf.NewTestSettings(t.TempDir())
	store := datastore.New(settings)
	require.NoError(t, store.Open())
	t.Cleanup(func() { assert.NoError(t, store.Close()) })
	require.NoError(t, datastore.SeedDiseases(context.Background(), store, settings.Diseases))
	return store
}

// writeTree creates empty files at the given relative paths
func writeTree(t *testing.T, root string, paths ...string) {
	t.Helper()
	for _, p := range paths {
		full := filepath.Join(root, p)
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, nil, 0o600))
	}
}

func TestScan(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeTree(t, root,
		"drive/21_training.png",
		"drive/masks/21_training_unet_drive.PNG",
		"stare/im0001.png",
		"stare/notes.txt",
	)

	images, err := Scan(root, "png")
	require.NoError(t, err)
	require.Len(t, images, 3)

	assert.Equal(t, "21_training.png", images[0].Filename)
	assert.Equal(t, "21_training", images[0].Name)
	assert.Equal(t, "drive", images[0].Dataset)
	assert.Equal(t, "masks", images[1].Dataset)
	assert.Equal(t, filepath.Join(root, "stare", "im0001.png"), images[2].Path())

	_, err = Scan(filepath.Join(root, "drive", "21_training.png"), ".png")
	assert.True(t, errors.IsConfiguration(err))
}

func TestLoadDirectorySkipsDuplicates(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	root := t.TempDir()
	writeTree(t, root, "a/01.png", "b/01.png", "a/02.png")

	var logs bytes.Buffer
	loader := New(store, logger.NewTextLogger(&logs, logger.LogLevelWarn))

	report, err := loader.LoadDirectory(ctx, root, ".png", nil)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Found)
	assert.Equal(t, 2, report.Added)
	assert.Equal(t, 1, report.Skipped)
	assert.Contains(t, logs.String(), "duplicate filename in directory")

	report, err = loader.LoadDirectory(ctx, root, ".png", nil)
	require.NoError(t, err)
	assert.Zero(t, report.Added, "loading again adds nothing")
	assert.Equal(t, 3, report.Skipped)

	counts, err := store.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), counts.Images)
}

func TestLoadDirectoryWithMetadata(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	root := t.TempDir()
	writeTree(t, root, "drive/21_training.png", "drive/21_training_unet_drive.png")

	metaPath := filepath.Join(t.TempDir(), "metadata.yaml")
	require.NoError(t, os.WriteFile(metaPath, []byte(`
- filename: 21_training.png
  type: original
  diseases: [diabetic_retinopathy]
- filename: 21_training_unet_drive.png
  type: segmentation
  group: 4
- filename: 99_unknown.png
  type: original
`), 0o600))

	metadata, err := ReadMetadata(metaPath)
	require.NoError(t, err)
	require.Len(t, metadata, 3)

	report, err := New(store, nil).LoadDirectory(ctx, root, ".png", metadata)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Updated)
	assert.Equal(t, []string{"99_unknown.png"}, report.Missing)

	original, err := store.GetImageByFilename(ctx, "21_training.png")
	require.NoError(t, err)
	assert.Equal(t, datastore.ImageTypeOriginal, original.Type)
	require.Len(t, original.Diseases, 1)
	assert.Equal(t, "diabetic_retinopathy", original.Diseases[0].Token)

	mask, err := store.GetImageByFilename(ctx, "21_training_unet_drive.png")
	require.NoError(t, err)
	require.NotNil(t, mask.GroupID)
	assert.Equal(t, 4, *mask.GroupID)

	ref, err := store.FindOriginalForSegmentationMask(ctx, mask)
	require.NoError(t, err)
	assert.Equal(t, original.ID, ref.ID)
}

func TestApplyMetadataRollsBackOnUnknownDisease(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	root := t.TempDir()
	writeTree(t, root, "01.png", "02.png")

	loader := New(store, nil)
	_, err := loader.LoadDirectory(ctx, root, ".png", nil)
	require.NoError(t, err)

	group := 1
	_, err = loader.ApplyMetadata(ctx, []Metadata{
		{Filename: "01.png", Type: datastore.ImageTypeSegmentation, Group: &group},
		{Filename: "02.png", Type: datastore.ImageTypeOriginal, Diseases: []string{"scurvy"}},
	})
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))

	img, err := store.GetImageByFilename(ctx, "01.png")
	require.NoError(t, err)
	assert.Nil(t, img.GroupID, "first update rolled back")
}

func TestReadMetadataErrors(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	_, err := ReadMetadata(filepath.Join(dir, "missing.yaml"))
	assert.True(t, errors.IsCategory(err, errors.CategoryFileIO))

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("filename: [unclosed"), 0o600))
	_, err = ReadMetadata(bad)
	assert.True(t, errors.IsCategory(err, errors.CategoryFileParsing))

	json := filepath.Join(dir, "meta.json")
	require.NoError(t, os.WriteFile(json, []byte(`[{"filename": "01.png", "type": "segmentation", "group": 2}]`), 0o600))
	entries, err := ReadMetadata(json)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 2, *entries[0].Group)
}

func TestMetadataValidation(t *testing.T) {
	t.Parallel()
	assert.Error(t, (&Metadata{Type: datastore.ImageTypeOriginal}).validate())
	assert.Error(t, (&Metadata{Filename: "01.png", Type: "thumbnail"}).validate())
	assert.NoError(t, (&Metadata{Filename: "01.png", Type: datastore.ImageTypeSegmentation}).validate())
}
