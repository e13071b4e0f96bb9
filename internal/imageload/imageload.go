// Package imageload registers image files and their metadata in the store.
package imageload

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/tphakala/surveygen/internal/datastore"
	"github.com/tphakala/surveygen/internal/errors"
	"github.com/tphakala/surveygen/internal/logger"
)

// Metadata describes one image in a metadata file
type Metadata struct {
	Filename string   `yaml:"filename" json:"filename"`
	Group    *int     `yaml:"group,omitempty" json:"group,omitempty"`
	Type     string   `yaml:"type" json:"type"`
	Diseases []string `yaml:"diseases,omitempty" json:"diseases,omitempty"`
}

// Report summarizes a load
type Report struct {
	Found   int
	Added   int
	Skipped int
	Updated int
	Missing []string
}

// Loader scans directories for images
type Loader struct {
	store datastore.Store
	log   logger.Logger
}

// New creates a loader writing to store
func New(store datastore.Store, log logger.Logger) *Loader {
	if log == nil {
		log = GetLogger()
	}
	return &Loader{store: store, log: log}
}

// Scan walks dir recursively and returns the images with the given extension.
// Every image keeps the directory it was found in as its root.
func Scan(dir, extension string) ([]*datastore.Image, error) {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, errors.ConfigurationError("imageload", "directory", dir, "%s is not a directory", dir)
	}
	ext := normalizeExtension(extension)

	var images []*datastore.Image
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(path), ext) {
			return nil
		}
		images = append(images, datastore.NewImage(filepath.Dir(path), d.Name()))
		return nil
	})
	if err != nil {
		return nil, errors.New(err).
			Component("imageload").
			Category(errors.CategoryFileIO).
			Context("directory", dir).
			Build()
	}
	slices.SortFunc(images, func(a, b *datastore.Image) int { return strings.Compare(a.Path(), b.Path()) })
	return images, nil
}

func normalizeExtension(ext string) string {
	ext = strings.TrimSpace(ext)
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

// LoadDirectory stores every image found under dir in one transaction.
// Filenames already in the store, or seen earlier in the scan, are skipped with a warning.
// When metadata is given it is applied in the same transaction.
func (l *Loader) LoadDirectory(ctx context.Context, dir, extension string, metadata []Metadata) (Report, error) {
	images, err := Scan(dir, extension)
	if err != nil {
		return Report{}, err
	}
	report := Report{Found: len(images)}

	err = l.store.Transaction(ctx, func(tx datastore.Store) error {
		seen := make(map[string]struct{}, len(images))
		var fresh []*datastore.Image

		for _, img := range images {
			if _, dup := seen[img.Filename]; dup {
				l.skip(&report, img, "duplicate filename in directory")
				continue
			}
			seen[img.Filename] = struct{}{}

			_, err := tx.GetImageByFilename(ctx, img.Filename)
			switch {
			case err == nil:
				l.skip(&report, img, "image already loaded")
				continue
			case !errors.IsNotFound(err):
				return err
			}
			fresh = append(fresh, img)
		}

		if err := tx.SaveImages(ctx, fresh); err != nil {
			return err
		}
		report.Added = len(fresh)

		if len(metadata) > 0 {
			return l.applyMetadata(ctx, tx, metadata, &report)
		}
		return nil
	})
	if err != nil {
		return Report{}, err
	}

	l.log.Info("images loaded",
		logger.String("directory", dir),
		logger.Int("found", report.Found),
		logger.Int("added", report.Added),
		logger.Int("skipped", report.Skipped),
		logger.Int("updated", report.Updated))
	return report, nil
}

func (l *Loader) skip(report *Report, img *datastore.Image, reason string) {
	report.Skipped++
	l.log.Warn("skipping image",
		logger.String("filename", img.Filename),
		logger.String("path", img.Path()),
		logger.String("reason", reason))
}

// ApplyMetadata updates group, type and diseases of images already in the store
func (l *Loader) ApplyMetadata(ctx context.Context, metadata []Metadata) (Report, error) {
	var report Report
	err := l.store.Transaction(ctx, func(tx datastore.Store) error {
		return l.applyMetadata(ctx, tx, metadata, &report)
	})
	if err != nil {
		return Report{}, err
	}
	l.log.Info("image metadata applied",
		logger.Int("updated", report.Updated),
		logger.Int("missing", len(report.Missing)))
	return report, nil
}

func (l *Loader) applyMetadata(ctx context.Context, tx datastore.Store, metadata []Metadata, report *Report) error {
	for i := range metadata {
		entry := &metadata[i]
		if err := entry.validate(); err != nil {
			return err
		}

		img, err := tx.GetImageByFilename(ctx, entry.Filename)
		if errors.IsNotFound(err) {
			report.Missing = append(report.Missing, entry.Filename)
			l.log.Warn("metadata for unknown image", logger.String("filename", entry.Filename))
			continue
		}
		if err != nil {
			return err
		}

		img.Type = entry.Type
		img.GroupID = entry.Group
		if err := tx.UpdateImageMetadata(ctx, img, entry.Diseases); err != nil {
			return err
		}
		report.Updated++
	}
	return nil
}

func (m *Metadata) validate() error {
	if m.Filename == "" {
		return errors.Newf("metadata entry without filename").
			Component("imageload").
			Category(errors.CategoryValidation).
			Build()
	}
	switch m.Type {
	case datastore.ImageTypeOriginal, datastore.ImageTypeSegmentation:
	default:
		return errors.Newf("image %s has unknown type %q", m.Filename, m.Type).
			Component("imageload").
			Category(errors.CategoryValidation).
			Context("filename", m.Filename).
			Context("type", m.Type).
			Build()
	}
	return nil
}

// ReadMetadata parses a YAML or JSON list of image metadata entries
func ReadMetadata(path string) ([]Metadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New(err).
			Component("imageload").
			Category(errors.CategoryFileIO).
			Context("path", path).
			Build()
	}

	var entries []Metadata
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, errors.New(err).
			Component("imageload").
			Category(errors.CategoryFileParsing).
			Context("path", path).
			Build()
	}
	return entries, nil
}

var packageLogger logger.Logger

// GetLogger returns the imageload module logger
func GetLogger() logger.Logger {
	if packageLogger == nil {
		return logger.Global().Module("imageload")
	}
	return packageLogger
}

// SetLogger replaces the imageload module logger
func SetLogger(l logger.Logger) {
	packageLogger = l
}
