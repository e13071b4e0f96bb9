// Package export writes surveys to disk as SurveyJS JSON or stand-alone HTML documents.
package export

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tphakala/surveygen/internal/conf"
	"github.com/tphakala/surveygen/internal/datastore"
	"github.com/tphakala/surveygen/internal/errors"
	"github.com/tphakala/surveygen/internal/logger"
	"github.com/tphakala/surveygen/internal/observability/metrics"
)

const defaultConcurrency = 4

// Options selects the surveys to export and the output format
type Options struct {
	Directory   string
	Type        string
	SurveyType  datastore.SurveyKind
	Concurrency int
	Document    DocumentOptions
}

// OptionsFromSettings reads export options from configuration
func OptionsFromSettings(settings *conf.Settings) Options {
	lang, err := conf.NormalizeLocale(settings.Render.Locale)
	if err != nil {
		lang = conf.LocaleEnglish
	}
	return Options{
		Directory:   settings.Export.Directory,
		Type:        settings.Export.Type,
		SurveyType:  datastore.SurveyKind(settings.Generation.SurveyType),
		Concurrency: settings.Export.Concurrency,
		Document: DocumentOptions{
			Lang:       lang,
			Title:      settings.Render.Title,
			ResultsURL: settings.Export.ResultsURL,
		},
	}
}

func (o *Options) validate() error {
	if o.Type != conf.ExportJSON && o.Type != conf.ExportHTML {
		return errors.ConfigurationError("export", "type", o.Type,
			"cannot export surveys to %q, supported types are %q and %q", o.Type, conf.ExportJSON, conf.ExportHTML)
	}
	switch o.SurveyType {
	case datastore.SurveyRegular, datastore.SurveyControl:
	default:
		return errors.ConfigurationError("export", "surveytype", o.SurveyType,
			"survey type must be %q or %q", datastore.SurveyRegular, datastore.SurveyControl)
	}

	info, err := os.Stat(o.Directory)
	if err != nil || !info.IsDir() {
		return errors.ConfigurationError("export", "directory", o.Directory,
			"cannot export surveys to %s because it is not a directory", o.Directory)
	}

	if o.Concurrency <= 0 {
		o.Concurrency = defaultConcurrency
	}
	return nil
}

// Report lists the files written by an export
type Report struct {
	Files []string
	Bytes int
}

// Exporter writes the surveys of one type to a directory
type Exporter struct {
	store   datastore.Store
	opts    Options
	metrics *metrics.ExportMetrics
	log     logger.Logger
}

// New validates opts and creates an exporter
func New(store datastore.Store, opts Options, m *metrics.ExportMetrics, log logger.Logger) (*Exporter, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = GetLogger()
	}
	return &Exporter{store: store, opts: opts, metrics: m, log: log}, nil
}

// Export writes one file per survey, survey-<id>.<type>. Files are written
// concurrently; the first failure cancels the remaining writes.
func (e *Exporter) Export(ctx context.Context) (Report, error) {
	surveys, err := e.store.ListSurveys(ctx, e.opts.SurveyType)
	if err != nil {
		return Report{}, err
	}

	e.log.Info("exporting surveys",
		logger.String("directory", e.opts.Directory),
		logger.String("format", e.opts.Type),
		logger.Int("surveys", len(surveys)))

	var (
		mu     sync.Mutex
		report Report
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.Concurrency)

	for i := range surveys {
		survey := &surveys[i]
		g.Go(func() error {
			path, size, err := e.exportSurvey(gctx, survey)
			e.metrics.RecordExport(e.opts.Type, size, err)
			if err != nil {
				return err
			}

			mu.Lock()
			report.Files = append(report.Files, path)
			report.Bytes += size
			mu.Unlock()

			e.log.Debug("survey saved", logger.String("path", path))
			return nil
		})
	}

	err = g.Wait()
	slices.Sort(report.Files)
	if err != nil {
		return report, err
	}
	e.log.Info("export finished", logger.Int("files", len(report.Files)))
	return report, nil
}

func (e *Exporter) exportSurvey(ctx context.Context, survey *datastore.Survey) (string, int, error) {
	if err := ctx.Err(); err != nil {
		return "", 0, err
	}

	content := []byte(survey.Content)
	if e.opts.Type == conf.ExportHTML {
		questions, err := e.store.SurveyQuestions(ctx, survey)
		if err != nil {
			return "", 0, err
		}
		if content, err = Document(survey, questions, e.opts.Document); err != nil {
			return "", 0, err
		}
	}

	path := filepath.Join(e.opts.Directory, survey.Filename(e.opts.Type))
	start := time.Now()
	if err := writeFileAtomic(path, content); err != nil {
		return "", 0, errors.New(err).
			Component("export").
			Category(errors.CategoryFileIO).
			Context("survey_id", survey.ID).
			Context("path", path).
			Timing("write_survey", time.Since(start)).
			Build()
	}
	return path, len(content), nil
}

// writeFileAtomic writes data to a temporary file in the target directory and renames it into place
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil { //nolint:gosec // exported surveys are published files
		return err
	}
	return os.Rename(tmp.Name(), path)
}

var packageLogger logger.Logger

// GetLogger returns the export module logger
func GetLogger() logger.Logger {
	if packageLogger == nil {
		return logger.Global().Module("export")
	}
	return packageLogger
}

// SetLogger replaces the export module logger
func SetLogger(l logger.Logger) {
	packageLogger = l
}
