// Package questions generates survey questions from the loaded images.
package questions

import (
	"context"
	"fmt"
	"math/rand/v2"
	"slices"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/tphakala/surveygen/internal/conf"
	"github.com/tphakala/surveygen/internal/datastore"
	"github.com/tphakala/surveygen/internal/errors"
	"github.com/tphakala/surveygen/internal/logger"
	"github.com/tphakala/surveygen/internal/observability/metrics"
	"github.com/tphakala/surveygen/internal/pairing"
	"github.com/tphakala/surveygen/internal/render"
)

// Options selects what to generate
type Options struct {
	Kinds             []datastore.QuestionKind
	RedundancyPercent float64
	Multiplier        int
	Rand              *rand.Rand
}

// OptionsFromSettings reads generation defaults from configuration
func OptionsFromSettings(settings *conf.Settings) (Options, error) {
	kinds, err := ParseKinds(settings.Generation.QuestionTypes)
	if err != nil {
		return Options{}, err
	}
	return Options{
		Kinds:             kinds,
		RedundancyPercent: settings.Generation.RedundancyPercent,
		Multiplier:        settings.Generation.Multiplier,
	}, nil
}

// ParseKinds converts question type codes, rejecting unknown codes.
// Reserved codes are accepted here and rejected by the generators.
func ParseKinds(codes []int) ([]datastore.QuestionKind, error) {
	if len(codes) == 0 {
		return nil, errors.ConfigurationError("questions", "questiontypes", codes, "no question types requested")
	}
	kinds := make([]datastore.QuestionKind, 0, len(codes))
	for _, code := range codes {
		if !slices.Contains(conf.ValidQuestionTypes, code) {
			return nil, errors.ConfigurationError("questions", "questiontypes", code,
				"question type can be one of %v but %d was requested", conf.ValidQuestionTypes, code)
		}
		kind := datastore.QuestionKind(code)
		if !slices.Contains(kinds, kind) {
			kinds = append(kinds, kind)
		}
	}
	return kinds, nil
}

// Report summarizes a generation run
type Report struct {
	RunID  string
	ByKind map[datastore.QuestionKind]int
	// EmptyGroups lists image groups that had fewer than two comparable images
	EmptyGroups []int
}

// Total returns the number of generated questions
func (r Report) Total() int {
	total := 0
	for _, n := range r.ByKind {
		total += n
	}
	return total
}

// Generator creates questions and stores them with their rendered fragment
type Generator struct {
	store   datastore.Store
	render  RendererFactory
	metrics *metrics.GenerationMetrics
	log     logger.Logger
}

// RendererFactory builds a renderer for the diseases known to the store
type RendererFactory func(diseases []datastore.Disease) (*render.Renderer, error)

// NewGenerator creates a question generator
func NewGenerator(store datastore.Store, factory RendererFactory, m *metrics.GenerationMetrics, log logger.Logger) *Generator {
	if log == nil {
		log = GetLogger()
	}
	return &Generator{store: store, render: factory, metrics: m, log: log}
}

// Generate creates questions of every requested kind in a single transaction.
// Questions are inserted first so their ids can be embedded in the rendered fragment.
// Every run adds new questions, even for images that already have some.
func (g *Generator) Generate(ctx context.Context, opts Options) (Report, error) {
	report := Report{RunID: uuid.NewString(), ByKind: map[datastore.QuestionKind]int{}}
	log := g.log.With(logger.String("run_id", report.RunID))
	start := time.Now()

	for _, kind := range opts.Kinds {
		switch kind {
		case datastore.QuestionDiagnosis:
		case datastore.QuestionComparison:
			if err := (pairing.Options{RedundancyPercent: opts.RedundancyPercent, Multiplier: opts.Multiplier}).Validate(); err != nil {
				return report, err
			}
		case datastore.QuestionReserved:
			return report, render.UnsupportedKindError(kind)
		default:
			return report, errors.ConfigurationError("questions", "questiontypes", int(kind), "unknown question type %d", kind)
		}
	}

	log.Info("generating questions", logger.Any("types", opts.Kinds))

	err := g.store.Transaction(ctx, func(tx datastore.Store) error {
		diseases, err := tx.ListDiseases(ctx)
		if err != nil {
			return err
		}
		renderer, err := g.render(diseases)
		if err != nil {
			return err
		}

		for _, kind := range opts.Kinds {
			var questions []*datastore.Question
			switch kind {
			case datastore.QuestionDiagnosis:
				questions, err = g.diagnosisQuestions(ctx, tx)
			case datastore.QuestionComparison:
				questions, err = g.comparisonQuestions(ctx, tx, opts, &report, log)
			}
			if err != nil {
				return err
			}

			if err := tx.SaveQuestions(ctx, questions); err != nil {
				return err
			}
			for _, q := range questions {
				if q.Content, err = renderer.QuestionFragment(q, 0); err != nil {
					return err
				}
				if err := tx.SaveQuestion(ctx, q); err != nil {
					return err
				}
			}

			report.ByKind[kind] = len(questions)
			log.Info("generated questions",
				logger.Int("type", int(kind)),
				logger.Int("count", len(questions)))
		}
		return nil
	})
	if err != nil {
		return Report{RunID: report.RunID, ByKind: map[datastore.QuestionKind]int{}}, err
	}

	for kind, n := range report.ByKind {
		g.metrics.RecordQuestionsGenerated(strconv.Itoa(int(kind)), n)
	}
	g.metrics.RecordRunDuration("questions", time.Since(start).Seconds())
	return report, nil
}

// diagnosisQuestions creates one question for every image that is not a segmentation mask
func (g *Generator) diagnosisQuestions(ctx context.Context, tx datastore.Store) ([]*datastore.Question, error) {
	images, err := tx.ListImages(ctx, datastore.ImageTypeSegmentation)
	if err != nil {
		return nil, err
	}
	questions := make([]*datastore.Question, 0, len(images))
	for i := range images {
		img := &images[i]
		questions = append(questions, &datastore.Question{
			Kind:    datastore.QuestionDiagnosis,
			ImageID: &img.ID,
			Image:   img,
		})
	}
	return questions, nil
}

// comparisonQuestions pairs the masks of every image group between the smallest and largest group id
func (g *Generator) comparisonQuestions(ctx context.Context, tx datastore.Store, opts Options, report *Report, log logger.Logger) ([]*datastore.Question, error) {
	minGroup, err := tx.MinGroupID(ctx)
	if err != nil {
		return nil, err
	}
	if minGroup == nil {
		log.Warn("no image groups found, skipping comparison questions")
		return nil, nil
	}
	maxGroup, err := tx.MaxGroupID(ctx)
	if err != nil {
		return nil, err
	}

	pairs := pairing.NewGenerator(tx, log.Module("pairing"))
	pairOpts := pairing.Options{
		RedundancyPercent: opts.RedundancyPercent,
		Multiplier:        opts.Multiplier,
		Rand:              opts.Rand,
	}

	var questions []*datastore.Question
	for groupID := *minGroup; groupID <= maxGroup; groupID++ {
		group, err := tx.FindImageGroup(ctx, groupID)
		if err != nil {
			return nil, err
		}
		if group == nil {
			continue
		}

		generated, err := pairs.Generate(ctx, groupID, group, pairOpts)
		if err != nil {
			return nil, fmt.Errorf("image group %d: %w", groupID, err)
		}
		if len(generated) == 0 {
			report.EmptyGroups = append(report.EmptyGroups, groupID)
			log.Warn("image group has fewer than two images to compare",
				logger.Int("group_id", groupID),
				logger.Int("images", len(group)))
			continue
		}
		questions = append(questions, generated...)
	}
	return questions, nil
}

var packageLogger logger.Logger

// GetLogger returns the questions module logger
func GetLogger() logger.Logger {
	if packageLogger == nil {
		return logger.Global().Module("questions")
	}
	return packageLogger
}

// SetLogger replaces the questions module logger
func SetLogger(l logger.Logger) {
	packageLogger = l
}
