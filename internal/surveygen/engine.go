// Package surveygen packs generated questions into surveys.
package surveygen

import (
	"context"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/tphakala/surveygen/internal/conf"
	"github.com/tphakala/surveygen/internal/datastore"
	"github.com/tphakala/surveygen/internal/errors"
	"github.com/tphakala/surveygen/internal/logger"
	"github.com/tphakala/surveygen/internal/observability/metrics"
	"github.com/tphakala/surveygen/internal/render"
	"github.com/tphakala/surveygen/internal/shuffle"
)

// State is a step of the survey assignment cycle
type State int

const (
	StateSelecting State = iota
	StateEmpty
	StateFilling
	StateCommitted
	StateDone
)

func (s State) String() string {
	switch s {
	case StateSelecting:
		return "selecting"
	case StateEmpty:
		return "empty"
	case StateFilling:
		return "filling"
	case StateCommitted:
		return "committed"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

// Config controls one assignment run
type Config struct {
	SurveyType    datastore.SurveyKind
	QuestionTypes []datastore.QuestionKind
	// Quota is the number of questions per survey
	Quota int
	// MaxSurveys limits the surveys created by a run, 0 means no limit
	MaxSurveys int
	AuthPage   bool
	// Rand drives pool shuffling, nil uses the shared source
	Rand *rand.Rand
}

// ConfigFromSettings reads the assignment configuration from settings
func ConfigFromSettings(settings *conf.Settings) Config {
	cfg := Config{
		SurveyType: datastore.SurveyKind(settings.Generation.SurveyType),
		Quota:      settings.Generation.QuestionsPerSurvey,
		MaxSurveys: settings.Generation.MaxSurveys,
		AuthPage:   settings.Generation.AuthPage,
	}
	for _, qt := range settings.Generation.QuestionTypes {
		cfg.QuestionTypes = append(cfg.QuestionTypes, datastore.QuestionKind(qt))
	}
	return cfg
}

func (c *Config) validate() error {
	switch c.SurveyType {
	case datastore.SurveyRegular, datastore.SurveyControl:
	default:
		return errors.ConfigurationError("surveygen", "surveytype", c.SurveyType,
			"survey type must be %q or %q", datastore.SurveyRegular, datastore.SurveyControl)
	}
	if len(c.QuestionTypes) == 0 {
		return errors.ConfigurationError("surveygen", "questiontypes", c.QuestionTypes, "no question types requested")
	}
	for _, qt := range c.QuestionTypes {
		if !slices.Contains(conf.ValidQuestionTypes, int(qt)) {
			return errors.ConfigurationError("surveygen", "questiontypes", int(qt),
				"question type can be one of %v but %d was requested", conf.ValidQuestionTypes, qt)
		}
	}
	if c.Quota <= 0 {
		return errors.ConfigurationError("surveygen", "questionspersurvey", c.Quota,
			"number of questions per survey must be positive")
	}
	if c.MaxSurveys < 0 {
		return errors.ConfigurationError("surveygen", "maxsurveys", c.MaxSurveys,
			"maximum number of surveys cannot be negative")
	}
	return nil
}

// SurveyReport describes one committed survey
type SurveyReport struct {
	ID          uint
	Size        int
	Underfilled bool
}

// Report summarizes an assignment run
type Report struct {
	RunID   string
	Surveys []SurveyReport
}

// IDs returns the ids of the committed surveys in creation order
func (r Report) IDs() []uint {
	ids := make([]uint, len(r.Surveys))
	for i, s := range r.Surveys {
		ids[i] = s.ID
	}
	return ids
}

// Sizes returns the number of questions of every committed survey
func (r Report) Sizes() []int {
	sizes := make([]int, len(r.Surveys))
	for i, s := range r.Surveys {
		sizes[i] = s.Size
	}
	return sizes
}

// RendererFactory builds a renderer for the diseases known to the store
type RendererFactory func(diseases []datastore.Disease) (*render.Renderer, error)

// Engine assigns unowned questions to new surveys until the pool is exhausted
type Engine struct {
	store   datastore.Store
	render  RendererFactory
	cfg     Config
	metrics *metrics.GenerationMetrics
	log     logger.Logger
	state   State
}

// New validates cfg and creates an engine
func New(store datastore.Store, factory RendererFactory, cfg Config, m *metrics.GenerationMetrics, log logger.Logger) (*Engine, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = GetLogger()
	}
	return &Engine{store: store, render: factory, cfg: cfg, metrics: m, log: log, state: StateSelecting}, nil
}

// State returns the current state of the engine
func (e *Engine) State() State {
	return e.state
}

func (e *Engine) transition(to State, log logger.Logger) {
	log.Trace("state transition",
		logger.String("from", e.state.String()),
		logger.String("to", to.String()))
	e.state = to
}

// Run creates surveys until no eligible question is left or the survey limit is reached.
// Every survey is committed in its own transaction; a failing cycle is rolled back and ends the run.
func (e *Engine) Run(ctx context.Context) (Report, error) {
	report := Report{RunID: uuid.NewString()}
	log := e.log.With(
		logger.String("run_id", report.RunID),
		logger.String("survey_type", string(e.cfg.SurveyType)))
	start := time.Now()
	defer func() { e.metrics.RecordRunDuration("surveys", time.Since(start).Seconds()) }()

	diseases, err := e.store.ListDiseases(ctx)
	if err != nil {
		return report, err
	}
	renderer, err := e.render(diseases)
	if err != nil {
		return report, err
	}

	remaining := e.cfg.MaxSurveys
	e.state = StateSelecting

	for e.state != StateDone {
		if err := ctx.Err(); err != nil {
			return report, errors.New(err).
				Component("surveygen").
				Category(errors.CategoryCancellation).
				Context("surveys_committed", len(report.Surveys)).
				Build()
		}

		if e.cfg.MaxSurveys > 0 && remaining == 0 {
			log.Info("survey limit reached", logger.Int("max_surveys", e.cfg.MaxSurveys))
			e.transition(StateDone, log)
			break
		}

		var committed *SurveyReport
		err := e.store.Transaction(ctx, func(tx datastore.Store) error {
			var cycleErr error
			committed, cycleErr = e.cycle(ctx, tx, renderer, log)
			return cycleErr
		})
		if err != nil {
			e.state = StateSelecting
			log.Error("survey generation failed", logger.Error(err))
			return report, err
		}

		if committed == nil {
			e.transition(StateDone, log)
			continue
		}

		report.Surveys = append(report.Surveys, *committed)
		e.metrics.RecordSurvey(string(e.cfg.SurveyType), committed.Size, committed.Underfilled)
		remaining--
		e.transition(StateSelecting, log)
	}

	log.Info("survey generation finished", logger.Int("surveys", len(report.Surveys)))
	return report, nil
}

// cycle runs SELECTING to COMMITTED once. It returns nil when the pool is empty.
func (e *Engine) cycle(ctx context.Context, tx datastore.Store, renderer *render.Renderer, log logger.Logger) (*SurveyReport, error) {
	pool, err := e.pool(ctx, tx)
	if err != nil {
		return nil, err
	}
	if len(pool) == 0 {
		e.transition(StateEmpty, log)
		log.Info("no eligible questions left")
		return nil, nil
	}

	e.transition(StateFilling, log)
	survey := &datastore.Survey{Kind: e.cfg.SurveyType, AuthPage: e.cfg.AuthPage}
	if err := tx.SaveSurvey(ctx, survey); err != nil {
		return nil, err
	}

	shuffle.ShuffleWith(e.cfg.Rand, pool)
	selected := pool[:min(e.cfg.Quota, len(pool))]
	if err := tx.AssignQuestions(ctx, survey, selected); err != nil {
		return nil, err
	}

	underfilled := len(selected) < e.cfg.Quota
	if underfilled {
		log.Warn("survey has fewer questions than requested",
			logger.Uint64("survey_id", uint64(survey.ID)),
			logger.Int("questions", len(selected)),
			logger.Int("quota", e.cfg.Quota))
	}

	content, err := renderer.SurveyContent(survey, selected)
	if err != nil {
		return nil, err
	}
	survey.Content = content
	if err := tx.SaveSurvey(ctx, survey); err != nil {
		return nil, err
	}
	e.transition(StateCommitted, log)

	log.Info("survey committed",
		logger.Uint64("survey_id", uint64(survey.ID)),
		logger.Int("questions", len(selected)))
	return &SurveyReport{ID: survey.ID, Size: len(selected), Underfilled: underfilled}, nil
}

func (e *Engine) pool(ctx context.Context, tx datastore.Store) ([]datastore.Question, error) {
	if e.cfg.SurveyType == datastore.SurveyControl {
		return tx.FindQuestionsInRegularOnly(ctx, e.cfg.QuestionTypes)
	}
	return tx.FindUnassignedQuestions(ctx, e.cfg.QuestionTypes)
}

var packageLogger logger.Logger

// GetLogger returns the surveygen module logger
func GetLogger() logger.Logger {
	if packageLogger == nil {
		return logger.Global().Module("surveygen")
	}
	return packageLogger
}

// SetLogger replaces the surveygen module logger
func SetLogger(l logger.Logger) {
	packageLogger = l
}
