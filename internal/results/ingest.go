// Package results loads submitted survey answers into the store.
package results

import (
	"context"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/antonholmquist/jason"
	"github.com/patrickmn/go-cache"

	"github.com/tphakala/surveygen/internal/datastore"
	"github.com/tphakala/surveygen/internal/errors"
	"github.com/tphakala/surveygen/internal/logger"
	"github.com/tphakala/surveygen/internal/observability/metrics"
)

const (
	tokenField   = "q-token"
	choiceNone   = "none"
	certaintyMin = 0
	certaintyMax = 7

	lookupExpiration = 10 * time.Minute
	lookupCleanup    = 2 * lookupExpiration
)

// fieldPattern matches answer keys such as "s12-q345-choice"
var fieldPattern = regexp.MustCompile(`^s(\d+)-q(\d+)-(choice|certainty)$`)

// Report summarizes an ingestion run
type Report struct {
	Records int
	Failed  int
	Answers int
}

// recordError attaches the metric reason to a record failure
type recordError struct {
	reason string
	err    error
}

func (e *recordError) Error() string { return e.err.Error() }
func (e *recordError) Unwrap() error { return e.err }

func failure(reason string, err error) error {
	return &recordError{reason: reason, err: err}
}

// Ingester merges result records into answers. Users, surveys and diseases
// resolved during a run are cached.
type Ingester struct {
	store   datastore.Store
	metrics *metrics.ResultsMetrics
	log     logger.Logger
	lookups *cache.Cache
}

// NewIngester creates an ingester writing to store
func NewIngester(store datastore.Store, m *metrics.ResultsMetrics, log logger.Logger) *Ingester {
	if log == nil {
		log = GetLogger()
	}
	return &Ingester{
		store:   store,
		metrics: m,
		log:     log,
		lookups: cache.New(lookupExpiration, lookupCleanup),
	}
}

// Load fetches a payload from src and ingests it
func (i *Ingester) Load(ctx context.Context, src Source) (Report, error) {
	i.log.Info("loading results", logger.String("source", src.String()))
	data, err := src.Fetch(ctx)
	if err != nil {
		return Report{}, err
	}
	return i.Ingest(ctx, data)
}

// Ingest parses a payload of the form {"Data": [record, ...]} and stores every
// record in its own transaction. A failing record is rolled back and the
// remaining records are still processed; the returned error joins all failures.
func (i *Ingester) Ingest(ctx context.Context, payload []byte) (Report, error) {
	doc, err := jason.NewObjectFromBytes(payload)
	if err != nil {
		return Report{}, parseError(err, "payload")
	}
	records, err := doc.GetObjectArray("Data")
	if err != nil {
		return Report{}, parseError(err, "Data")
	}

	report := Report{Records: len(records)}
	var errs []error

	for idx, record := range records {
		answers, err := i.ingestRecord(ctx, record)
		if err != nil {
			report.Failed++
			reason := metrics.ReasonDatabase
			var re *recordError
			if errors.As(err, &re) {
				reason = re.reason
			}
			i.metrics.RecordError(reason)
			i.metrics.RecordRecord(metrics.StatusError)
			i.log.Warn("result record rejected",
				logger.Int("record", idx),
				logger.String("reason", reason),
				logger.Error(err))
			errs = append(errs, fmt.Errorf("record %d: %w", idx, err))
			continue
		}
		report.Answers += answers
		i.metrics.RecordAnswers(answers)
		i.metrics.RecordRecord(metrics.StatusSuccess)
	}

	i.log.Info("results ingested",
		logger.Int("records", report.Records),
		logger.Int("failed", report.Failed),
		logger.Int("answers", report.Answers))
	return report, errors.Join(errs...)
}

type answerField struct {
	key        string
	surveyID   uint
	questionID uint
	certainty  bool
}

func parseFields(record *jason.Object) []answerField {
	var fields []answerField
	for key := range record.Map() {
		m := fieldPattern.FindStringSubmatch(key)
		if m == nil {
			continue
		}
		sid, errS := strconv.ParseUint(m[1], 10, 0)
		qid, errQ := strconv.ParseUint(m[2], 10, 0)
		if errS != nil || errQ != nil {
			continue
		}
		fields = append(fields, answerField{
			key:        key,
			surveyID:   uint(sid),
			questionID: uint(qid),
			certainty:  m[3] == "certainty",
		})
	}
	slices.SortFunc(fields, func(a, b answerField) int { return strings.Compare(a.key, b.key) })
	return fields
}

// ingestRecord stores the answers of one record and returns the number of questions answered
func (i *Ingester) ingestRecord(ctx context.Context, record *jason.Object) (int, error) {
	token, err := record.GetString(tokenField)
	if err != nil || token == "" {
		return 0, failure(metrics.ReasonUnknownUser,
			errors.NotFoundError("results", "user with token", "<missing>"))
	}
	fields := parseFields(record)

	answered := map[uint]struct{}{}
	err = i.store.Transaction(ctx, func(tx datastore.Store) error {
		user, err := i.user(ctx, tx, token)
		if err != nil {
			return err
		}

		results := map[uint]*datastore.SurveyResult{}
		for _, f := range fields {
			survey, err := i.survey(ctx, tx, f.surveyID)
			if err != nil {
				return err
			}
			question, err := tx.GetQuestion(ctx, f.questionID)
			if err != nil && !errors.IsNotFound(err) {
				return failure(metrics.ReasonDatabase, err)
			}
			if question == nil || !belongsTo(question, survey) {
				return failure(metrics.ReasonUnknownQuestion,
					errors.NotFoundError("results", fmt.Sprintf("question in survey %d", survey.ID), f.questionID))
			}

			result, ok := results[survey.ID]
			if !ok {
				if result, err = tx.GetOrCreateSurveyResult(ctx, survey.ID, user.ID); err != nil {
					return failure(metrics.ReasonDatabase, err)
				}
				results[survey.ID] = result
			}

			answer, err := tx.GetOrCreateAnswer(ctx, question.ID, user.ID, result.ID)
			if err != nil {
				return failure(metrics.ReasonDatabase, err)
			}

			value, _ := record.GetValue(f.key)
			if f.certainty {
				err = setCertainty(answer, value)
			} else {
				err = i.setChoice(ctx, tx, answer, question, value)
			}
			if err != nil {
				return err
			}

			if err := tx.SaveAnswer(ctx, answer); err != nil {
				return failure(metrics.ReasonDatabase, err)
			}
			answered[question.ID] = struct{}{}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(answered), nil
}

func belongsTo(q *datastore.Question, survey *datastore.Survey) bool {
	switch survey.Kind {
	case datastore.SurveyRegular:
		return q.RegularSurveyID != nil && *q.RegularSurveyID == survey.ID
	case datastore.SurveyControl:
		return q.ControlSurveyID != nil && *q.ControlSurveyID == survey.ID
	default:
		return false
	}
}

func (i *Ingester) user(ctx context.Context, tx datastore.Store, token string) (*datastore.User, error) {
	key := "user:" + token
	if cached, ok := i.lookups.Get(key); ok {
		return cached.(*datastore.User), nil
	}
	user, err := tx.GetUserByToken(ctx, token)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, failure(metrics.ReasonUnknownUser, err)
		}
		return nil, failure(metrics.ReasonDatabase, err)
	}
	i.lookups.SetDefault(key, user)
	return user, nil
}

func (i *Ingester) survey(ctx context.Context, tx datastore.Store, id uint) (*datastore.Survey, error) {
	key := "survey:" + strconv.FormatUint(uint64(id), 10)
	if cached, ok := i.lookups.Get(key); ok {
		return cached.(*datastore.Survey), nil
	}
	survey, err := tx.GetSurvey(ctx, id)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, failure(metrics.ReasonUnknownSurvey, err)
		}
		return nil, failure(metrics.ReasonDatabase, err)
	}
	i.lookups.SetDefault(key, survey)
	return survey, nil
}

func (i *Ingester) disease(ctx context.Context, tx datastore.Store, token string) (*datastore.Disease, error) {
	key := "disease:" + token
	if cached, ok := i.lookups.Get(key); ok {
		return cached.(*datastore.Disease), nil
	}
	disease, err := tx.GetDiseaseByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	i.lookups.SetDefault(key, disease)
	return disease, nil
}

func (i *Ingester) setChoice(ctx context.Context, tx datastore.Store, answer *datastore.Answer, q *datastore.Question, value *jason.Value) error {
	choice, err := value.String()
	if err != nil {
		return invalidValue(q.ID, "choice", value)
	}

	switch q.Kind {
	case datastore.QuestionDiagnosis:
		if choice == choiceNone {
			answer.Choice = choiceNone
			answer.DiseaseID = nil
			return nil
		}
		disease, err := i.disease(ctx, tx, choice)
		if err != nil {
			if errors.IsNotFound(err) {
				return invalidValue(q.ID, "choice", value)
			}
			return failure(metrics.ReasonDatabase, err)
		}
		answer.Choice = disease.Token
		answer.DiseaseID = &disease.ID
	case datastore.QuestionComparison:
		if choice != "left" && choice != "right" {
			return invalidValue(q.ID, "choice", value)
		}
		answer.Choice = choice
	default:
		return invalidValue(q.ID, "choice", value)
	}
	return nil
}

// setCertainty accepts a number or a numeric string in the rating range
func setCertainty(answer *datastore.Answer, value *jason.Value) error {
	n, err := value.Int64()
	if err != nil {
		s, serr := value.String()
		if serr != nil {
			return invalidValue(answer.QuestionID, "certainty", value)
		}
		if n, err = strconv.ParseInt(strings.TrimSpace(s), 10, 0); err != nil {
			return invalidValue(answer.QuestionID, "certainty", value)
		}
	}
	if n < certaintyMin || n > certaintyMax {
		return invalidValue(answer.QuestionID, "certainty", value)
	}
	certainty := int(n)
	answer.Certainty = &certainty
	return nil
}

func invalidValue(questionID uint, field string, value *jason.Value) error {
	raw := "<missing>"
	if value != nil {
		if b, err := value.Marshal(); err == nil {
			raw = string(b)
		}
	}
	return failure(metrics.ReasonInvalidValue, errors.Newf("invalid %s %s for question %d", field, raw, questionID).
		Component("results").
		Category(errors.CategoryValidation).
		Context("question_id", questionID).
		Context("field", field).
		Build())
}

func parseError(err error, field string) error {
	return errors.New(err).
		Component("results").
		Category(errors.CategoryFileParsing).
		Context("field", field).
		Build()
}

var packageLogger logger.Logger

// GetLogger returns the results module logger
func GetLogger() logger.Logger {
	if packageLogger == nil {
		return logger.Global().Module("results")
	}
	return packageLogger
}

// SetLogger replaces the results module logger
func SetLogger(l logger.Logger) {
	packageLogger = l
}
