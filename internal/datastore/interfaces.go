package datastore

import (
	"context"

	"github.com/tphakala/surveygen/internal/conf"
	"github.com/tphakala/surveygen/internal/logger"
)

// Store is the query contract over images, questions, surveys and results.
// Every method runs inside the current transaction when called on the Store
// passed to a Transaction callback.
type Store interface {
	// Transaction runs fn atomically; fn receives a Store bound to the transaction.
	// Returning an error rolls the transaction back.
	Transaction(ctx context.Context, fn func(tx Store) error) error

	SaveImages(ctx context.Context, images []*Image) error
	GetImageByFilename(ctx context.Context, filename string) (*Image, error)
	ListImages(ctx context.Context, excludeType string) ([]Image, error)
	UpdateImageMetadata(ctx context.Context, image *Image, diseaseTokens []string) error
	FindImageGroup(ctx context.Context, groupID int) ([]Image, error)
	FindOriginalForSegmentationMask(ctx context.Context, mask *Image) (*Image, error)
	MaxGroupID(ctx context.Context) (int, error)
	MinGroupID(ctx context.Context) (*int, error)

	SaveDiseases(ctx context.Context, diseases []Disease) error
	ListDiseases(ctx context.Context) ([]Disease, error)
	GetDiseaseByToken(ctx context.Context, token string) (*Disease, error)

	SaveQuestions(ctx context.Context, questions []*Question) error
	SaveQuestion(ctx context.Context, question *Question) error
	GetQuestion(ctx context.Context, id uint) (*Question, error)
	FindUnassignedQuestions(ctx context.Context, kinds []QuestionKind) ([]Question, error)
	FindQuestionsInRegularOnly(ctx context.Context, kinds []QuestionKind) ([]Question, error)
	AssignQuestions(ctx context.Context, survey *Survey, questions []Question) error
	SurveyQuestions(ctx context.Context, survey *Survey) ([]Question, error)

	SaveSurvey(ctx context.Context, survey *Survey) error
	GetSurvey(ctx context.Context, id uint) (*Survey, error)
	ListSurveys(ctx context.Context, kind SurveyKind) ([]Survey, error)

	SaveUser(ctx context.Context, user *User) error
	GetUserByToken(ctx context.Context, token string) (*User, error)
	ListUsers(ctx context.Context) ([]User, error)

	GetOrCreateSurveyResult(ctx context.Context, surveyID, userID uint) (*SurveyResult, error)
	GetOrCreateAnswer(ctx context.Context, questionID, userID, surveyResultID uint) (*Answer, error)
	SaveAnswer(ctx context.Context, answer *Answer) error
	ListAnswers(ctx context.Context, surveyID uint) ([]Answer, error)

	Counts(ctx context.Context) (Counts, error)
}

// Interface is a Store with a connection lifecycle
type Interface interface {
	Store
	Open() error
	Close() error
}

// Counts summarizes the store contents
type Counts struct {
	Images            int64
	Diseases          int64
	Questions         int64
	UnassignedRegular int64
	RegularSurveys    int64
	ControlSurveys    int64
	Users             int64
	Answers           int64
}

// New creates a new DataStore instance based on the provided configuration settings.
func New(settings *conf.Settings) Interface {
	base := DataStore{
		naming: NewMaskNaming(settings.Images.StripTokens),
		logger: GetLogger(),
	}

	switch settings.Database.Type {
	case conf.DatabaseMySQL:
		return &MySQLStore{DataStore: base, Settings: settings}
	default:
		return &SQLiteStore{DataStore: base, Settings: settings}
	}
}

var (
	packageLogger logger.Logger
)

// GetLogger returns the datastore module logger
func GetLogger() logger.Logger {
	if packageLogger == nil {
		return logger.Global().Module("datastore")
	}
	return packageLogger
}

// SetLogger replaces the datastore module logger
func SetLogger(l logger.Logger) {
	packageLogger = l
}
