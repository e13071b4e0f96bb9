package datastore

import (
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Image type tags
const (
	ImageTypeOriginal     = "original"
	ImageTypeSegmentation = "segmentation"
)

// QuestionKind discriminates the question variants stored in one table
type QuestionKind int

const (
	// QuestionDiagnosis asks for the disease shown on a single image
	QuestionDiagnosis QuestionKind = 1
	// QuestionComparison asks which of two segmentation masks better matches a reference image
	QuestionComparison QuestionKind = 2
	// QuestionReserved has no generator
	QuestionReserved QuestionKind = 3
)

// SurveyKind is the survey axis a survey belongs to
type SurveyKind string

const (
	SurveyRegular SurveyKind = "regular"
	SurveyControl SurveyKind = "control"
)

// Image is a fundus photograph or a segmentation mask loaded from disk.
type Image struct {
	ID        uint      `gorm:"primaryKey"`
	Root      string    `gorm:"size:1024;not null"`
	Filename  string    `gorm:"size:255;uniqueIndex;not null"`
	Name      string    `gorm:"size:255;index;not null"` // filename without extension
	Dataset   string    `gorm:"size:64"`                 // parent directory name
	GroupID   *int      `gorm:"index"`
	Type      string    `gorm:"size:32;index"`
	Diseases  []Disease `gorm:"many2many:image_diseases;"`
	CreatedAt time.Time
}

// Path returns the location of the image file on disk
func (img *Image) Path() string {
	return filepath.Join(img.Root, img.Filename)
}

// IsMask reports whether the image is a segmentation mask
func (img *Image) IsMask() bool {
	return img.Type == ImageTypeSegmentation
}

// NewImage builds an Image for a file found under root.
func NewImage(root, filename string) *Image {
	return &Image{
		Root:     root,
		Filename: filename,
		Name:     strings.TrimSuffix(filename, filepath.Ext(filename)),
		Dataset:  filepath.Base(root),
	}
}

// Disease is a diagnosis a respondent can pick in a diagnosis question.
type Disease struct {
	ID    uint   `gorm:"primaryKey"`
	Token string `gorm:"size:64;uniqueIndex;not null"`
	Name  string `gorm:"size:255;not null"`
}

// Question is one survey item. Kind selects which image references are used:
// diagnosis questions use ImageID, comparison questions use the reference and both candidates.
type Question struct {
	ID      uint         `gorm:"primaryKey"`
	Kind    QuestionKind `gorm:"column:type;index;not null"`
	Content string       `gorm:"type:text"`
	GroupID *int         `gorm:"index"`

	ImageID *uint
	Image   *Image `gorm:"foreignKey:ImageID"`

	ReferenceImageID *uint
	ReferenceImage   *Image `gorm:"foreignKey:ReferenceImageID"`
	CandidateAID     *uint
	CandidateA       *Image `gorm:"foreignKey:CandidateAID"`
	CandidateBID     *uint
	CandidateB       *Image `gorm:"foreignKey:CandidateBID"`
	Redundant        bool

	RegularSurveyID *uint `gorm:"index"`
	RegularPosition int
	ControlSurveyID *uint `gorm:"index"`
	ControlPosition int

	CreatedAt time.Time
}

// Images returns the images the question displays, reference first for comparisons
func (q *Question) Images() []*Image {
	var images []*Image
	for _, img := range []*Image{q.Image, q.ReferenceImage, q.CandidateA, q.CandidateB} {
		if img != nil {
			images = append(images, img)
		}
	}
	return images
}

// Survey groups questions presented together to a respondent.
type Survey struct {
	ID        uint       `gorm:"primaryKey"`
	Kind      SurveyKind `gorm:"column:type;size:16;index;not null"`
	Content   string     `gorm:"type:longtext"`
	AuthPage  bool
	CreatedAt time.Time
}

// Filename returns the export file name for the given export type
func (s *Survey) Filename(exportType string) string {
	return "survey-" + strconv.FormatUint(uint64(s.ID), 10) + "." + exportType
}

// User is a respondent identified by an access token.
type User struct {
	ID          uint   `gorm:"primaryKey"`
	Name        string `gorm:"size:255;not null"`
	AccessToken string `gorm:"size:64;uniqueIndex;not null"`
	CreatedAt   time.Time
}

// SurveyResult records that a user submitted a survey.
type SurveyResult struct {
	ID        uint `gorm:"primaryKey"`
	SurveyID  uint `gorm:"uniqueIndex:idx_survey_user;not null"`
	UserID    uint `gorm:"uniqueIndex:idx_survey_user;not null"`
	CreatedAt time.Time
}

// Answer is a user's response to one question. Choice holds the submitted
// value: a disease token or "none" for diagnosis questions, "left" or "right" for comparisons.
type Answer struct {
	QuestionID     uint   `gorm:"primaryKey;autoIncrement:false"`
	UserID         uint   `gorm:"primaryKey;autoIncrement:false"`
	SurveyResultID uint   `gorm:"index;not null"`
	Choice         string `gorm:"size:64"`
	DiseaseID      *uint
	Certainty      *int
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Complete reports whether both choice and certainty were received
func (a *Answer) Complete() bool {
	return a.Choice != "" && a.Certainty != nil
}

// allModels lists every table managed by auto-migration
func allModels() []any {
	return []any{&Image{}, &Disease{}, &Question{}, &Survey{}, &User{}, &SurveyResult{}, &Answer{}}
}
