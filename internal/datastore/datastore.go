// datastore.go: GORM implementation of the store queries shared by SQLite and MySQL
package datastore

import (
	"context"
	"database/sql"
	stderrors "errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tphakala/surveygen/internal/logger"
)

const insertBatchSize = 100

// DataStore implements Store using a GORM database.
type DataStore struct {
	DB     *gorm.DB // GORM database instance
	naming MaskNaming
	logger logger.Logger
}

func (ds *DataStore) db(ctx context.Context) *gorm.DB {
	return ds.DB.WithContext(ctx)
}

// Transaction runs fn inside a database transaction
func (ds *DataStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	return ds.db(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&DataStore{DB: tx, naming: ds.naming, logger: ds.logger})
	})
}

// SaveImages inserts new images
func (ds *DataStore) SaveImages(ctx context.Context, images []*Image) error {
	if len(images) == 0 {
		return nil
	}
	if err := ds.db(ctx).Omit(clause.Associations).CreateInBatches(images, insertBatchSize).Error; err != nil {
		return dbError(err, "save_images", "count", len(images))
	}
	return nil
}

// GetImageByFilename returns the image with its diseases
func (ds *DataStore) GetImageByFilename(ctx context.Context, filename string) (*Image, error) {
	var image Image
	err := ds.db(ctx).Preload("Diseases").Where("filename = ?", filename).First(&image).Error
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFoundError("image", filename)
	}
	if err != nil {
		return nil, dbError(err, "get_image", "filename", filename)
	}
	return &image, nil
}

// ListImages returns all images ordered by id, skipping excludeType when it is set
func (ds *DataStore) ListImages(ctx context.Context, excludeType string) ([]Image, error) {
	var images []Image
	query := ds.db(ctx).Preload("Diseases").Order("id")
	if excludeType != "" {
		query = query.Where("type <> ?", excludeType)
	}
	if err := query.Find(&images).Error; err != nil {
		return nil, dbError(err, "list_images")
	}
	return images, nil
}

// UpdateImageMetadata stores group, type and diagnoses of an image.
// Every token must name a known disease.
func (ds *DataStore) UpdateImageMetadata(ctx context.Context, image *Image, diseaseTokens []string) error {
	if image.ID == 0 {
		return validationError("image must be saved before its metadata", "image_id", image.ID)
	}

	var diseases []Disease
	if len(diseaseTokens) > 0 {
		if err := ds.db(ctx).Where("token IN ?", diseaseTokens).Find(&diseases).Error; err != nil {
			return dbError(err, "find_diseases", "image", image.Filename)
		}
		for _, token := range diseaseTokens {
			if !containsToken(diseases, token) {
				return notFoundError("disease", token)
			}
		}
	}

	err := ds.db(ctx).Model(image).
		Select("GroupID", "Type").
		Updates(Image{GroupID: image.GroupID, Type: image.Type}).Error
	if err != nil {
		return dbError(err, "update_image", "image", image.Filename)
	}

	association := ds.db(ctx).Model(image).Association("Diseases")
	if len(diseases) == 0 {
		err = association.Clear()
	} else {
		err = association.Replace(diseases)
	}
	if err != nil {
		return dbError(err, "update_image_diseases", "image", image.Filename)
	}
	image.Diseases = diseases
	return nil
}

func containsToken(diseases []Disease, token string) bool {
	for i := range diseases {
		if diseases[i].Token == token {
			return true
		}
	}
	return false
}

// FindImageGroup returns the non-original images of a group, or nil when there are none
func (ds *DataStore) FindImageGroup(ctx context.Context, groupID int) ([]Image, error) {
	var images []Image
	err := ds.db(ctx).
		Where("group_id = ? AND type <> ?", groupID, ImageTypeOriginal).
		Order("id").
		Find(&images).Error
	if err != nil {
		return nil, dbError(err, "find_image_group", "group_id", groupID)
	}
	if len(images) == 0 {
		return nil, nil
	}
	return images, nil
}

// FindOriginalForSegmentationMask resolves the reference image a mask was computed from.
// Exactly one non-mask image must carry the derived name.
func (ds *DataStore) FindOriginalForSegmentationMask(ctx context.Context, mask *Image) (*Image, error) {
	name := ds.naming.OriginalName(mask.Name)

	var candidates []Image
	err := ds.db(ctx).
		Where("name = ? AND type <> ?", name, ImageTypeSegmentation).
		Limit(2).
		Find(&candidates).Error
	if err != nil {
		return nil, dbError(err, "find_original", "mask", mask.Filename)
	}

	if len(candidates) != 1 {
		ds.logger.Debug("reference image lookup failed",
			logger.String("mask", mask.Filename),
			logger.String("name", name),
			logger.Int("matches", len(candidates)))
		return nil, notFoundError("original image", name)
	}
	return &candidates[0], nil
}

// MaxGroupID returns the largest group id, or 0 when no image has a group
func (ds *DataStore) MaxGroupID(ctx context.Context) (int, error) {
	var maxID sql.NullInt64
	if err := ds.db(ctx).Model(&Image{}).Select("MAX(group_id)").Scan(&maxID).Error; err != nil {
		return 0, dbError(err, "max_group_id")
	}
	return int(maxID.Int64), nil
}

// MinGroupID returns the smallest group id, or nil when no image has a group
func (ds *DataStore) MinGroupID(ctx context.Context) (*int, error) {
	var minID sql.NullInt64
	if err := ds.db(ctx).Model(&Image{}).Select("MIN(group_id)").Scan(&minID).Error; err != nil {
		return nil, dbError(err, "min_group_id")
	}
	if !minID.Valid {
		return nil, nil
	}
	v := int(minID.Int64)
	return &v, nil
}

// SaveDiseases inserts diseases, updating names of existing tokens
func (ds *DataStore) SaveDiseases(ctx context.Context, diseases []Disease) error {
	if len(diseases) == 0 {
		return nil
	}
	err := ds.db(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "token"}},
		DoUpdates: clause.AssignmentColumns([]string{"name"}),
	}).Create(&diseases).Error
	if err != nil {
		return dbError(err, "save_diseases", "count", len(diseases))
	}
	return nil
}

// ListDiseases returns all diseases in insertion order
func (ds *DataStore) ListDiseases(ctx context.Context) ([]Disease, error) {
	var diseases []Disease
	if err := ds.db(ctx).Order("id").Find(&diseases).Error; err != nil {
		return nil, dbError(err, "list_diseases")
	}
	return diseases, nil
}

// GetDiseaseByToken returns the disease with the given token
func (ds *DataStore) GetDiseaseByToken(ctx context.Context, token string) (*Disease, error) {
	var disease Disease
	err := ds.db(ctx).Where("token = ?", token).First(&disease).Error
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFoundError("disease", token)
	}
	if err != nil {
		return nil, dbError(err, "get_disease", "token", token)
	}
	return &disease, nil
}

// SaveQuestions inserts new questions without touching the referenced images
func (ds *DataStore) SaveQuestions(ctx context.Context, questions []*Question) error {
	if len(questions) == 0 {
		return nil
	}
	if err := ds.db(ctx).Omit(clause.Associations).CreateInBatches(questions, insertBatchSize).Error; err != nil {
		return dbError(err, "save_questions", "count", len(questions))
	}
	return nil
}

// SaveQuestion inserts or updates a question
func (ds *DataStore) SaveQuestion(ctx context.Context, question *Question) error {
	if err := ds.db(ctx).Omit(clause.Associations).Save(question).Error; err != nil {
		return dbError(err, "save_question", "question_id", question.ID)
	}
	return nil
}

func (ds *DataStore) questionQuery(ctx context.Context) *gorm.DB {
	return ds.db(ctx).
		Preload("Image").
		Preload("ReferenceImage").
		Preload("CandidateA").
		Preload("CandidateB")
}

// GetQuestion returns a question with its images
func (ds *DataStore) GetQuestion(ctx context.Context, id uint) (*Question, error) {
	var question Question
	err := ds.questionQuery(ctx).First(&question, id).Error
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFoundError("question", id)
	}
	if err != nil {
		return nil, dbError(err, "get_question", "question_id", id)
	}
	return &question, nil
}

// FindUnassignedQuestions returns questions of the given kinds owned by no survey
func (ds *DataStore) FindUnassignedQuestions(ctx context.Context, kinds []QuestionKind) ([]Question, error) {
	var questions []Question
	err := ds.questionQuery(ctx).
		Where("regular_survey_id IS NULL AND control_survey_id IS NULL").
		Where("type IN ?", kinds).
		Order("id").
		Find(&questions).Error
	if err != nil {
		return nil, dbError(err, "find_unassigned_questions")
	}
	return questions, nil
}

// FindQuestionsInRegularOnly returns questions of the given kinds that have
// a regular survey but no control survey
func (ds *DataStore) FindQuestionsInRegularOnly(ctx context.Context, kinds []QuestionKind) ([]Question, error) {
	var questions []Question
	err := ds.questionQuery(ctx).
		Where("regular_survey_id IS NOT NULL AND control_survey_id IS NULL").
		Where("type IN ?", kinds).
		Order("id").
		Find(&questions).Error
	if err != nil {
		return nil, dbError(err, "find_regular_only_questions")
	}
	return questions, nil
}

func surveyColumns(kind SurveyKind) (owner, position string, err error) {
	switch kind {
	case SurveyRegular:
		return "regular_survey_id", "regular_position", nil
	case SurveyControl:
		return "control_survey_id", "control_position", nil
	default:
		return "", "", validationError("unknown survey kind", "survey_kind", kind)
	}
}

// AssignQuestions makes survey the owner of questions on the survey's axis,
// recording their order. A question already owned on that axis is a conflict.
func (ds *DataStore) AssignQuestions(ctx context.Context, survey *Survey, questions []Question) error {
	if survey.ID == 0 {
		return validationError("survey must be saved before assignment", "survey_id", survey.ID)
	}
	owner, position, err := surveyColumns(survey.Kind)
	if err != nil {
		return err
	}

	surveyID := survey.ID
	for i := range questions {
		result := ds.db(ctx).Model(&Question{}).
			Where("id = ? AND "+owner+" IS NULL", questions[i].ID).
			Updates(map[string]any{owner: surveyID, position: i + 1})
		if result.Error != nil {
			return dbError(result.Error, "assign_question", "question_id", questions[i].ID, "survey_id", surveyID)
		}
		if result.RowsAffected != 1 {
			return conflictError(stderrors.New("question already assigned"), "assign_question",
				"question_id", questions[i].ID, "survey_id", surveyID)
		}

		if survey.Kind == SurveyRegular {
			questions[i].RegularSurveyID = &surveyID
			questions[i].RegularPosition = i + 1
		} else {
			questions[i].ControlSurveyID = &surveyID
			questions[i].ControlPosition = i + 1
		}
	}
	return nil
}

// SurveyQuestions returns the questions of a survey in presentation order
func (ds *DataStore) SurveyQuestions(ctx context.Context, survey *Survey) ([]Question, error) {
	owner, position, err := surveyColumns(survey.Kind)
	if err != nil {
		return nil, err
	}

	var questions []Question
	err = ds.questionQuery(ctx).
		Where(owner+" = ?", survey.ID).
		Order(position).
		Find(&questions).Error
	if err != nil {
		return nil, dbError(err, "survey_questions", "survey_id", survey.ID)
	}
	return questions, nil
}

// SaveSurvey inserts or updates a survey
func (ds *DataStore) SaveSurvey(ctx context.Context, survey *Survey) error {
	if _, _, err := surveyColumns(survey.Kind); err != nil {
		return err
	}
	if err := ds.db(ctx).Save(survey).Error; err != nil {
		return dbError(err, "save_survey", "survey_id", survey.ID)
	}
	return nil
}

// GetSurvey returns the survey with the given id
func (ds *DataStore) GetSurvey(ctx context.Context, id uint) (*Survey, error) {
	var survey Survey
	err := ds.db(ctx).First(&survey, id).Error
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFoundError("survey", id)
	}
	if err != nil {
		return nil, dbError(err, "get_survey", "survey_id", id)
	}
	return &survey, nil
}

// ListSurveys returns surveys of a kind ordered by id, all surveys when kind is empty
func (ds *DataStore) ListSurveys(ctx context.Context, kind SurveyKind) ([]Survey, error) {
	var surveys []Survey
	query := ds.db(ctx).Order("id")
	if kind != "" {
		query = query.Where("type = ?", kind)
	}
	if err := query.Find(&surveys).Error; err != nil {
		return nil, dbError(err, "list_surveys", "kind", kind)
	}
	return surveys, nil
}

// SaveUser inserts a user
func (ds *DataStore) SaveUser(ctx context.Context, user *User) error {
	if err := ds.db(ctx).Create(user).Error; err != nil {
		return dbError(err, "save_user", "name", user.Name)
	}
	return nil
}

// GetUserByToken returns the user owning an access token
func (ds *DataStore) GetUserByToken(ctx context.Context, token string) (*User, error) {
	var user User
	err := ds.db(ctx).Where("access_token = ?", token).First(&user).Error
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFoundError("user", "with token")
	}
	if err != nil {
		return nil, dbError(err, "get_user")
	}
	return &user, nil
}

// ListUsers returns all users ordered by id
func (ds *DataStore) ListUsers(ctx context.Context) ([]User, error) {
	var users []User
	if err := ds.db(ctx).Order("id").Find(&users).Error; err != nil {
		return nil, dbError(err, "list_users")
	}
	return users, nil
}

// GetOrCreateSurveyResult returns the submission record of a user for a survey
func (ds *DataStore) GetOrCreateSurveyResult(ctx context.Context, surveyID, userID uint) (*SurveyResult, error) {
	result := SurveyResult{SurveyID: surveyID, UserID: userID}
	err := ds.db(ctx).
		Where("survey_id = ? AND user_id = ?", surveyID, userID).
		FirstOrCreate(&result).Error
	if err != nil {
		return nil, dbError(err, "get_or_create_survey_result", "survey_id", surveyID, "user_id", userID)
	}
	return &result, nil
}

// GetOrCreateAnswer returns the answer of a user to a question, creating an empty one if needed
func (ds *DataStore) GetOrCreateAnswer(ctx context.Context, questionID, userID, surveyResultID uint) (*Answer, error) {
	answer := Answer{QuestionID: questionID, UserID: userID, SurveyResultID: surveyResultID}
	err := ds.db(ctx).
		Where("question_id = ? AND user_id = ?", questionID, userID).
		FirstOrCreate(&answer).Error
	if err != nil {
		return nil, dbError(err, "get_or_create_answer", "question_id", questionID, "user_id", userID)
	}
	return &answer, nil
}

// SaveAnswer inserts or updates an answer
func (ds *DataStore) SaveAnswer(ctx context.Context, answer *Answer) error {
	if answer.QuestionID == 0 || answer.UserID == 0 {
		return validationError("answer requires question and user", "answer", answer.QuestionID)
	}
	if err := ds.db(ctx).Save(answer).Error; err != nil {
		return dbError(err, "save_answer", "question_id", answer.QuestionID, "user_id", answer.UserID)
	}
	return nil
}

// ListAnswers returns all answers submitted for a survey
func (ds *DataStore) ListAnswers(ctx context.Context, surveyID uint) ([]Answer, error) {
	var answers []Answer
	err := ds.db(ctx).
		Joins("JOIN survey_results ON survey_results.id = answers.survey_result_id").
		Where("survey_results.survey_id = ?", surveyID).
		Order("answers.question_id, answers.user_id").
		Find(&answers).Error
	if err != nil {
		return nil, dbError(err, "list_answers", "survey_id", surveyID)
	}
	return answers, nil
}

// Counts returns row counts used by status reporting
func (ds *DataStore) Counts(ctx context.Context) (Counts, error) {
	var c Counts
	queries := []struct {
		target *int64
		query  *gorm.DB
	}{
		{&c.Images, ds.db(ctx).Model(&Image{})},
		{&c.Diseases, ds.db(ctx).Model(&Disease{})},
		{&c.Questions, ds.db(ctx).Model(&Question{})},
		{&c.UnassignedRegular, ds.db(ctx).Model(&Question{}).Where("regular_survey_id IS NULL")},
		{&c.RegularSurveys, ds.db(ctx).Model(&Survey{}).Where("type = ?", SurveyRegular)},
		{&c.ControlSurveys, ds.db(ctx).Model(&Survey{}).Where("type = ?", SurveyControl)},
		{&c.Users, ds.db(ctx).Model(&User{})},
		{&c.Answers, ds.db(ctx).Model(&Answer{})},
	}
	for _, q := range queries {
		if err := q.query.Count(q.target).Error; err != nil {
			return Counts{}, dbError(err, "counts")
		}
	}
	return c, nil
}
