// conf/validate.go

package conf

import (
	"fmt"
	"net"
	"slices"
	"strings"
)

// ValidQuestionTypes are the question types known to the store
var ValidQuestionTypes = []int{1, 2, 3}

// ValidationError represents a collection of validation errors
type ValidationError struct {
	Errors []string
}

// Error returns a string representation of the validation errors
func (ve ValidationError) Error() string {
	return fmt.Sprintf("Validation errors: %v", ve.Errors)
}

// ValidateSettings validates the entire Settings struct and normalizes the render locale
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}

	collect := func(errs []string) {
		ve.Errors = append(ve.Errors, errs...)
	}

	collect(validateDatabaseSettings(&settings.Database))
	collect(validateGenerationSettings(&settings.Generation))
	collect(validateDiseaseSettings(settings.Diseases))
	collect(validateRenderSettings(&settings.Render))
	collect(validateExportSettings(&settings.Export))
	collect(validateServerSettings(&settings.Server))
	collect(validateSentrySettings(&settings.Sentry))

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

func validateDatabaseSettings(s *DatabaseSettings) []string {
	var errs []string
	switch s.Type {
	case DatabaseSQLite:
		if s.SQLite.Path == "" {
			errs = append(errs, "database.sqlite.path must be set")
		}
	case DatabaseMySQL:
		if s.MySQL.Host == "" {
			errs = append(errs, "database.mysql.host must be set")
		}
		if s.MySQL.Database == "" {
			errs = append(errs, "database.mysql.database must be set")
		}
		if s.MySQL.Port <= 0 || s.MySQL.Port > 65535 {
			errs = append(errs, fmt.Sprintf("database.mysql.port %d is out of range", s.MySQL.Port))
		}
	default:
		errs = append(errs, fmt.Sprintf("database.type must be %q or %q, got %q", DatabaseSQLite, DatabaseMySQL, s.Type))
	}
	return errs
}

func validateGenerationSettings(s *GenerationSettings) []string {
	var errs []string
	if s.QuestionsPerSurvey <= 0 {
		errs = append(errs, fmt.Sprintf("generation.questionspersurvey must be positive, got %d", s.QuestionsPerSurvey))
	}
	if s.MaxSurveys < 0 {
		errs = append(errs, fmt.Sprintf("generation.maxsurveys must not be negative, got %d", s.MaxSurveys))
	}
	if s.SurveyType != SurveyTypeRegular && s.SurveyType != SurveyTypeControl {
		errs = append(errs, fmt.Sprintf("generation.surveytype must be %q or %q, got %q", SurveyTypeRegular, SurveyTypeControl, s.SurveyType))
	}
	for _, qt := range s.QuestionTypes {
		if !slices.Contains(ValidQuestionTypes, qt) {
			errs = append(errs, fmt.Sprintf("generation.questiontypes contains unknown type %d", qt))
		}
	}
	if s.RedundancyPercent < 0 || s.RedundancyPercent > 100 {
		errs = append(errs, fmt.Sprintf("generation.redundancypercent must be within [0, 100], got %g", s.RedundancyPercent))
	}
	if s.Multiplier < 1 {
		errs = append(errs, fmt.Sprintf("generation.multiplier must be at least 1, got %d", s.Multiplier))
	}
	return errs
}

func validateDiseaseSettings(diseases []DiseaseSettings) []string {
	var errs []string
	seen := make(map[string]bool, len(diseases))
	for i, d := range diseases {
		switch {
		case d.Token == "":
			errs = append(errs, fmt.Sprintf("diseases[%d].token must be set", i))
		case d.Token == "none":
			errs = append(errs, "disease token \"none\" is reserved")
		case seen[d.Token]:
			errs = append(errs, fmt.Sprintf("disease token %q is duplicated", d.Token))
		}
		seen[d.Token] = true
		if d.Name == "" {
			errs = append(errs, fmt.Sprintf("diseases[%d].name must be set", i))
		}
	}
	return errs
}

func validateRenderSettings(s *RenderSettings) []string {
	locale, err := NormalizeLocale(s.Locale)
	if err != nil {
		return []string{err.Error()}
	}
	s.Locale = locale
	return nil
}

func validateExportSettings(s *ExportSettings) []string {
	var errs []string
	s.Type = strings.ToLower(s.Type)
	if s.Type != ExportJSON && s.Type != ExportHTML {
		errs = append(errs, fmt.Sprintf("export.type must be %q or %q, got %q", ExportJSON, ExportHTML, s.Type))
	}
	if s.Concurrency < 1 {
		errs = append(errs, fmt.Sprintf("export.concurrency must be at least 1, got %d", s.Concurrency))
	}
	return errs
}

func validateServerSettings(s *ServerSettings) []string {
	if s.Listen == "" {
		return nil
	}
	if _, _, err := net.SplitHostPort(s.Listen); err != nil {
		return []string{fmt.Sprintf("server.listen %q is not host:port: %v", s.Listen, err)}
	}
	return nil
}

func validateSentrySettings(s *SentrySettings) []string {
	if s.Enabled && s.DSN == "" {
		return []string{"sentry.dsn must be set when sentry is enabled"}
	}
	return nil
}
