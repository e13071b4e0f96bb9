package conf

import (
	"path/filepath"
	"slices"
	"time"
)

// NewTestSettings returns settings equal to the defaults with the SQLite
// database placed in dir. Intended for tests of dependent packages.
func NewTestSettings(dir string) *Settings {
	return &Settings{
		Logging: LoggingSettings{Level: "error", Timezone: "UTC"},
		Database: DatabaseSettings{
			Type:               DatabaseSQLite,
			SQLite:             SQLiteSettings{Path: filepath.Join(dir, "surveygen_test.db")},
			SlowQueryThreshold: 200 * time.Millisecond,
		},
		Generation: GenerationSettings{
			QuestionsPerSurvey: 20,
			SurveyType:         SurveyTypeRegular,
			QuestionTypes:      []int{1},
			RedundancyPercent:  10,
			Multiplier:         5,
			AuthPage:           true,
		},
		Images: ImageSettings{
			Extension:   ".png",
			StripTokens: slices.Clone(DefaultStripTokens),
		},
		Diseases: slices.Clone(DefaultDiseases),
		Render: RenderSettings{
			Locale:       LocaleSerbianLatin,
			ImageBaseURL: "images/",
		},
		Export: ExportSettings{
			Directory:   dir,
			Type:        ExportJSON,
			Concurrency: 4,
		},
		Results: ResultsSettings{Timeout: 30 * time.Second},
		Server:  ServerSettings{Listen: "127.0.0.1:0", ShutdownTimeout: 5 * time.Second},
	}
}
