// conf/defaults.go default values for settings
package conf

import (
	"time"

	"github.com/spf13/viper"
)

// DefaultStripTokens are the segmentation network and dataset names appended to mask filenames.
var DefaultStripTokens = []string{
	"eswanet", "iternet", "iternet-uni", "laddernet", "saunet", "unet", "vesselunet", "vgan",
	"drive", "stare", "chase",
}

// DefaultDiseases are the diagnoses offered in type 1 questions.
var DefaultDiseases = []DiseaseSettings{
	{Token: "diabetic_retinopathy", Name: "Diabetic Retinopathy"},
	{Token: "choroidal_neovascularization", Name: "Choroidal Neovascularization"},
	{Token: "arteriosclerotic_retinopathy", Name: "Arteriosclerotic Retinopathy"},
	{Token: "geographic_atrophy_rpe", Name: "Geographic Atrophy RPE"},
	{Token: "cillio_retinal_artery_occlusion", Name: "Cillio-Retinal Artery Occlusion"},
}

// Sets default values for the configuration.
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.file", "")
	viper.SetDefault("logging.console", true)
	viper.SetDefault("logging.timezone", "Local")

	viper.SetDefault("database.type", DatabaseSQLite)
	viper.SetDefault("database.sqlite.path", "surveygen.db")
	viper.SetDefault("database.mysql.host", "localhost")
	viper.SetDefault("database.mysql.port", 3306)
	viper.SetDefault("database.mysql.username", "surveygen")
	viper.SetDefault("database.mysql.password", "")
	viper.SetDefault("database.mysql.database", "surveygen")
	viper.SetDefault("database.slowquerythreshold", 200*time.Millisecond)

	viper.SetDefault("generation.questionspersurvey", 20)
	viper.SetDefault("generation.maxsurveys", 0)
	viper.SetDefault("generation.surveytype", SurveyTypeRegular)
	viper.SetDefault("generation.questiontypes", []int{1})
	viper.SetDefault("generation.redundancypercent", 10.0)
	viper.SetDefault("generation.multiplier", 5)
	viper.SetDefault("generation.authpage", true)

	viper.SetDefault("images.extension", ".png")
	viper.SetDefault("images.striptokens", DefaultStripTokens)

	diseases := make([]map[string]string, 0, len(DefaultDiseases))
	for _, d := range DefaultDiseases {
		diseases = append(diseases, map[string]string{"token": d.Token, "name": d.Name})
	}
	viper.SetDefault("diseases", diseases)

	viper.SetDefault("render.locale", LocaleSerbianLatin)
	viper.SetDefault("render.title", "")
	viper.SetDefault("render.imagebaseurl", "images/")

	viper.SetDefault("export.directory", ".")
	viper.SetDefault("export.type", ExportJSON)
	viper.SetDefault("export.concurrency", 4)
	viper.SetDefault("export.resultsurl", "")

	viper.SetDefault("results.url", "")
	viper.SetDefault("results.token", "")
	viper.SetDefault("results.timeout", 30*time.Second)

	viper.SetDefault("server.listen", "127.0.0.1:8080")
	viper.SetDefault("server.shutdowntimeout", 10*time.Second)

	viper.SetDefault("metrics.textfile", "")

	viper.SetDefault("notification.urls", []string{})

	viper.SetDefault("sentry.enabled", false)
	viper.SetDefault("sentry.dsn", "")
	viper.SetDefault("sentry.environment", "production")
	viper.SetDefault("sentry.debug", false)
}
