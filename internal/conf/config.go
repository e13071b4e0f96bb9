// config.go: settings struct of surveygen and the functions to load and save it.
package conf

import (
	"crypto/rand"
	"embed"
	"encoding/base64"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

//go:embed config.yaml
var configFiles embed.FS

// Database backends
const (
	DatabaseSQLite = "sqlite"
	DatabaseMySQL  = "mysql"
)

// Survey types
const (
	SurveyTypeRegular = "regular"
	SurveyTypeControl = "control"
)

// Export types
const (
	ExportJSON = "json"
	ExportHTML = "html"
)

// LoggingSettings controls console and file log output
type LoggingSettings struct {
	Level    string `yaml:"level"`    // trace, debug, info, warn, error
	File     string `yaml:"file"`     // JSON log file, empty disables
	Console  bool   `yaml:"console"`  // human-readable output on stderr
	Timezone string `yaml:"timezone"` // Local, UTC or IANA name
}

// SQLiteSettings contains settings for the SQLite database.
type SQLiteSettings struct {
	Path string `yaml:"path"` // path to the database file
}

// MySQLSettings contains settings for the MySQL database.
type MySQLSettings struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

// DatabaseSettings selects and configures the record store
type DatabaseSettings struct {
	Type               string         `yaml:"type"` // sqlite or mysql
	SQLite             SQLiteSettings `yaml:"sqlite"`
	MySQL              MySQLSettings  `yaml:"mysql"`
	SlowQueryThreshold time.Duration  `yaml:"slowquerythreshold"`
}

// GenerationSettings holds defaults for question and survey generation
type GenerationSettings struct {
	QuestionsPerSurvey int     `yaml:"questionspersurvey"` // survey quota
	MaxSurveys         int     `yaml:"maxsurveys"`         // 0 means unlimited
	SurveyType         string  `yaml:"surveytype"`         // regular or control
	QuestionTypes      []int   `yaml:"questiontypes"`      // question types to generate or assign
	RedundancyPercent  float64 `yaml:"redundancypercent"`  // share of pairs repeated, 0..100
	Multiplier         int     `yaml:"multiplier"`         // extra copies of each redundant pair
	AuthPage           bool    `yaml:"authpage"`           // prepend respondent identification page
}

// ImageSettings controls image loading and segmentation mask naming
type ImageSettings struct {
	Extension   string   `yaml:"extension"`   // file extension to load, with dot
	StripTokens []string `yaml:"striptokens"` // network and dataset tokens removed from mask names
}

// DiseaseSettings is one diagnosis offered in type 1 questions
type DiseaseSettings struct {
	Token string `yaml:"token"` // value stored in answers
	Name  string `yaml:"name"`  // display name
}

// RenderSettings controls survey document rendering
type RenderSettings struct {
	Locale       string `yaml:"locale"`       // sr-Latn or en
	Title        string `yaml:"title"`        // survey title shown to respondents
	ImageBaseURL string `yaml:"imagebaseurl"` // prefix for image sources in documents
}

// ExportSettings controls survey export
type ExportSettings struct {
	Directory   string `yaml:"directory"`
	Type        string `yaml:"type"`        // json or html
	Concurrency int    `yaml:"concurrency"` // parallel file writers
	ResultsURL  string `yaml:"resultsurl"`  // endpoint HTML surveys post answers to
}

// ResultsSettings configures fetching survey results over HTTP
type ResultsSettings struct {
	URL     string        `yaml:"url"`
	Token   string        `yaml:"token"` // bearer token sent with the request
	Timeout time.Duration `yaml:"timeout"`
}

// ServerSettings configures the serve command
type ServerSettings struct {
	Listen          string        `yaml:"listen"`
	ShutdownTimeout time.Duration `yaml:"shutdowntimeout"`
}

// MetricsSettings controls Prometheus metrics output
type MetricsSettings struct {
	TextFile string `yaml:"textfile"` // node_exporter textfile path, empty disables
}

// NotificationSettings lists shoutrrr service URLs
type NotificationSettings struct {
	URLs []string `yaml:"urls"`
}

// SentrySettings controls error telemetry
type SentrySettings struct {
	Enabled     bool   `yaml:"enabled"`
	DSN         string `yaml:"dsn"`
	Environment string `yaml:"environment"`
	Debug       bool   `yaml:"debug"`
}

// Settings contains all configuration options for surveygen.
type Settings struct {
	Debug   bool   `yaml:"debug"`
	Version string `yaml:"-"`

	Logging      LoggingSettings      `yaml:"logging"`
	Database     DatabaseSettings     `yaml:"database"`
	Generation   GenerationSettings   `yaml:"generation"`
	Images       ImageSettings        `yaml:"images"`
	Diseases     []DiseaseSettings    `yaml:"diseases"`
	Render       RenderSettings       `yaml:"render"`
	Export       ExportSettings       `yaml:"export"`
	Results      ResultsSettings      `yaml:"results"`
	Server       ServerSettings       `yaml:"server"`
	Metrics      MetricsSettings      `yaml:"metrics"`
	Notification NotificationSettings `yaml:"notification"`
	Sentry       SentrySettings       `yaml:"sentry"`
}

var (
	settingsInstance *Settings
	settingsMutex    sync.RWMutex
)

// Load reads the configuration file and environment variables into Settings.
// An explicit configFile overrides the default search paths.
func Load(configFile string) (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	settings := &Settings{}

	if err := initViper(configFile); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	if err := viper.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}

	settingsInstance = settings
	return settingsInstance, nil
}

// initViper sets defaults, environment binding and reads the configuration file.
func initViper(configFile string) error {
	setDefaultConfig()

	viper.SetEnvPrefix("SURVEYGEN")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if configFile != "" {
		viper.SetConfigFile(configFile)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("error reading config file %s: %w", configFile, err)
		}
		return nil
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}
	for _, path := range configPaths {
		viper.AddConfigPath(path)
	}

	if err := viper.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			// defaults are complete, running without a file is fine
			return nil
		}
		return fmt.Errorf("fatal error reading config file: %w", err)
	}

	return nil
}

// DefaultConfig returns the embedded default configuration file.
func DefaultConfig() ([]byte, error) {
	return fs.ReadFile(configFiles, "config.yaml")
}

// WriteDefaultConfig writes the embedded default configuration to path,
// refusing to overwrite an existing file.
func WriteDefaultConfig(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file %s already exists", path)
	}

	data, err := DefaultConfig()
	if err != nil {
		return fmt.Errorf("error reading embedded config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("error creating directories for config file: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("error writing default config file: %w", err)
	}

	return nil
}

// GetSettings returns the current settings instance
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// SaveYAMLConfig writes settings to configPath through a temporary file.
// It overwrites the existing file, not preserving comments or structure.
func SaveYAMLConfig(configPath string, settings *Settings) error {
	yamlData, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("error marshaling settings to YAML: %w", err)
	}

	tempFile, err := os.CreateTemp(filepath.Dir(configPath), "config-*.yaml")
	if err != nil {
		return fmt.Errorf("error creating temporary file: %w", err)
	}
	tempFileName := tempFile.Name()
	defer os.Remove(tempFileName)

	if _, err := tempFile.Write(yamlData); err != nil {
		tempFile.Close()
		return fmt.Errorf("error writing to temporary file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("error closing temporary file: %w", err)
	}

	if err := os.Rename(tempFileName, configPath); err != nil {
		// rename fails across devices
		if err := moveFile(tempFileName, configPath); err != nil {
			return fmt.Errorf("error copying config file: %w", err)
		}
	}

	return nil
}

// GenerateRandomSecret returns n random bytes encoded as URL-safe base64 without padding.
func GenerateRandomSecret(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate random secret: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
