package datastore

import (
	"os"
	"path/filepath"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/tphakala/surveygen/internal/conf"
	"github.com/tphakala/surveygen/internal/errors"
	"github.com/tphakala/surveygen/internal/logger"
)

// SQLiteStore implements DataStore for SQLite
type SQLiteStore struct {
	DataStore
	Settings *conf.Settings
}

func validateSQLiteConfig(settings *conf.Settings) error {
	if settings.Database.SQLite.Path == "" {
		return errors.ConfigurationError("datastore", "database.sqlite.path", "", "sqlite path is empty")
	}
	return nil
}

// Open sets up the SQLite database connection and migrates the schema
func (store *SQLiteStore) Open() error {
	if err := validateSQLiteConfig(store.Settings); err != nil {
		return err
	}

	path := store.Settings.Database.SQLite.Path
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.New(err).
				Component("datastore").
				Category(errors.CategoryFileIO).
				FileContext(dir).
				Build()
		}
	}

	// Foreign keys are off by default in SQLite; busy timeout avoids spurious lock errors
	dsn := "file:" + path + "?_foreign_keys=on&_busy_timeout=5000"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.NewGormLoggerAdapter(store.logger, store.Settings.Database.SlowQueryThreshold),
	})
	if err != nil {
		return dbError(err, "open_sqlite", "path", path)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return dbError(err, "open_sqlite", "path", path)
	}
	// a single writer connection keeps transactions serialized
	sqlDB.SetMaxOpenConns(1)

	store.DB = db
	return performAutoMigration(db, "sqlite", store.logger)
}

// Close releases the SQLite connection
func (store *SQLiteStore) Close() error {
	return closeDB(store.DB, store.logger)
}
