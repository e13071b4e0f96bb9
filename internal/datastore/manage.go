package datastore

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tphakala/surveygen/internal/conf"
	"github.com/tphakala/surveygen/internal/errors"
	"github.com/tphakala/surveygen/internal/logger"
)

// performAutoMigration creates or updates every table
func performAutoMigration(db *gorm.DB, dbType string, log logger.Logger) error {
	migrationStart := time.Now()
	migrationLogger := log.With(logger.String("db_type", dbType))
	migrationLogger.Debug("starting database migration")

	for _, model := range allModels() {
		if err := db.AutoMigrate(model); err != nil {
			return errors.New(err).
				Component("datastore").
				Category(errors.CategoryDatabase).
				Context("operation", "auto_migrate").
				Context("db_type", dbType).
				Context("model", model).
				Build()
		}
	}

	migrationLogger.Debug("database migration completed",
		logger.Duration("total_duration", time.Since(migrationStart)),
		logger.Int("tables_migrated", len(allModels())))
	return nil
}

// closeDB closes the connection pool behind db
func closeDB(db *gorm.DB, log logger.Logger) error {
	if db == nil {
		return errors.Newf("database connection is not initialized").
			Component("datastore").
			Category(errors.CategoryState).
			Build()
	}

	sqlDB, err := db.DB()
	if err != nil {
		return dbError(err, "close")
	}
	if err := sqlDB.Close(); err != nil {
		return dbError(err, "close")
	}
	log.Debug("database connection closed")
	return nil
}

// SeedDiseases stores the configured diseases, updating names of existing tokens
func SeedDiseases(ctx context.Context, store Store, diseases []conf.DiseaseSettings) error {
	records := make([]Disease, 0, len(diseases))
	for _, d := range diseases {
		records = append(records, Disease{Token: d.Token, Name: d.Name})
	}
	return store.SaveDiseases(ctx, records)
}
