package datastore

import (
	"net"
	"strconv"
	"time"

	mysqldriver "github.com/go-sql-driver/mysql"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/tphakala/surveygen/internal/conf"
	"github.com/tphakala/surveygen/internal/errors"
	"github.com/tphakala/surveygen/internal/logger"
)

// MySQLStore implements DataStore for MySQL
type MySQLStore struct {
	DataStore
	Settings *conf.Settings
}

func validateMySQLConfig(settings *conf.Settings) error {
	cfg := settings.Database.MySQL
	switch {
	case cfg.Host == "":
		return errors.ConfigurationError("datastore", "database.mysql.host", cfg.Host, "mysql host is empty")
	case cfg.Database == "":
		return errors.ConfigurationError("datastore", "database.mysql.database", cfg.Database, "mysql database name is empty")
	case cfg.Port <= 0:
		return errors.ConfigurationError("datastore", "database.mysql.port", cfg.Port, "invalid mysql port %d", cfg.Port)
	}
	return nil
}

// mysqlDSN builds the connection string from settings
func mysqlDSN(settings *conf.MySQLSettings) string {
	cfg := mysqldriver.NewConfig()
	cfg.User = settings.Username
	cfg.Passwd = settings.Password
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(settings.Host, strconv.Itoa(settings.Port))
	cfg.DBName = settings.Database
	cfg.ParseTime = true
	cfg.Loc = time.Local
	cfg.Params = map[string]string{"charset": "utf8mb4"}
	return cfg.FormatDSN()
}

// Open sets up the MySQL database connection and migrates the schema
func (store *MySQLStore) Open() error {
	if err := validateMySQLConfig(store.Settings); err != nil {
		return err
	}

	db, err := gorm.Open(mysql.Open(mysqlDSN(&store.Settings.Database.MySQL)), &gorm.Config{
		Logger: logger.NewGormLoggerAdapter(store.logger, store.Settings.Database.SlowQueryThreshold),
	})
	if err != nil {
		store.logger.Error("failed to open MySQL database",
			logger.String("host", store.Settings.Database.MySQL.Host),
			logger.Int("port", store.Settings.Database.MySQL.Port),
			logger.String("database", store.Settings.Database.MySQL.Database),
			logger.Error(err))
		return dbError(err, "open_mysql", "host", store.Settings.Database.MySQL.Host)
	}

	store.DB = db
	return performAutoMigration(db, "mysql", store.logger)
}

// Close releases the MySQL connection pool
func (store *MySQLStore) Close() error {
	return closeDB(store.DB, store.logger)
}
