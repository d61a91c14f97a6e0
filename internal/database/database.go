package database

import (
	"fmt"
	"log"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/streamherald/streamherald-bot/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DB is the process-wide gorm handle, set by Init.
var DB *gorm.DB

// Init opens the database and migrates the schema. dbType is "sqlite" or
// "postgres"; connString is a file path or a DSN respectively.
func Init(dbType, connString string) error {
	var dialector gorm.Dialector
	switch dbType {
	case "postgres":
		dialector = postgres.Open(connString)
	case "sqlite":
		dialector = sqlite.Open(connString)
	default:
		return fmt.Errorf("unsupported database type: %s", dbType)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetConnMaxLifetime(time.Hour)

	err = db.AutoMigrate(
		&models.Notification{},
		&models.BirthdayGuild{},
		&models.BirthdayUser{},
		&models.UserTimezone{},
		&models.ServiceStatus{},
		&models.APIHealthStat{},
		&models.Report{},
	)
	if err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}

	DB = db
	log.Printf("Database initialized (%s)", dbType)
	return nil
}

// Close closes the underlying connection pool.
func Close() {
	if DB == nil {
		return
	}
	sqlDB, err := DB.DB()
	if err != nil {
		log.Printf("Error getting underlying sql.DB on close: %v", err)
		return
	}
	if err := sqlDB.Close(); err != nil {
		log.Printf("Error closing database: %v", err)
	}
}

const (
	maxRetries = 3
	retryDelay = 100 * time.Millisecond
)

// WithRetry runs op, retrying transient failures with a short linear backoff.
func WithRetry(op func() error) error {
	var err error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if err = op(); err == nil {
			return nil
		}
		if attempt < maxRetries-1 {
			time.Sleep(retryDelay * time.Duration(attempt+1))
		}
	}
	return err
}
