package dbhelper

import (
	"fmt"
	"os"
	"testing"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"closetapi/config"
	"closetapi/models"
)

func DSN(cfg config.DBConfig) string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s", cfg.Username, cfg.Password, cfg.Host, cfg.Port, cfg.Name)
}

func SetupDB(cfg config.DBConfig) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(DSN(cfg)), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("database handle: %w", err)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Minute * 5)

	if err := Migrate(db, &models.Clothing{}, &models.UserPushToken{}); err != nil {
		return nil, err
	}
	return db, nil
}

// SetupTestDB connects to the database named by TEST_DB_* variables and skips
// the test when TEST_DB_HOST is unset.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	host := os.Getenv("TEST_DB_HOST")
	if host == "" {
		t.Skip("TEST_DB_HOST not set, skipping database test")
	}

	cfg := config.DBConfig{
		Username: envOr("TEST_DB_USERNAME", "closet"),
		Password: envOr("TEST_DB_PASSWORD", "closet"),
		Host:     host,
		Port:     envOr("TEST_DB_PORT", "5432"),
		Name:     envOr("TEST_DB_NAME", "closet_test"),
	}
	db, err := SetupDB(cfg)
	if err != nil {
		t.Fatalf("setup test db: %v", err)
	}
	t.Cleanup(SetupCleaner(db))
	return db
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
