package database

import (
	"fmt"
	"time"

	"github.com/junaidrashid-git/shopcart-api/models"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Options returns the gorm configuration shared by every dialect. Timestamps are
// stored in UTC so that expiry comparisons are stable across hosts. Query logs go
// to logger.
func Options(logger *zap.Logger) *gorm.Config {
	return &gorm.Config{
		Logger:  NewGormLogger(logger),
		NowFunc: func() time.Time { return time.Now().UTC() },
	}
}

// Open connects to postgres using dsn.
func Open(dsn string, logger *zap.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), Options(logger))
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("database handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	return db, nil
}

// Migrate creates or updates every table.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
