package database

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/flaboy/aira-donate/pkg/config"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	migrateMu     sync.Mutex
	migrateModels []interface{}
)

// RegisterAutoMigrateModels is called from model init() functions.
func RegisterAutoMigrateModels(models ...interface{}) {
	migrateMu.Lock()
	defer migrateMu.Unlock()
	migrateModels = append(migrateModels, models...)
}

// Open connects to the configured database. Only postgres (and wire compatible
// services such as Supabase) is supported in production.
func Open(cfg *config.Config) (*gorm.DB, error) {
	if cfg.Database.Driver != "" && cfg.Database.Driver != "postgres" {
		return nil, fmt.Errorf("unsupported database driver '%s'", cfg.Database.Driver)
	}

	db, err := gorm.Open(postgres.Open(cfg.Database.DSN), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetMaxIdleConns(5)

	slog.Info("[Database] Connected", "driver", "postgres")
	return db, nil
}

// Migrate creates or updates the tables of every registered model.
func Migrate(db *gorm.DB) error {
	migrateMu.Lock()
	models := append([]interface{}(nil), migrateModels...)
	migrateMu.Unlock()

	if err := db.AutoMigrate(models...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	slog.Info("[Database] Migrated", "models", len(models))
	return nil
}
