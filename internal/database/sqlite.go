package database

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/codyseavey/pokebinder/internal/config"
	"github.com/codyseavey/pokebinder/internal/logger"
	"github.com/codyseavey/pokebinder/internal/models"
)

// Open connects to the sqlite database at cfg.Path, migrates the schema and
// runs the data migrations.
func Open(cfg config.DBConfig, log *zap.Logger) (*gorm.DB, error) {
	log = logger.OrNop(log)

	if dir := filepath.Dir(cfg.Path); cfg.Path != ":memory:" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	mode := gormlogger.Silent
	if cfg.LogSQL {
		mode = gormlogger.Info
	}
	db, err := gorm.Open(sqlite.Open(cfg.Path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(mode),
	})
	if err != nil {
		return nil, err
	}

	// sqlite allows one writer; a single connection also keeps :memory: databases shared.
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	log.Info("database connected", zap.String("path", cfg.Path))

	if err := Migrate(db, log); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate applies the schema and the data migrations.
func Migrate(db *gorm.DB, log *zap.Logger) error {
	log = logger.OrNop(log)
	if err := db.AutoMigrate(&models.OwnedCard{}, &models.Collection{}, &models.CollectionValueSnapshot{}); err != nil {
		return err
	}
	log.Info("database migration completed")
	return RunMigrations(db, log)
}

func Close(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
