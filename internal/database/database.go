package database

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"prepai-go/internal/config"
	logging "prepai-go/internal/logging"
	"prepai-go/internal/models"
)

// Open connects to the configured database and migrates the schema.
// Relative sqlite paths are resolved against projectRoot.
func Open(projectRoot string, conf config.DatabaseConfig, log *zap.Logger) (*gorm.DB, error) {
	dialector, err := dialectorFor(projectRoot, conf)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logging.NewGormZapLogger(log),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s database: %w", conf.Driver, err)
	}
	log.Info("Database connection established successfully.", zap.String("driver", conf.Driver))

	if err := runMigrations(db, log); err != nil {
		return nil, err
	}
	return db, nil
}

func dialectorFor(projectRoot string, conf config.DatabaseConfig) (gorm.Dialector, error) {
	switch conf.Driver {
	case "postgres":
		dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
			conf.Host, conf.User, conf.Password, conf.DBName, conf.Port)
		return postgres.Open(dsn), nil
	case "sqlite", "":
		path := conf.Path
		if path == "" {
			path = "data/prepai.db"
		}
		if path != ":memory:" {
			if !filepath.IsAbs(path) {
				path = filepath.Join(projectRoot, path)
			}
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
		// Cascading deletes of answers need foreign keys switched on.
		return sqlite.Open(path + "?_foreign_keys=on"), nil
	}
	return nil, fmt.Errorf("unsupported database driver %q", conf.Driver)
}

func runMigrations(db *gorm.DB, log *zap.Logger) error {
	if err := db.AutoMigrate(
		&models.InterviewRecord{},
		&models.AnswerRecord{},
	); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	answersIndex := `CREATE INDEX IF NOT EXISTS idx_answer_records_order ON answer_records (interview_id, position);`
	if err := db.Exec(answersIndex).Error; err != nil {
		return fmt.Errorf("failed to create custom index on answers table: %w", err)
	}
	log.Info("Database migrations completed successfully.")
	return nil
}
