package database

import (
	"fmt"

	sqlite "github.com/glebarez/sqlite"
	"github.com/memoka-app/memoka/internal/notes"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// OpenSQLite establishes a SQLite connection and performs schema migrations.
// The returned handle keeps a single open connection so the foreign-key
// pragma stays in effect for the whole process lifetime.
func OpenSQLite(path string, logger *zap.Logger) (*gorm.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("database path is required")
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
		return nil, err
	}

	// Data repairs run before AutoMigrate so rows violating a constraint
	// introduced later (the unique tag name index) can still be fixed up.
	if err := db.AutoMigrate(&migrationRecord{}); err != nil {
		return nil, err
	}
	if err := applyMigrations(db, logger); err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(&notes.NoteRecord{}, &notes.TagRecord{}, &notes.NoteTagRecord{}); err != nil {
		return nil, err
	}

	if logger != nil {
		logger.Info("database initialized", zap.String("path", path))
	}

	return db, nil
}
