package database

import (
	"fmt"
	"os"
	"path/filepath"

	"quizforge/internal/config"
	"quizforge/internal/logger"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// ConnectDatabase opens the sqlite question bank at the configured path,
// creating parent directories as needed, and verifies the connection.
func ConnectDatabase(cfg *config.DBConfig) (*sqlx.DB, error) {
	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sqlx.Connect("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database at %s: %w", cfg.Path, err)
	}

	// sqlite serializes writers; a single connection avoids busy errors.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA foreign_keys = ON`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	logger.Get().Info("Connected to question database", zap.String("path", cfg.Path))
	return db, nil
}
