package main

import (
	"fmt"
	"os"

	"quizforge/internal/config"
	"quizforge/internal/database"
	"quizforge/internal/logger"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := logger.Initialize(cfg.Logger); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	db, err := database.ConnectDatabase(&cfg.DB)
	if err != nil {
		logger.Get().Fatal("Failed to connect question database", zap.Error(err))
	}
	defer db.Close()

	if err := database.RunMigrations(db); err != nil {
		logger.Get().Fatal("Migration failed", zap.Error(err))
	}
	logger.Get().Info("Migrations complete", zap.String("path", cfg.DB.Path))
}
