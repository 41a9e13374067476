// Package cli provides common CLI initialization utilities shared by
// cmd/vendite and cmd/vendite-worker.
package cli

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"vendite/internal/catalog"
	"vendite/internal/config"
	"vendite/internal/storage"
)

// SetupLogger initializes structured logging with default settings.
// Returns the configured logger and sets it as the default logger.
func SetupLogger() *slog.Logger {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on validation failure.
func LoadAndValidateConfig(logger *slog.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	return cfg
}

// InitStore opens the SQLite store, which runs the schema migration and
// legacy transform. Migration failure is fatal: the process must not
// serve requests against an inconsistent schema.
func InitStore(logger *slog.Logger, dbPath string) *storage.Repository {
	store, err := storage.NewRepository(dbPath, catalog.DefaultCategory, catalog.DefaultSubCategory)
	if err != nil {
		logger.Error("Failed to initialize store", "error", err, "path", dbPath)
		os.Exit(1)
	}
	return store
}
