// Package cli provides common CLI initialization utilities shared by
// cmd/trainingclub and cmd/export-worker.
package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"trainingclub/internal/config"
	clublog "trainingclub/internal/log"
	"trainingclub/internal/storage"
)

// SetupLogger builds a text logger at level for component and installs it
// as the slog default.
func SetupLogger(level slog.Level, component string) *clublog.Logger {
	logger := clublog.New(clublog.Config{
		Level:     level,
		Component: component,
		Handler:   slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}),
	})
	clublog.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on validation failure.
func LoadAndValidateConfig(logger *clublog.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	return cfg
}

// ClubLocation resolves the configured club time zone or exits.
func ClubLocation(logger *clublog.Logger, cfg *config.Config) *time.Location {
	loc, err := cfg.Location()
	if err != nil {
		logger.Error("Invalid club timezone", "error", err, "timezone", cfg.ClubTimezone)
		os.Exit(1)
	}
	return loc
}

// InitSQLite opens the SQLite store at dbPath, applying migrations.
// Returns the repository or exits the process on failure.
func InitSQLite(logger *clublog.Logger, dbPath string, loc *time.Location) *storage.SQLiteRepository {
	repo, err := storage.NewSQLiteRepository(dbPath, loc)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", dbPath)
		os.Exit(1)
	}
	return repo
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}
