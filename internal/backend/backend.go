// Package backend selects the spreadsheet target the export worker writes to.
package backend

import (
	"context"
	"fmt"
	"log/slog"

	"trainingclub/internal/config"
	"trainingclub/internal/sheets"
	gsheet "trainingclub/internal/sheets/google"
	"trainingclub/internal/sheets/memory"
)

// Type names an export backend.
type Type string

const (
	MemoryBackend Type = "memory"
	SheetsBackend Type = "sheets"
)

func (t Type) String() string {
	return string(t)
}

func (t Type) IsValid() bool {
	switch t {
	case MemoryBackend, SheetsBackend:
		return true
	default:
		return false
	}
}

// Config holds what backend creation needs.
type Config struct {
	Type Type

	GoogleSpreadsheetID      string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string
}

// FromAppConfig converts the application config to backend config. An
// empty EXPORT_BACKEND means memory.
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}
	t := Type(appConfig.ExportBackend)
	if t == "" {
		t = MemoryBackend
	}
	c := Config{
		Type:                     t,
		GoogleSpreadsheetID:      appConfig.GoogleSpreadsheetID,
		GoogleServiceAccountJSON: appConfig.GoogleServiceAccountJSON,
		GoogleServiceAccountFile: appConfig.GoogleServiceAccountFile,
	}
	return c, c.Validate()
}

func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}
	if c.Type == SheetsBackend && c.GoogleSpreadsheetID == "" {
		return fmt.Errorf("Google Spreadsheet ID is required for sheets backend")
	}
	return nil
}

// Create returns the row appender for c.
func Create(ctx context.Context, c Config, logger *slog.Logger) (sheets.RowAppender, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}

	switch c.Type {
	case SheetsBackend:
		client, err := gsheet.New(ctx, gsheet.Options{
			SpreadsheetID:   c.GoogleSpreadsheetID,
			CredentialsJSON: c.GoogleServiceAccountJSON,
			CredentialsFile: c.GoogleServiceAccountFile,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
		}
		logger.Info("Initialized Google Sheets backend", "spreadsheet_id", c.GoogleSpreadsheetID)
		return client, nil
	default:
		logger.Info("Initialized memory backend, exported rows are kept in process only")
		return memory.New(), nil
	}
}
