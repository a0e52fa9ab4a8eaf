package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"trainingclub/internal/core"

	_ "modernc.org/sqlite"
)

// SQLiteRepository is the single store behind every service. Timestamps are
// written as club-local "YYYY-MM-DD HH:MM:SS" text and dates as "YYYY-MM-DD",
// so lexical comparison in SQL matches calendar order.
type SQLiteRepository struct {
	db  *sql.DB
	loc *time.Location
}

func NewSQLiteRepository(dbPath string, loc *time.Location) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", DSN(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return NewWithDB(db, loc), nil
}

// NewWithDB wraps an already opened database. Migrations are not run.
func NewWithDB(db *sql.DB, loc *time.Location) *SQLiteRepository {
	if loc == nil {
		loc = time.Local
	}
	return &SQLiteRepository{db: db, loc: loc}
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping backs the readiness probe.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return core.StorageError("ping database", err)
	}
	return nil
}

func (r *SQLiteRepository) Location() *time.Location { return r.loc }

func (r *SQLiteRepository) formatTimestamp(t time.Time) string {
	return t.In(r.loc).Format(core.TimestampLayout)
}

func (r *SQLiteRepository) formatDate(t time.Time) string {
	return t.In(r.loc).Format(core.DateLayout)
}

// formatCalendarDate keeps t's own calendar day; used for values that are
// already dates (ledger dates, effective-from days) rather than instants.
func formatCalendarDate(t time.Time) string {
	return t.Format(core.DateLayout)
}

func (r *SQLiteRepository) parseTimestamp(s string) (time.Time, error) {
	t, err := time.ParseInLocation(core.TimestampLayout, s, r.loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}

func (r *SQLiteRepository) parseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(core.DateLayout, s, r.loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return t, nil
}

func (r *SQLiteRepository) parseNullDate(ns sql.NullString) (time.Time, error) {
	if !ns.Valid || ns.String == "" {
		return time.Time{}, nil
	}
	return r.parseDate(ns.String)
}

func nullDate(t time.Time) sql.NullString {
	if t.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: formatCalendarDate(t), Valid: true}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func (r *SQLiteRepository) withTx(ctx context.Context, op string, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.StorageError(op, fmt.Errorf("begin transaction: %w", err))
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return core.StorageError(op, fmt.Errorf("commit: %w", err))
	}
	return nil
}
