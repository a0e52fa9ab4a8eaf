package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"trainingclub/internal/core"
)

const ledgerColumns = `id, description, amount_cents, type, entry_date, category, notes, created_at`

// CreateLedgerEntry stores e as given; sign normalization happens before.
func (r *SQLiteRepository) CreateLedgerEntry(ctx context.Context, e core.LedgerEntry) (core.LedgerEntry, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO ledger_entries (description, amount_cents, type, entry_date, category, notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.Description, e.Amount.Cents, string(e.Type), formatCalendarDate(e.Date), e.Category, e.Notes, r.formatTimestamp(e.CreatedAt),
	)
	if err != nil {
		return core.LedgerEntry{}, core.StorageError("create ledger entry", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.LedgerEntry{}, core.StorageError("create ledger entry", fmt.Errorf("last insert id: %w", err))
	}

	slog.InfoContext(ctx, "Ledger entry saved to SQLite",
		"id", id,
		"description", e.Description,
		"amount_cents", e.Amount.Cents,
		"type", e.Type,
		"date", formatCalendarDate(e.Date))
	return r.GetLedgerEntry(ctx, id)
}

func (r *SQLiteRepository) GetLedgerEntry(ctx context.Context, id int64) (core.LedgerEntry, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+ledgerColumns+` FROM ledger_entries WHERE id = ?`, id)
	e, err := r.scanLedger(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.LedgerEntry{}, core.NotFoundf("ledger entry %d not found", id)
	}
	if err != nil {
		return core.LedgerEntry{}, core.StorageError("get ledger entry", err)
	}
	return e, nil
}

// DeleteLedgerEntry removes the row and returns what was deleted.
func (r *SQLiteRepository) DeleteLedgerEntry(ctx context.Context, id int64) (core.LedgerEntry, error) {
	var deleted core.LedgerEntry
	err := r.withTx(ctx, "delete ledger entry", func(tx *sql.Tx) error {
		e, err := r.scanLedger(tx.QueryRowContext(ctx, `SELECT `+ledgerColumns+` FROM ledger_entries WHERE id = ?`, id))
		if errors.Is(err, sql.ErrNoRows) {
			return core.NotFoundf("ledger entry %d not found", id)
		}
		if err != nil {
			return core.StorageError("delete ledger entry", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM ledger_entries WHERE id = ?`, id); err != nil {
			return core.StorageError("delete ledger entry", err)
		}
		deleted = e
		return nil
	})
	if err != nil {
		return core.LedgerEntry{}, err
	}

	slog.InfoContext(ctx, "Ledger entry deleted", "id", id)
	return deleted, nil
}

// ListLedgerEntries returns entries dated in [start, end], newest first.
func (r *SQLiteRepository) ListLedgerEntries(ctx context.Context, start, end time.Time) ([]core.LedgerEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+ledgerColumns+` FROM ledger_entries
		WHERE entry_date BETWEEN ? AND ?
		ORDER BY entry_date DESC, id DESC`, formatCalendarDate(start), formatCalendarDate(end))
	if err != nil {
		return nil, core.StorageError("list ledger entries", err)
	}
	defer rows.Close()

	var out []core.LedgerEntry
	for rows.Next() {
		e, err := r.scanLedger(rows)
		if err != nil {
			return nil, core.StorageError("list ledger entries", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, core.StorageError("list ledger entries", err)
	}
	return out, nil
}

func (r *SQLiteRepository) scanLedger(row rowScanner) (core.LedgerEntry, error) {
	var (
		e                    core.LedgerEntry
		cents                int64
		typ, date, createdAt string
	)
	if err := row.Scan(&e.ID, &e.Description, &cents, &typ, &date, &e.Category, &e.Notes, &createdAt); err != nil {
		return e, err
	}
	e.Amount = core.Cents(cents)
	e.Type = core.PaymentType(typ)
	var err error
	if e.Date, err = r.parseDate(date); err != nil {
		return e, err
	}
	if e.CreatedAt, err = r.parseTimestamp(createdAt); err != nil {
		return e, err
	}
	return e, nil
}
