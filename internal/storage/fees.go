package storage

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"trainingclub/internal/core"
)

// UpsertFeeStatus sets one (member, year, month) cell. paidAt is now when
// paid and cleared otherwise; createdAt is only written on insert.
func (r *SQLiteRepository) UpsertFeeStatus(ctx context.Context, memberID string, year, month int, isPaid bool, now time.Time) (core.FeeStatus, error) {
	var paidAt sql.NullString
	if isPaid {
		paidAt = sql.NullString{String: r.formatTimestamp(now), Valid: true}
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO membership_fees (member_id, year, month, is_paid, paid_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (member_id, year, month) DO UPDATE
		SET is_paid = excluded.is_paid, paid_at = excluded.paid_at`,
		memberID, year, month, boolToInt(isPaid), paidAt, r.formatTimestamp(now),
	)
	if err != nil {
		return core.FeeStatus{}, core.StorageError("upsert fee status", err)
	}

	slog.InfoContext(ctx, "Fee status saved to SQLite", "member_id", memberID, "year", year, "month", month, "is_paid", isPaid)
	return r.GetFeeStatus(ctx, memberID, year, month)
}

func (r *SQLiteRepository) GetFeeStatus(ctx context.Context, memberID string, year, month int) (core.FeeStatus, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT member_id, year, month, is_paid, paid_at, created_at
		FROM membership_fees
		WHERE member_id = ? AND year = ? AND month = ?`, memberID, year, month)
	fs, err := r.scanFee(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.FeeStatus{}, core.NotFoundf("no fee row for member %s in %d-%02d", memberID, year, month)
	}
	if err != nil {
		return core.FeeStatus{}, core.StorageError("get fee status", err)
	}
	return fs, nil
}

// ListFeeStatuses returns every stored row for year.
func (r *SQLiteRepository) ListFeeStatuses(ctx context.Context, year int) ([]core.FeeStatus, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT member_id, year, month, is_paid, paid_at, created_at
		FROM membership_fees
		WHERE year = ?
		ORDER BY member_id, month`, year)
	if err != nil {
		return nil, core.StorageError("list fee statuses", err)
	}
	defer rows.Close()

	var out []core.FeeStatus
	for rows.Next() {
		fs, err := r.scanFee(rows)
		if err != nil {
			return nil, core.StorageError("list fee statuses", err)
		}
		out = append(out, fs)
	}
	if err := rows.Err(); err != nil {
		return nil, core.StorageError("list fee statuses", err)
	}
	return out, nil
}

// CountPaidByMonth counts paid rows per month for months in [from, to].
func (r *SQLiteRepository) CountPaidByMonth(ctx context.Context, from, to core.YearMonth) (core.PaidCounts, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT year, month, COUNT(*)
		FROM membership_fees
		WHERE is_paid = 1 AND (year * 100 + month) BETWEEN ? AND ?
		GROUP BY year, month`, from.Key(), to.Key())
	if err != nil {
		return nil, core.StorageError("count paid fees", err)
	}
	defer rows.Close()

	counts := make(core.PaidCounts)
	for rows.Next() {
		var year, month, n int
		if err := rows.Scan(&year, &month, &n); err != nil {
			return nil, core.StorageError("count paid fees", err)
		}
		counts[core.YearMonth{Year: year, Month: time.Month(month)}] = n
	}
	if err := rows.Err(); err != nil {
		return nil, core.StorageError("count paid fees", err)
	}
	return counts, nil
}

func (r *SQLiteRepository) scanFee(row rowScanner) (core.FeeStatus, error) {
	var (
		fs        core.FeeStatus
		isPaid    int
		paidAt    sql.NullString
		createdAt string
	)
	if err := row.Scan(&fs.MemberID, &fs.Year, &fs.Month, &isPaid, &paidAt, &createdAt); err != nil {
		return fs, err
	}
	fs.IsPaid = isPaid != 0
	if paidAt.Valid {
		t, err := r.parseTimestamp(paidAt.String)
		if err != nil {
			return fs, err
		}
		fs.PaidAt = &t
	}
	var err error
	if fs.CreatedAt, err = r.parseTimestamp(createdAt); err != nil {
		return fs, err
	}
	return fs, nil
}
