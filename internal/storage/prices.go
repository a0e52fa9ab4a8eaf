package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"trainingclub/internal/core"
)

const priceColumns = `id, price_cents, effective_from, description, is_active, created_at`

// AddPrice deactivates the active rows and inserts p as the active row in one
// transaction.
func (r *SQLiteRepository) AddPrice(ctx context.Context, p core.MembershipPrice) (core.MembershipPrice, error) {
	err := r.withTx(ctx, "add price", func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `UPDATE membership_prices SET is_active = 0 WHERE is_active = 1`); err != nil {
			return core.StorageError("deactivate prices", err)
		}
		res, err := tx.ExecContext(ctx, `
			INSERT INTO membership_prices (price_cents, effective_from, description, is_active, created_at)
			VALUES (?, ?, ?, 1, ?)`,
			p.Price.Cents, formatCalendarDate(p.EffectiveFrom), p.Description, r.formatTimestamp(p.CreatedAt),
		)
		if err != nil {
			return core.StorageError("insert price", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return core.StorageError("insert price", fmt.Errorf("last insert id: %w", err))
		}
		p.ID = id
		p.IsActive = true
		return nil
	})
	if err != nil {
		return core.MembershipPrice{}, err
	}

	slog.InfoContext(ctx, "Membership price saved to SQLite",
		"id", p.ID,
		"price_cents", p.Price.Cents,
		"effective_from", formatCalendarDate(p.EffectiveFrom))
	return r.GetPrice(ctx, p.ID)
}

func (r *SQLiteRepository) GetPrice(ctx context.Context, id int64) (core.MembershipPrice, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+priceColumns+` FROM membership_prices WHERE id = ?`, id)
	p, err := r.scanPrice(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.MembershipPrice{}, core.NotFoundf("price %d not found", id)
	}
	if err != nil {
		return core.MembershipPrice{}, core.StorageError("get price", err)
	}
	return p, nil
}

// ListPrices returns every schedule row, newest effective date first.
func (r *SQLiteRepository) ListPrices(ctx context.Context) ([]core.MembershipPrice, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+priceColumns+` FROM membership_prices
		ORDER BY effective_from DESC, id DESC`)
	if err != nil {
		return nil, core.StorageError("list prices", err)
	}
	defer rows.Close()

	var out []core.MembershipPrice
	for rows.Next() {
		p, err := r.scanPrice(rows)
		if err != nil {
			return nil, core.StorageError("list prices", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, core.StorageError("list prices", err)
	}
	return out, nil
}

func (r *SQLiteRepository) scanPrice(row rowScanner) (core.MembershipPrice, error) {
	var (
		p                 core.MembershipPrice
		cents             int64
		active            int
		from, createdAtTS string
	)
	if err := row.Scan(&p.ID, &cents, &from, &p.Description, &active, &createdAtTS); err != nil {
		return p, err
	}
	p.Price = core.Cents(cents)
	p.IsActive = active != 0
	var err error
	if p.EffectiveFrom, err = r.parseDate(from); err != nil {
		return p, err
	}
	if p.CreatedAt, err = r.parseTimestamp(createdAtTS); err != nil {
		return p, err
	}
	return p, nil
}
