package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"trainingclub/internal/core"
)

const memberColumns = `id, given_name, family_name, email, birth_date, rank, joined_at, role, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *SQLiteRepository) scanMember(row rowScanner) (core.Member, error) {
	var (
		m                  core.Member
		birth, joined      sql.NullString
		role, createdAtStr string
	)
	if err := row.Scan(&m.ID, &m.GivenName, &m.FamilyName, &m.Email, &birth, &m.Rank, &joined, &role, &createdAtStr); err != nil {
		return m, err
	}
	m.Role = core.Role(role)
	var err error
	if m.BirthDate, err = r.parseNullDate(birth); err != nil {
		return m, err
	}
	if m.JoinedAt, err = r.parseNullDate(joined); err != nil {
		return m, err
	}
	if m.CreatedAt, err = r.parseTimestamp(createdAtStr); err != nil {
		return m, err
	}
	return m, nil
}

func (r *SQLiteRepository) CreateMember(ctx context.Context, m core.Member) error {
	if m.Role == "" {
		m.Role = core.RoleMember
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO members (`+memberColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.GivenName, m.FamilyName, strings.TrimSpace(m.Email),
		nullDate(m.BirthDate), m.Rank, nullDate(m.JoinedAt), string(m.Role), r.formatTimestamp(m.CreatedAt),
	)
	if isUniqueViolation(err) {
		return core.Invalidf("email %s is already registered", m.Email)
	}
	if err != nil {
		return core.StorageError("create member", err)
	}

	slog.InfoContext(ctx, "Member saved to SQLite", "member_id", m.ID, "email", m.Email, "role", m.Role)
	return nil
}

// UpdateMember rewrites profile fields. Role and createdAt are untouched.
func (r *SQLiteRepository) UpdateMember(ctx context.Context, m core.Member) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE members
		SET given_name = ?, family_name = ?, email = ?, birth_date = ?, rank = ?, joined_at = ?
		WHERE id = ?`,
		m.GivenName, m.FamilyName, strings.TrimSpace(m.Email),
		nullDate(m.BirthDate), m.Rank, nullDate(m.JoinedAt), m.ID,
	)
	if isUniqueViolation(err) {
		return core.Invalidf("email %s is already registered", m.Email)
	}
	if err != nil {
		return core.StorageError("update member", err)
	}
	return expectOneRow(res, "update member", "member %s not found", m.ID)
}

func (r *SQLiteRepository) UpdateMemberRole(ctx context.Context, id string, role core.Role) error {
	res, err := r.db.ExecContext(ctx, `UPDATE members SET role = ? WHERE id = ?`, string(role), id)
	if err != nil {
		return core.StorageError("update member role", err)
	}
	if err := expectOneRow(res, "update member role", "member %s not found", id); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Member role updated", "member_id", id, "role", role)
	return nil
}

func (r *SQLiteRepository) GetMember(ctx context.Context, id string) (core.Member, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+memberColumns+` FROM members WHERE id = ?`, id)
	m, err := r.scanMember(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Member{}, core.NotFoundf("member %s not found", id)
	}
	if err != nil {
		return core.Member{}, core.StorageError("get member", err)
	}
	return m, nil
}

func (r *SQLiteRepository) GetMemberByEmail(ctx context.Context, email string) (core.Member, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+memberColumns+` FROM members WHERE email = ? COLLATE NOCASE`, strings.TrimSpace(email))
	m, err := r.scanMember(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Member{}, core.NotFoundf("member with email %s not found", email)
	}
	if err != nil {
		return core.Member{}, core.StorageError("get member by email", err)
	}
	return m, nil
}

// ListMembers returns every member ordered by family then given name.
func (r *SQLiteRepository) ListMembers(ctx context.Context) ([]core.Member, error) {
	return r.queryMembers(ctx, "list members", `
		SELECT `+memberColumns+` FROM members
		ORDER BY family_name COLLATE NOCASE, given_name COLLATE NOCASE, id`)
}

// SearchMembers matches term against names and email, case-insensitively.
func (r *SQLiteRepository) SearchMembers(ctx context.Context, term string, limit int) ([]core.Member, error) {
	like := "%" + escapeLike(strings.TrimSpace(term)) + "%"
	return r.queryMembers(ctx, "search members", `
		SELECT `+memberColumns+` FROM members
		WHERE given_name LIKE ? ESCAPE '\'
		   OR family_name LIKE ? ESCAPE '\'
		   OR email LIKE ? ESCAPE '\'
		   OR (given_name || ' ' || family_name) LIKE ? ESCAPE '\'
		ORDER BY family_name COLLATE NOCASE, given_name COLLATE NOCASE, id
		LIMIT ?`, like, like, like, like, limit)
}

func (r *SQLiteRepository) queryMembers(ctx context.Context, op, query string, args ...any) ([]core.Member, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, core.StorageError(op, err)
	}
	defer rows.Close()

	var members []core.Member
	for rows.Next() {
		m, err := r.scanMember(rows)
		if err != nil {
			return nil, core.StorageError(op, err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, core.StorageError(op, err)
	}
	return members, nil
}

// DeleteMember removes the member with their attendance and fee rows.
func (r *SQLiteRepository) DeleteMember(ctx context.Context, id string) error {
	err := r.withTx(ctx, "delete member", func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM attendance WHERE member_id = ?`, id); err != nil {
			return core.StorageError("delete member attendance", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM membership_fees WHERE member_id = ?`, id); err != nil {
			return core.StorageError("delete member fees", err)
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM members WHERE id = ?`, id)
		if err != nil {
			return core.StorageError("delete member", err)
		}
		return expectOneRow(res, "delete member", "member %s not found", id)
	})
	if err != nil {
		return err
	}
	slog.InfoContext(ctx, "Member deleted", "member_id", id)
	return nil
}

func expectOneRow(res sql.Result, op, notFoundFormat string, args ...any) error {
	n, err := res.RowsAffected()
	if err != nil {
		return core.StorageError(op, fmt.Errorf("rows affected: %w", err))
	}
	if n == 0 {
		return core.NotFoundf(notFoundFormat, args...)
	}
	return nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
