package storage

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"trainingclub/internal/core"
)

const attendanceSelect = `
	SELECT a.id, a.member_id, m.given_name || ' ' || m.family_name, a.attended_at
	FROM attendance a
	JOIN members m ON m.id = a.member_id`

// InsertAttendance records a check-in for the club-local day of at. A second
// insert for the same member and day affects no rows and reports
// AlreadyRecorded; the UNIQUE (member_id, day) constraint settles races.
func (r *SQLiteRepository) InsertAttendance(ctx context.Context, memberID string, at time.Time) (core.AttendanceRecord, error) {
	local := at.In(r.loc).Truncate(time.Second)
	day := r.formatDate(local)

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO attendance (member_id, attended_at, day)
		VALUES (?, ?, ?)
		ON CONFLICT (member_id, day) DO NOTHING`,
		memberID, r.formatTimestamp(local), day,
	)
	if err != nil {
		return core.AttendanceRecord{}, core.StorageError("insert attendance", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return core.AttendanceRecord{}, core.StorageError("insert attendance", fmt.Errorf("rows affected: %w", err))
	}
	if n == 0 {
		return core.AttendanceRecord{}, core.AlreadyRecordedf("member %s already checked in on %s", memberID, day)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.AttendanceRecord{}, core.StorageError("insert attendance", fmt.Errorf("last insert id: %w", err))
	}

	slog.InfoContext(ctx, "Attendance saved to SQLite", "id", id, "member_id", memberID, "day", day)
	return core.AttendanceRecord{ID: id, MemberID: memberID, At: local}, nil
}

func (r *SQLiteRepository) GetAttendance(ctx context.Context, id int64) (core.AttendanceRecord, error) {
	rows, err := r.queryAttendance(ctx, "get attendance", attendanceSelect+` WHERE a.id = ?`, id)
	if err != nil {
		return core.AttendanceRecord{}, err
	}
	if len(rows) == 0 {
		return core.AttendanceRecord{}, core.NotFoundf("attendance %s not found", strconv.FormatInt(id, 10))
	}
	return rows[0], nil
}

// ListAttendanceByDay returns the club-local day's check-ins, earliest first.
func (r *SQLiteRepository) ListAttendanceByDay(ctx context.Context, day time.Time) ([]core.AttendanceRecord, error) {
	return r.queryAttendance(ctx, "list attendance by day",
		attendanceSelect+` WHERE a.day = ? ORDER BY a.attended_at, a.id`, formatCalendarDate(day))
}

// ListMemberAttendance returns a member's check-ins on days in [start, end].
func (r *SQLiteRepository) ListMemberAttendance(ctx context.Context, memberID string, start, end time.Time) ([]core.AttendanceRecord, error) {
	return r.queryAttendance(ctx, "list member attendance",
		attendanceSelect+` WHERE a.member_id = ? AND a.day BETWEEN ? AND ? ORDER BY a.attended_at, a.id`,
		memberID, formatCalendarDate(start), formatCalendarDate(end))
}

// CountAttendanceByDay maps day-of-month to the number of check-ins in ym.
func (r *SQLiteRepository) CountAttendanceByDay(ctx context.Context, ym core.YearMonth) (map[int]int, error) {
	first := ym.FirstDay(r.loc)
	last := time.Date(ym.Year, ym.Month, ym.DaysIn(), 0, 0, 0, 0, r.loc)

	rows, err := r.db.QueryContext(ctx, `
		SELECT day, COUNT(*) FROM attendance
		WHERE day BETWEEN ? AND ?
		GROUP BY day`, formatCalendarDate(first), formatCalendarDate(last))
	if err != nil {
		return nil, core.StorageError("count attendance by day", err)
	}
	defer rows.Close()

	counts := make(map[int]int)
	for rows.Next() {
		var (
			day string
			n   int
		)
		if err := rows.Scan(&day, &n); err != nil {
			return nil, core.StorageError("count attendance by day", err)
		}
		d, err := r.parseDate(day)
		if err != nil {
			return nil, core.StorageError("count attendance by day", err)
		}
		counts[d.Day()] = n
	}
	if err := rows.Err(); err != nil {
		return nil, core.StorageError("count attendance by day", err)
	}
	return counts, nil
}

func (r *SQLiteRepository) queryAttendance(ctx context.Context, op, query string, args ...any) ([]core.AttendanceRecord, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, core.StorageError(op, err)
	}
	defer rows.Close()

	var out []core.AttendanceRecord
	for rows.Next() {
		var (
			rec core.AttendanceRecord
			at  string
		)
		if err := rows.Scan(&rec.ID, &rec.MemberID, &rec.MemberName, &at); err != nil {
			return nil, core.StorageError(op, err)
		}
		if rec.At, err = r.parseTimestamp(at); err != nil {
			return nil, core.StorageError(op, err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, core.StorageError(op, err)
	}
	return out, nil
}
