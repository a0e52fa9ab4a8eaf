package core

import (
	"fmt"
	"strings"
	"time"
)

const (
	DateLayout      = "2006-01-02"
	TimestampLayout = "2006-01-02 15:04:05"
)

// Clock is the only source of "now" for the services.
type Clock interface {
	Now() time.Time
}

// SystemClock reads wall time in the club's location.
type SystemClock struct {
	Location *time.Location
}

func (c SystemClock) Now() time.Time {
	loc := c.Location
	if loc == nil {
		loc = time.Local
	}
	return time.Now().In(loc)
}

// FixedClock always returns T. Used by tests and replays.
type FixedClock struct {
	T time.Time
}

func (c FixedClock) Now() time.Time { return c.T }

// LoadLocation resolves a club time zone name; "" and "Local" mean the host zone.
func LoadLocation(name string) (*time.Location, error) {
	name = strings.TrimSpace(name)
	if name == "" || strings.EqualFold(name, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("load location %q: %w", name, err)
	}
	return loc, nil
}

// YearMonth identifies one calendar month.
type YearMonth struct {
	Year  int
	Month time.Month
}

func YearMonthOf(t time.Time) YearMonth {
	return YearMonth{Year: t.Year(), Month: t.Month()}
}

// FirstDay returns midnight of day 1 in loc.
func (ym YearMonth) FirstDay(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return time.Date(ym.Year, ym.Month, 1, 0, 0, 0, 0, loc)
}

// Next adds one calendar month and normalizes to day 1, so month length and
// leap years never shift the cursor.
func (ym YearMonth) Next() YearMonth {
	return YearMonthOf(time.Date(ym.Year, ym.Month+1, 1, 0, 0, 0, 0, time.UTC))
}

func (ym YearMonth) Before(other YearMonth) bool {
	if ym.Year != other.Year {
		return ym.Year < other.Year
	}
	return ym.Month < other.Month
}

// Contains reports whether t falls in this month (by t's own calendar fields).
func (ym YearMonth) Contains(t time.Time) bool {
	return t.Year() == ym.Year && t.Month() == ym.Month
}

func (ym YearMonth) DaysIn() int {
	return time.Date(ym.Year, ym.Month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// Label formats the month as zero-padded "MM/YYYY".
func (ym YearMonth) Label() string {
	return fmt.Sprintf("%02d/%d", int(ym.Month), ym.Year)
}

// Key is a sortable integer form, YYYYMM.
func (ym YearMonth) Key() int {
	return ym.Year*100 + int(ym.Month)
}

func (ym YearMonth) String() string {
	return fmt.Sprintf("%d-%02d", ym.Year, int(ym.Month))
}

// MonthsBetween returns every calendar month overlapping [start, end], in
// order. The cursor starts at start's month and advances with Next while its
// first day is not after end.
func MonthsBetween(start, end time.Time) []YearMonth {
	if end.Before(start) {
		return nil
	}
	last := YearMonthOf(end)
	var out []YearMonth
	for ym := YearMonthOf(start); !last.Before(ym); ym = ym.Next() {
		out = append(out, ym)
	}
	return out
}

// StartOfDay truncates t to midnight in t's location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// EndOfDay returns the last second of t's day; ranges ending on a date are inclusive of that day.
func EndOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, 0, t.Location())
}

// DayKey is the calendar date of t as YYYY-MM-DD.
func DayKey(t time.Time) string {
	return t.Format(DateLayout)
}

// ParseDate parses YYYY-MM-DD as midnight in loc.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation(DateLayout, strings.TrimSpace(s), loc)
	if err != nil {
		return time.Time{}, Invalidf("invalid date %q: expected YYYY-MM-DD", s)
	}
	return t, nil
}

// ClampRange moves end forward to start when it precedes it.
func ClampRange(start, end time.Time) (time.Time, time.Time) {
	if end.Before(start) {
		end = start
	}
	return start, end
}
