package services

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"trainingclub/internal/core"
	clublog "trainingclub/internal/log"
	"trainingclub/internal/metrics"
	"trainingclub/internal/storage"
)

const (
	SourceScan   = "scan"
	SourceManual = "manual"
)

// AttendanceService records check-ins, one per member per club-local day.
type AttendanceService struct {
	store   *storage.SQLiteRepository
	clock   core.Clock
	events  *eventSink
	metrics *metrics.Metrics
}

type CheckInResult struct {
	Record     core.AttendanceRecord
	MemberName string
}

// CheckInByCode records attendance for the member id carried in a scanned code.
func (s *AttendanceService) CheckInByCode(ctx context.Context, code string) (CheckInResult, error) {
	memberID, err := core.ParseCheckInCode(code)
	if err != nil {
		s.metrics.CheckIn(SourceScan, "invalid_code")
		return CheckInResult{}, err
	}
	return s.record(ctx, memberID, s.clock.Now(), SourceScan)
}

// CheckIn records attendance now.
func (s *AttendanceService) CheckIn(ctx context.Context, memberID string) (CheckInResult, error) {
	return s.record(ctx, memberID, s.clock.Now(), SourceManual)
}

// CheckInAt records attendance at ts, converted to the club location before
// the day is taken.
func (s *AttendanceService) CheckInAt(ctx context.Context, memberID string, ts time.Time) (CheckInResult, error) {
	if ts.IsZero() {
		return s.CheckIn(ctx, memberID)
	}
	return s.record(ctx, memberID, ts.In(s.store.Location()), SourceManual)
}

func (s *AttendanceService) record(ctx context.Context, memberID string, at time.Time, source string) (CheckInResult, error) {
	memberID = strings.TrimSpace(memberID)
	if memberID == "" {
		s.metrics.CheckIn(source, "unknown_member")
		return CheckInResult{}, core.NotFoundf("member not found")
	}
	member, err := s.store.GetMember(ctx, memberID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			s.metrics.CheckIn(source, "unknown_member")
		}
		return CheckInResult{}, err
	}

	rec, err := s.store.InsertAttendance(ctx, member.ID, at)
	if err != nil {
		if errors.Is(err, core.ErrAlreadyRecorded) {
			s.metrics.CheckIn(source, "already_recorded")
			clublog.FromContext(ctx).WithComponent(clublog.ComponentAttendance).InfoContext(ctx, "Duplicate check-in rejected",
				clublog.FieldMemberID, member.ID, clublog.FieldSource, source)
		}
		return CheckInResult{}, err
	}
	rec.MemberName = member.FullName()
	s.metrics.CheckIn(source, "recorded")

	s.events.publish(ctx, core.Event{
		Type:     core.EventAttendanceRecorded,
		EntityID: strconv.FormatInt(rec.ID, 10),
		MemberID: member.ID,
		Data: map[string]string{
			"member_name": rec.MemberName,
			"attended_at": rec.At.Format(time.RFC3339),
			"source":      source,
		},
	})

	return CheckInResult{Record: rec, MemberName: rec.MemberName}, nil
}

// ListByDay returns the day's check-ins, earliest first.
func (s *AttendanceService) ListByDay(ctx context.Context, day time.Time) ([]core.AttendanceRecord, error) {
	if day.IsZero() {
		day = s.clock.Now()
	}
	return s.store.ListAttendanceByDay(ctx, day)
}

// MonthlyCounts returns per-day counts for one month with calendar layout data.
func (s *AttendanceService) MonthlyCounts(ctx context.Context, year, month int) (core.AttendanceCalendar, error) {
	if year < 1 {
		return core.AttendanceCalendar{}, core.ErrInvalidYear
	}
	if month < 1 || month > 12 {
		return core.AttendanceCalendar{}, core.ErrInvalidMonth
	}
	ym := core.YearMonth{Year: year, Month: time.Month(month)}
	counts, err := s.store.CountAttendanceByDay(ctx, ym)
	if err != nil {
		return core.AttendanceCalendar{}, err
	}
	return core.NewAttendanceCalendar(ym, counts, s.store.Location()), nil
}

// MemberHistory lists a member's check-ins in [start, end] with monthly
// buckets. Zero start means Jan 1 of the current year; zero end means today.
func (s *AttendanceService) MemberHistory(ctx context.Context, memberID string, start, end time.Time) (core.AttendanceHistory, error) {
	member, err := s.store.GetMember(ctx, strings.TrimSpace(memberID))
	if err != nil {
		return core.AttendanceHistory{}, err
	}

	now := s.clock.Now()
	if start.IsZero() {
		start = time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location())
	}
	if end.IsZero() {
		end = now
	}
	start, end = core.StartOfDay(start), core.EndOfDay(end)

	records, err := s.store.ListMemberAttendance(ctx, member.ID, start, end)
	if err != nil {
		return core.AttendanceHistory{}, err
	}
	return core.BuildAttendanceHistory(member, start, end, records), nil
}
