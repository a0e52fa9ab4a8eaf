package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"trainingclub/internal/core"
	"trainingclub/internal/services"
)

type checkInDTO struct {
	Attendance attendanceDTO `json:"attendance"`
	MemberName string        `json:"member_name"`
}

func (s *Server) handleScanCheckIn(w http.ResponseWriter, r *http.Request) {
	body, ok := parseBody(w, r)
	if !ok {
		return
	}
	code := body.Get("code")
	if code == "" {
		BadRequestError("code is required").Write(w)
		return
	}

	// an unreadable code leaves memberID empty in the log
	memberID, _ := core.ParseCheckInCode(code)
	res, err := s.svc.Attendance.CheckInByCode(r.Context(), code)
	s.writeCheckIn(w, r, memberID, res, services.SourceScan, err)
}

// handleManualCheckIn records attendance for member_id, now or at the
// optional attended_at (RFC 3339, "YYYY-MM-DD HH:MM" or a bare date).
func (s *Server) handleManualCheckIn(w http.ResponseWriter, r *http.Request) {
	body, ok := parseBody(w, r)
	if !ok {
		return
	}
	memberID := body.Get("member_id")
	if memberID == "" {
		BadRequestError("member_id is required").Write(w)
		return
	}

	var (
		res services.CheckInResult
		err error
	)
	if v := body.Get("attended_at"); v != "" {
		at, perr := parseTimestamp(v, s.loc)
		if perr != nil {
			FromError(r, perr).Write(w)
			return
		}
		res, err = s.svc.Attendance.CheckInAt(r.Context(), memberID, at)
	} else {
		res, err = s.svc.Attendance.CheckIn(r.Context(), memberID)
	}
	s.writeCheckIn(w, r, memberID, res, services.SourceManual, err)
}

// writeCheckIn logs the attempt under the requested memberID, since res is
// empty when the check-in failed.
func (s *Server) writeCheckIn(w http.ResponseWriter, r *http.Request, memberID string, res services.CheckInResult, source string, err error) {
	if err != nil {
		outcome := string(core.KindOf(err))
		if outcome == "" {
			outcome = "error"
		}
		s.log.LogCheckIn(r.Context(), memberID, source, outcome)
		FromError(r, err).Write(w)
		return
	}
	s.log.LogCheckIn(r.Context(), res.Record.MemberID, source, "recorded")
	NewJSONResponse().
		Status(http.StatusCreated).
		Message("Checked in " + res.MemberName).
		Data(checkInDTO{Attendance: toAttendance(res.Record), MemberName: res.MemberName}).
		Write(w)
}

func (s *Server) handleAttendanceCalendar(w http.ResponseWriter, r *http.Request) {
	p, err := ParseMonthParams(r.URL.Query(), s.now())
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	cal, err := s.svc.Attendance.MonthlyCounts(r.Context(), p.Year, p.Month)
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	NewJSONResponse().Data(toCalendar(cal)).Write(w)
}

func (s *Server) handleAttendanceDay(w http.ResponseWriter, r *http.Request) {
	day, err := ParseDateQuery(r.URL.Query(), "date", s.loc)
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	records, err := s.svc.Attendance.ListByDay(r.Context(), day)
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	NewJSONResponse().Data(toAttendanceList(records)).Write(w)
}

func (s *Server) handleMemberAttendance(w http.ResponseWriter, r *http.Request) {
	s.writeHistory(w, r, chi.URLParam(r, "id"))
}

// handleMyAttendance serves the caller's own history; the member id is the
// token subject.
func (s *Server) handleMyAttendance(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFrom(r.Context())
	if p.Subject == "" {
		BadRequestError("no member bound to this token").Write(w)
		return
	}
	s.writeHistory(w, r, p.Subject)
}

func (s *Server) writeHistory(w http.ResponseWriter, r *http.Request, memberID string) {
	start, end, err := s.dateRange(r)
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	h, err := s.svc.Attendance.MemberHistory(r.Context(), memberID, start, end)
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	NewJSONResponse().Data(toHistory(h)).Write(w)
}

// dateRange reads the optional start and end query dates.
func (s *Server) dateRange(r *http.Request) (time.Time, time.Time, error) {
	q := r.URL.Query()
	start, err := ParseDateQuery(q, "start", s.loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := ParseDateQuery(q, "end", s.loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, end, nil
}

var timestampLayouts = []string{"2006-01-02 15:04:05", "2006-01-02 15:04", "2006-01-02T15:04", core.DateLayout}

func parseTimestamp(v string, loc *time.Location) (time.Time, error) {
	v = strings.TrimSpace(v)
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t.In(loc), nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, v, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, core.Invalidf("invalid timestamp %q", v)
}
