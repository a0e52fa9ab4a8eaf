package http

import (
	"time"

	"trainingclub/internal/core"
	"trainingclub/internal/services"
)

// Wire shapes. Dates are YYYY-MM-DD, timestamps RFC 3339, money a decimal
// number of euros.

type memberDTO struct {
	ID         string `json:"id"`
	GivenName  string `json:"given_name"`
	FamilyName string `json:"family_name"`
	FullName   string `json:"full_name"`
	Email      string `json:"email"`
	BirthDate  string `json:"birth_date,omitempty"`
	Rank       string `json:"rank,omitempty"`
	JoinedAt   string `json:"joined_at,omitempty"`
	Role       string `json:"role"`
	CreatedAt  string `json:"created_at"`
}

func toMember(m core.Member) memberDTO {
	return memberDTO{
		ID:         m.ID,
		GivenName:  m.GivenName,
		FamilyName: m.FamilyName,
		FullName:   m.FullName(),
		Email:      m.Email,
		BirthDate:  optionalDate(m.BirthDate),
		Rank:       m.Rank,
		JoinedAt:   optionalDate(m.JoinedAt),
		Role:       string(m.Role),
		CreatedAt:  timestamp(m.CreatedAt),
	}
}

func toMembers(ms []core.Member) []memberDTO {
	out := make([]memberDTO, 0, len(ms))
	for _, m := range ms {
		out = append(out, toMember(m))
	}
	return out
}

type roleAssignmentDTO struct {
	Member    memberDTO `json:"member"`
	MatchedBy string    `json:"matched_by"`
}

func toRoleAssignment(r services.Resolution) roleAssignmentDTO {
	return roleAssignmentDTO{Member: toMember(r.Member), MatchedBy: string(r.MatchedBy)}
}

type attendanceDTO struct {
	ID         int64  `json:"id"`
	MemberID   string `json:"member_id"`
	MemberName string `json:"member_name"`
	AttendedAt string `json:"attended_at"`
	Date       string `json:"date"`
	Weekday    string `json:"weekday,omitempty"`
}

func toAttendance(a core.AttendanceRecord) attendanceDTO {
	return attendanceDTO{
		ID:         a.ID,
		MemberID:   a.MemberID,
		MemberName: a.MemberName,
		AttendedAt: timestamp(a.At),
		Date:       core.DayKey(a.At),
	}
}

func toAttendanceList(as []core.AttendanceRecord) []attendanceDTO {
	out := make([]attendanceDTO, 0, len(as))
	for _, a := range as {
		out = append(out, toAttendance(a))
	}
	return out
}

type monthBucketDTO struct {
	Label string `json:"label"`
	Year  int    `json:"year"`
	Month int    `json:"month"`
	Count int    `json:"count"`
}

type historyDTO struct {
	MemberID   string           `json:"member_id"`
	MemberName string           `json:"member_name"`
	Start      string           `json:"start"`
	End        string           `json:"end"`
	Total      int              `json:"total"`
	Entries    []attendanceDTO  `json:"entries"`
	Months     []monthBucketDTO `json:"months"`
}

func toHistory(h core.AttendanceHistory) historyDTO {
	out := historyDTO{
		MemberID:   h.MemberID,
		MemberName: h.MemberName,
		Start:      core.DayKey(h.Start),
		End:        core.DayKey(h.End),
		Total:      h.Total,
		Entries:    make([]attendanceDTO, 0, len(h.Entries)),
		Months:     make([]monthBucketDTO, 0, len(h.Months)),
	}
	for _, e := range h.Entries {
		d := toAttendance(e.AttendanceRecord)
		d.Weekday = e.Weekday
		out.Entries = append(out.Entries, d)
	}
	for _, b := range h.Months {
		out.Months = append(out.Months, monthBucketDTO{Label: b.Label, Year: b.Month.Year, Month: int(b.Month.Month), Count: b.Count})
	}
	return out
}

type calendarDTO struct {
	Year         int         `json:"year"`
	Month        int         `json:"month"`
	DaysInMonth  int         `json:"days_in_month"`
	FirstWeekday int         `json:"first_weekday"`
	Counts       map[int]int `json:"counts"`
}

func toCalendar(c core.AttendanceCalendar) calendarDTO {
	return calendarDTO{
		Year:         c.Year,
		Month:        int(c.Month),
		DaysInMonth:  c.DaysInMonth,
		FirstWeekday: int(c.FirstWeekday),
		Counts:       c.Counts,
	}
}

type feeStatusDTO struct {
	MemberID string `json:"member_id"`
	Year     int    `json:"year"`
	Month    int    `json:"month"`
	IsPaid   bool   `json:"is_paid"`
	PaidAt   string `json:"paid_at,omitempty"`
}

func toFeeStatus(f core.FeeStatus) feeStatusDTO {
	d := feeStatusDTO{MemberID: f.MemberID, Year: f.Year, Month: f.Month, IsPaid: f.IsPaid}
	if f.PaidAt != nil {
		d.PaidAt = timestamp(*f.PaidAt)
	}
	return d
}

type feeGridRowDTO struct {
	MemberID string   `json:"member_id"`
	FullName string   `json:"full_name"`
	Email    string   `json:"email"`
	Paid     [12]bool `json:"paid"`
}

type feeGridDTO struct {
	Year int             `json:"year"`
	Rows []feeGridRowDTO `json:"rows"`
}

func toFeeGrid(g core.FeeGrid) feeGridDTO {
	out := feeGridDTO{Year: g.Year, Rows: make([]feeGridRowDTO, 0, len(g.Rows))}
	for _, r := range g.Rows {
		out.Rows = append(out.Rows, feeGridRowDTO(r))
	}
	return out
}

type priceDTO struct {
	ID            int64      `json:"id"`
	Price         core.Money `json:"price"`
	EffectiveFrom string     `json:"effective_from"`
	Description   string     `json:"description,omitempty"`
	IsActive      bool       `json:"is_active"`
	CreatedAt     string     `json:"created_at"`
}

func toPrice(p core.MembershipPrice) priceDTO {
	return priceDTO{
		ID:            p.ID,
		Price:         p.Price,
		EffectiveFrom: core.DayKey(p.EffectiveFrom),
		Description:   p.Description,
		IsActive:      p.IsActive,
		CreatedAt:     timestamp(p.CreatedAt),
	}
}

func toPrices(ps []core.MembershipPrice) []priceDTO {
	out := make([]priceDTO, 0, len(ps))
	for _, p := range ps {
		out = append(out, toPrice(p))
	}
	return out
}

type resolvedPriceDTO struct {
	Date      string     `json:"date"`
	Price     core.Money `json:"price"`
	From      string     `json:"effective_from,omitempty"`
	PriceID   int64      `json:"price_id,omitempty"`
	IsDefault bool       `json:"is_default"`
}

func toResolvedPrice(date time.Time, p core.ResolvedPrice) resolvedPriceDTO {
	return resolvedPriceDTO{
		Date:      core.DayKey(date),
		Price:     p.Price,
		From:      optionalDate(p.From),
		PriceID:   p.PriceID,
		IsDefault: p.IsDefault,
	}
}

type ledgerEntryDTO struct {
	ID          int64      `json:"id"`
	Description string     `json:"description"`
	Amount      core.Money `json:"amount"`
	Type        string     `json:"type"`
	Date        string     `json:"date"`
	Category    string     `json:"category,omitempty"`
	Notes       string     `json:"notes,omitempty"`
	CreatedAt   string     `json:"created_at"`
}

func toLedgerEntry(e core.LedgerEntry) ledgerEntryDTO {
	return ledgerEntryDTO{
		ID:          e.ID,
		Description: e.Description,
		Amount:      e.Amount,
		Type:        string(e.Type),
		Date:        core.DayKey(e.Date),
		Category:    e.Category,
		Notes:       e.Notes,
		CreatedAt:   timestamp(e.CreatedAt),
	}
}

func toLedgerEntries(es []core.LedgerEntry) []ledgerEntryDTO {
	out := make([]ledgerEntryDTO, 0, len(es))
	for _, e := range es {
		out = append(out, toLedgerEntry(e))
	}
	return out
}

type categoryDTO struct {
	Category string     `json:"category"`
	Income   core.Money `json:"income"`
	Expenses core.Money `json:"expenses"`
}

type paymentsReportDTO struct {
	Start            string           `json:"start"`
	End              string           `json:"end"`
	Entries          []ledgerEntryDTO `json:"entries"`
	MembershipIncome core.Money       `json:"membership_income"`
	OtherIncome      core.Money       `json:"other_income"`
	TotalExpenses    core.Money       `json:"total_expenses"`
	Net              core.Money       `json:"net"`
	ByCategory       []categoryDTO    `json:"by_category"`
}

func toPaymentsReport(r core.PaymentsReport) paymentsReportDTO {
	out := paymentsReportDTO{
		Start:            core.DayKey(r.Start),
		End:              core.DayKey(r.End),
		Entries:          toLedgerEntries(r.Entries),
		MembershipIncome: r.MembershipIncome,
		OtherIncome:      r.OtherIncome,
		TotalExpenses:    r.TotalExpenses,
		Net:              r.Net,
		ByCategory:       make([]categoryDTO, 0, len(r.ByCategory)),
	}
	for _, c := range r.ByCategory {
		out.ByCategory = append(out.ByCategory, categoryDTO(c))
	}
	return out
}

type monthBalanceDTO struct {
	Month          int        `json:"month"`
	MonthName      string     `json:"month_name"`
	PaidCount      int        `json:"paid_count"`
	PricePerMember core.Money `json:"price_per_member"`
	Amount         core.Money `json:"amount"`
}

type balanceDTO struct {
	Year   int               `json:"year"`
	Months []monthBalanceDTO `json:"months"`
	Total  core.Money        `json:"total"`
}

func toBalance(b core.BalanceReport) balanceDTO {
	out := balanceDTO{Year: b.Year, Total: b.Total, Months: make([]monthBalanceDTO, 0, len(b.Months))}
	for _, m := range b.Months {
		out.Months = append(out.Months, monthBalanceDTO{
			Month:          int(m.Month.Month),
			MonthName:      m.MonthName,
			PaidCount:      m.PaidCount,
			PricePerMember: m.PricePerMember,
			Amount:         m.Amount,
		})
	}
	return out
}

type monthSummaryDTO struct {
	Label            string     `json:"label"`
	Year             int        `json:"year"`
	Month            int        `json:"month"`
	PaidCount        int        `json:"paid_count"`
	Price            core.Money `json:"price"`
	MembershipIncome core.Money `json:"membership_income"`
	OtherIncome      core.Money `json:"other_income"`
	Expenses         core.Money `json:"expenses"`
	Net              core.Money `json:"net"`
}

type rangeSummaryDTO struct {
	Start            string            `json:"start"`
	End              string            `json:"end"`
	Months           []monthSummaryDTO `json:"months"`
	MembershipIncome core.Money        `json:"membership_income"`
	OtherIncome      core.Money        `json:"other_income"`
	Expenses         core.Money        `json:"expenses"`
	Net              core.Money        `json:"net"`
	Entries          []ledgerEntryDTO  `json:"entries"`
}

func toRangeSummary(s core.RangeSummary) rangeSummaryDTO {
	out := rangeSummaryDTO{
		Start:            core.DayKey(s.Start),
		End:              core.DayKey(s.End),
		Months:           make([]monthSummaryDTO, 0, len(s.Months)),
		MembershipIncome: s.MembershipIncome,
		OtherIncome:      s.OtherIncome,
		Expenses:         s.Expenses,
		Net:              s.Net,
		Entries:          toLedgerEntries(s.Entries),
	}
	for _, m := range s.Months {
		out.Months = append(out.Months, monthSummaryDTO{
			Label:            m.Label,
			Year:             m.Month.Year,
			Month:            int(m.Month.Month),
			PaidCount:        m.PaidCount,
			Price:            m.Price,
			MembershipIncome: m.MembershipIncome,
			OtherIncome:      m.OtherIncome,
			Expenses:         m.Expenses,
			Net:              m.Net,
		})
	}
	return out
}

func timestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

func optionalDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return core.DayKey(t)
}
