package core

import (
	"sort"
	"time"
)

// PaidCounts is the number of paid fee rows per month.
type PaidCounts map[YearMonth]int

type (
	MonthBalance struct {
		Month          YearMonth
		MonthName      string
		PaidCount      int
		PricePerMember Money
		Amount         Money
	}

	BalanceReport struct {
		Year   int
		Months []MonthBalance
		Total  Money
	}

	CategoryAmount struct {
		Category string
		Income   Money
		Expenses Money
	}

	PaymentsReport struct {
		Start            time.Time
		End              time.Time
		Entries          []LedgerEntry
		MembershipIncome Money
		OtherIncome      Money
		TotalExpenses    Money
		Net              Money
		ByCategory       []CategoryAmount
	}

	MonthSummary struct {
		Month            YearMonth
		Label            string
		PaidCount        int
		Price            Money
		MembershipIncome Money
		OtherIncome      Money
		Expenses         Money
		Net              Money
	}

	RangeSummary struct {
		Start            time.Time
		End              time.Time
		Months           []MonthSummary
		MembershipIncome Money
		OtherIncome      Money
		Expenses         Money
		Net              Money
		Entries          []LedgerEntry
	}

	HistoryEntry struct {
		AttendanceRecord
		Weekday string
	}

	MonthBucket struct {
		Month YearMonth
		Label string
		Count int
	}

	AttendanceHistory struct {
		MemberID   string
		MemberName string
		Start      time.Time
		End        time.Time
		Entries    []HistoryEntry
		Months     []MonthBucket
		Total      int
	}

	AttendanceCalendar struct {
		Year         int
		Month        time.Month
		DaysInMonth  int
		FirstWeekday time.Weekday
		Counts       map[int]int
	}

	FeeGridRow struct {
		MemberID string
		FullName string
		Email    string
		Paid     [12]bool
	}

	FeeGrid struct {
		Year int
		Rows []FeeGridRow
	}
)

// BuildBalanceReport prices each month of year at its first day and
// multiplies by the paid count. Ledger entries are not part of it.
func BuildBalanceReport(year int, paid PaidCounts, prices PriceSchedule, loc *time.Location) BalanceReport {
	r := BalanceReport{Year: year, Months: make([]MonthBalance, 0, 12)}
	for m := time.January; m <= time.December; m++ {
		ym := YearMonth{Year: year, Month: m}
		price := prices.ForMonth(ym, loc)
		count := paid[ym]
		amount := price.Mul(count)
		r.Months = append(r.Months, MonthBalance{
			Month:          ym,
			MonthName:      m.String(),
			PaidCount:      count,
			PricePerMember: price,
			Amount:         amount,
		})
		r.Total = r.Total.Add(amount)
	}
	return r
}

// InDayRange reports whether t falls in [start 00:00, end 23:59:59].
func InDayRange(t, start, end time.Time) bool {
	d := DayKey(t)
	return d >= DayKey(start) && d <= DayKey(end)
}

// sortLedgerDesc orders entries by date descending, newest id first on ties.
func sortLedgerDesc(entries []LedgerEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if !entries[i].Date.Equal(entries[j].Date) {
			return entries[i].Date.After(entries[j].Date)
		}
		return entries[i].ID > entries[j].ID
	})
}

func filterLedger(entries []LedgerEntry, start, end time.Time) []LedgerEntry {
	out := make([]LedgerEntry, 0, len(entries))
	for _, e := range entries {
		if InDayRange(e.Date, start, end) {
			out = append(out, e)
		}
	}
	sortLedgerDesc(out)
	return out
}

func splitLedger(entries []LedgerEntry) (income, expenses Money) {
	for _, e := range entries {
		switch e.Type {
		case Income:
			income = income.Add(e.Amount)
		case Expense:
			expenses = expenses.Add(e.Amount.Abs())
		}
	}
	return income, expenses
}

// BuildPaymentsReport sums membership income over every month from
// month(start) whose first day is not after end, and splits the ledger
// entries in [start, end] into other income and expenses.
func BuildPaymentsReport(start, end time.Time, entries []LedgerEntry, paid PaidCounts, prices PriceSchedule) PaymentsReport {
	r := PaymentsReport{Start: start, End: end}
	r.Entries = filterLedger(entries, start, end)

	for _, ym := range MonthsBetween(start, end) {
		r.MembershipIncome = r.MembershipIncome.Add(prices.ForMonth(ym, start.Location()).Mul(paid[ym]))
	}
	r.OtherIncome, r.TotalExpenses = splitLedger(r.Entries)
	r.Net = r.MembershipIncome.Add(r.OtherIncome).Sub(r.TotalExpenses)

	byCat := map[string]*CategoryAmount{}
	bucket := func(category string) *CategoryAmount {
		c, ok := byCat[category]
		if !ok {
			c = &CategoryAmount{Category: category}
			byCat[category] = c
		}
		return c
	}
	for _, e := range r.Entries {
		switch e.Type {
		case Income:
			c := bucket(e.Category)
			c.Income = c.Income.Add(e.Amount)
		case Expense:
			c := bucket(e.Category)
			c.Expenses = c.Expenses.Add(e.Amount.Abs())
		}
	}
	for _, c := range byCat {
		r.ByCategory = append(r.ByCategory, *c)
	}
	sort.Slice(r.ByCategory, func(i, j int) bool { return r.ByCategory[i].Category < r.ByCategory[j].Category })
	return r
}

// BuildRangeSummary produces one bucket per calendar month overlapping
// [start, end], after clamping end to start. Membership income uses the
// whole month's paid count. Ledger figures take every entry dated in the
// bucket's month, so entries should cover whole months; Entries in the
// result is the day-clipped list.
func BuildRangeSummary(start, end time.Time, entries []LedgerEntry, paid PaidCounts, prices PriceSchedule) RangeSummary {
	start, end = ClampRange(start, end)
	r := RangeSummary{Start: start, End: end}

	byMonth := map[YearMonth][]LedgerEntry{}
	for _, e := range entries {
		ym := YearMonthOf(e.Date)
		byMonth[ym] = append(byMonth[ym], e)
	}

	for _, ym := range MonthsBetween(start, end) {
		price := prices.ForMonth(ym, start.Location())
		ms := MonthSummary{
			Month:     ym,
			Label:     ym.Label(),
			PaidCount: paid[ym],
			Price:     price,
		}
		ms.MembershipIncome = price.Mul(ms.PaidCount)
		ms.OtherIncome, ms.Expenses = splitLedger(byMonth[ym])
		ms.Net = ms.MembershipIncome.Add(ms.OtherIncome).Sub(ms.Expenses)

		r.Months = append(r.Months, ms)
		r.MembershipIncome = r.MembershipIncome.Add(ms.MembershipIncome)
		r.OtherIncome = r.OtherIncome.Add(ms.OtherIncome)
		r.Expenses = r.Expenses.Add(ms.Expenses)
	}
	r.Net = r.MembershipIncome.Add(r.OtherIncome).Sub(r.Expenses)
	r.Entries = filterLedger(entries, start, end)
	return r
}

// BuildAttendanceHistory orders records by time and buckets them by month.
// Buckets are chronological; labels stay "MM/YYYY".
func BuildAttendanceHistory(member Member, start, end time.Time, records []AttendanceRecord) AttendanceHistory {
	h := AttendanceHistory{
		MemberID:   member.ID,
		MemberName: member.FullName(),
		Start:      start,
		End:        end,
	}
	sorted := make([]AttendanceRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].At.Before(sorted[j].At) })

	counts := map[YearMonth]int{}
	for _, rec := range sorted {
		if rec.MemberName == "" {
			rec.MemberName = h.MemberName
		}
		h.Entries = append(h.Entries, HistoryEntry{AttendanceRecord: rec, Weekday: rec.At.Weekday().String()})
		counts[YearMonthOf(rec.At)]++
	}
	for ym, n := range counts {
		h.Months = append(h.Months, MonthBucket{Month: ym, Label: ym.Label(), Count: n})
	}
	sort.Slice(h.Months, func(i, j int) bool { return h.Months[i].Month.Before(h.Months[j].Month) })
	h.Total = len(h.Entries)
	return h
}

// NewAttendanceCalendar carries per-day counts plus what a month view needs
// to lay out its grid.
func NewAttendanceCalendar(ym YearMonth, counts map[int]int, loc *time.Location) AttendanceCalendar {
	if counts == nil {
		counts = map[int]int{}
	}
	return AttendanceCalendar{
		Year:         ym.Year,
		Month:        ym.Month,
		DaysInMonth:  ym.DaysIn(),
		FirstWeekday: ym.FirstDay(loc).Weekday(),
		Counts:       counts,
	}
}

// BuildFeeGrid lays statuses over members in the given order; a missing row
// is unpaid.
func BuildFeeGrid(year int, members []Member, statuses []FeeStatus) FeeGrid {
	paid := map[string]*[12]bool{}
	for _, s := range statuses {
		if s.Year != year || s.Month < 1 || s.Month > 12 {
			continue
		}
		v, ok := paid[s.MemberID]
		if !ok {
			v = &[12]bool{}
			paid[s.MemberID] = v
		}
		v[s.Month-1] = s.IsPaid
	}
	g := FeeGrid{Year: year, Rows: make([]FeeGridRow, 0, len(members))}
	for _, m := range members {
		row := FeeGridRow{MemberID: m.ID, FullName: m.FullName(), Email: m.Email}
		if v, ok := paid[m.ID]; ok {
			row.Paid = *v
		}
		g.Rows = append(g.Rows, row)
	}
	return g
}
