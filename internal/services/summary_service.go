package services

import (
	"context"
	"time"

	"trainingclub/internal/core"
	"trainingclub/internal/storage"
)

// SummaryService derives financial reports on every call; nothing is cached.
type SummaryService struct {
	store  *storage.SQLiteRepository
	clock  core.Clock
	prices *PriceService
}

// MonthlyBalance prices each month of year at its first day times the paid
// count. Ad-hoc ledger entries are not included.
func (s *SummaryService) MonthlyBalance(ctx context.Context, year int) (core.BalanceReport, error) {
	if year < 1 {
		return core.BalanceReport{}, core.ErrInvalidYear
	}
	paid, err := s.store.CountPaidByMonth(ctx,
		core.YearMonth{Year: year, Month: time.January},
		core.YearMonth{Year: year, Month: time.December})
	if err != nil {
		return core.BalanceReport{}, err
	}
	sched, err := s.prices.Schedule(ctx)
	if err != nil {
		return core.BalanceReport{}, err
	}
	return core.BuildBalanceReport(year, paid, sched, s.store.Location()), nil
}

// PaymentsReport covers [start, end]; zero values default to Jan 1 of the
// current year and today.
func (s *SummaryService) PaymentsReport(ctx context.Context, start, end time.Time) (core.PaymentsReport, error) {
	start, end = defaultYearToDate(s.clock.Now(), start, end)

	entries, err := s.store.ListLedgerEntries(ctx, start, end)
	if err != nil {
		return core.PaymentsReport{}, err
	}
	paid, sched, err := s.loadIncomeInputs(ctx, start, end)
	if err != nil {
		return core.PaymentsReport{}, err
	}
	return core.BuildPaymentsReport(start, end, entries, paid, sched), nil
}

// RangeSummary buckets [start, end] by calendar month; zero values default
// to the first of the current month and today. End is clamped to start.
func (s *SummaryService) RangeSummary(ctx context.Context, start, end time.Time) (core.RangeSummary, error) {
	now := s.clock.Now()
	if start.IsZero() {
		start = core.YearMonthOf(now).FirstDay(now.Location())
	}
	if end.IsZero() {
		end = now
	}
	start, end = core.ClampRange(core.StartOfDay(start), core.EndOfDay(end))

	// whole months, since buckets match ledger entries by year and month
	first := core.YearMonthOf(start).FirstDay(start.Location())
	lastYM := core.YearMonthOf(end)
	last := time.Date(lastYM.Year, lastYM.Month, lastYM.DaysIn(), 0, 0, 0, 0, end.Location())

	entries, err := s.store.ListLedgerEntries(ctx, first, last)
	if err != nil {
		return core.RangeSummary{}, err
	}
	paid, sched, err := s.loadIncomeInputs(ctx, start, end)
	if err != nil {
		return core.RangeSummary{}, err
	}
	return core.BuildRangeSummary(start, end, entries, paid, sched), nil
}

func (s *SummaryService) loadIncomeInputs(ctx context.Context, start, end time.Time) (core.PaidCounts, core.PriceSchedule, error) {
	paid, err := s.store.CountPaidByMonth(ctx, core.YearMonthOf(start), core.YearMonthOf(end))
	if err != nil {
		return nil, core.PriceSchedule{}, err
	}
	sched, err := s.prices.Schedule(ctx)
	if err != nil {
		return nil, core.PriceSchedule{}, err
	}
	return paid, sched, nil
}
