package core

import (
	"sort"
	"time"
)

// ResolvedPrice is the price in force on a date. IsDefault is set when no
// schedule row applied and DefaultMonthlyPrice was used.
type ResolvedPrice struct {
	Price     Money
	From      time.Time
	PriceID   int64
	IsDefault bool
}

// PriceSchedule resolves effective prices from a loaded set of rows.
type PriceSchedule struct {
	rows []MembershipPrice
}

func NewPriceSchedule(rows []MembershipPrice) PriceSchedule {
	sorted := make([]MembershipPrice, len(rows))
	copy(sorted, rows)
	// ascending by calendar day of effectiveFrom, then id
	sort.SliceStable(sorted, func(i, j int) bool {
		di, dj := DayKey(sorted[i].EffectiveFrom), DayKey(sorted[j].EffectiveFrom)
		if di != dj {
			return di < dj
		}
		return sorted[i].ID < sorted[j].ID
	})
	return PriceSchedule{rows: sorted}
}

// EffectiveOn returns the row with the greatest effectiveFrom not after d's
// calendar day; among equal days the highest id wins. isActive is ignored.
func (s PriceSchedule) EffectiveOn(d time.Time) ResolvedPrice {
	key := DayKey(d)
	for i := len(s.rows) - 1; i >= 0; i-- {
		r := s.rows[i]
		if DayKey(r.EffectiveFrom) <= key {
			return ResolvedPrice{Price: r.Price, From: r.EffectiveFrom, PriceID: r.ID}
		}
	}
	return ResolvedPrice{Price: Cents(DefaultMonthlyPrice), IsDefault: true}
}

// ForMonth resolves the price at the first day of ym.
func (s PriceSchedule) ForMonth(ym YearMonth, loc *time.Location) Money {
	return s.EffectiveOn(ym.FirstDay(loc)).Price
}

func (s PriceSchedule) Len() int { return len(s.rows) }
