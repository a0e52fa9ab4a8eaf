package services

import (
	"context"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"trainingclub/internal/core"
	"trainingclub/internal/storage"
)

// PriceService manages the time-effective membership price schedule.
type PriceService struct {
	store  *storage.SQLiteRepository
	clock  core.Clock
	events *eventSink
}

// Schedule loads every price row for resolution. It reads storage on each
// call so reports see prices written by any process sharing the database.
func (s *PriceService) Schedule(ctx context.Context) (core.PriceSchedule, error) {
	rows, err := s.store.ListPrices(ctx)
	if err != nil {
		return core.PriceSchedule{}, err
	}
	return core.NewPriceSchedule(rows), nil
}

// PriceEffectiveOn resolves the price in force on date, or the default.
func (s *PriceService) PriceEffectiveOn(ctx context.Context, date time.Time) (core.ResolvedPrice, error) {
	if date.IsZero() {
		date = s.clock.Now()
	}
	sched, err := s.Schedule(ctx)
	if err != nil {
		return core.ResolvedPrice{}, err
	}
	return sched.EffectiveOn(date), nil
}

func (s *PriceService) AddPrice(ctx context.Context, price core.Money, effectiveFrom time.Time, description string) (core.MembershipPrice, error) {
	if err := core.ValidatePrice(price); err != nil {
		return core.MembershipPrice{}, err
	}
	if effectiveFrom.IsZero() {
		return core.MembershipPrice{}, core.Invalidf("effective date is required")
	}
	description = strings.TrimSpace(description)
	if utf8.RuneCountInString(description) > core.MaxDescriptionLen {
		return core.MembershipPrice{}, core.Invalidf("description too long (max %d characters)", core.MaxDescriptionLen)
	}

	p, err := s.store.AddPrice(ctx, core.MembershipPrice{
		Price:         price,
		EffectiveFrom: core.StartOfDay(effectiveFrom),
		Description:   description,
		CreatedAt:     s.clock.Now(),
	})
	if err != nil {
		return core.MembershipPrice{}, err
	}

	s.events.publish(ctx, core.Event{
		Type:     core.EventPriceCreated,
		EntityID: strconv.FormatInt(p.ID, 10),
		Data: map[string]string{
			"price":          p.Price.String(),
			"effective_from": core.DayKey(p.EffectiveFrom),
		},
	})
	return p, nil
}

// ListPrices returns the schedule, newest effective date first.
func (s *PriceService) ListPrices(ctx context.Context) ([]core.MembershipPrice, error) {
	return s.store.ListPrices(ctx)
}
