package services

import (
	"context"
	"strconv"
	"time"

	"trainingclub/internal/core"
	clublog "trainingclub/internal/log"
	"trainingclub/internal/storage"
)

// LedgerService handles ad-hoc income and expense entries.
type LedgerService struct {
	store  *storage.SQLiteRepository
	clock  core.Clock
	events *eventSink
}

// CreateEntry normalizes the sign from the entry type, validates and stores.
func (s *LedgerService) CreateEntry(ctx context.Context, e core.LedgerEntry) (core.LedgerEntry, error) {
	e = e.Normalize()
	if err := e.Validate(); err != nil {
		return core.LedgerEntry{}, err
	}
	e.Date = core.StartOfDay(e.Date)
	e.CreatedAt = s.clock.Now()

	saved, err := s.store.CreateLedgerEntry(ctx, e)
	if err != nil {
		return core.LedgerEntry{}, err
	}
	logLedger(ctx, clublog.OpCreate, saved)

	s.events.publish(ctx, core.Event{
		Type:     core.EventLedgerCreated,
		EntityID: strconv.FormatInt(saved.ID, 10),
		Data:     ledgerEventData(saved),
	})
	return saved, nil
}

func (s *LedgerService) DeleteEntry(ctx context.Context, id int64) error {
	deleted, err := s.store.DeleteLedgerEntry(ctx, id)
	if err != nil {
		return err
	}
	logLedger(ctx, clublog.OpDelete, deleted)

	// the row is gone, so the consumer gets its values in Data
	s.events.publish(ctx, core.Event{
		Type:     core.EventLedgerDeleted,
		EntityID: strconv.FormatInt(deleted.ID, 10),
		Data:     ledgerEventData(deleted),
	})
	return nil
}

// ListEntries returns entries dated in [start, end]. Zero start means Jan 1
// of the current year; zero end means today.
func (s *LedgerService) ListEntries(ctx context.Context, start, end time.Time) ([]core.LedgerEntry, error) {
	start, end = defaultYearToDate(s.clock.Now(), start, end)
	return s.store.ListLedgerEntries(ctx, start, end)
}

func logLedger(ctx context.Context, op string, e core.LedgerEntry) {
	clublog.FromContext(ctx).WithComponent(clublog.ComponentLedger).InfoContext(ctx, "Ledger entry changed",
		clublog.FieldOperation, op,
		clublog.FieldEntityID, e.ID,
		"type", e.Type,
		"amount_cents", e.Amount.Cents)
}

func ledgerEventData(e core.LedgerEntry) map[string]string {
	return map[string]string{
		"description":  e.Description,
		"amount":       e.Amount.String(),
		"amount_cents": strconv.FormatInt(e.Amount.Cents, 10),
		"type":         string(e.Type),
		"date":         core.DayKey(e.Date),
		"category":     e.Category,
		"notes":        e.Notes,
	}
}

func defaultYearToDate(now, start, end time.Time) (time.Time, time.Time) {
	if start.IsZero() {
		start = time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location())
	}
	if end.IsZero() {
		end = now
	}
	return core.StartOfDay(start), core.EndOfDay(end)
}
