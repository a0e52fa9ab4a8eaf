package services

import (
	"context"
	"fmt"
	"io"

	"trainingclub/internal/core"
	clublog "trainingclub/internal/log"
	"trainingclub/internal/metrics"
	"trainingclub/internal/storage"
)

// EventPublisher hands committed writes to the message broker.
type EventPublisher interface {
	PublishEvent(ctx context.Context, e core.Event) error
}

type Deps struct {
	Store     *storage.SQLiteRepository
	Clock     core.Clock
	Publisher EventPublisher // optional
	Metrics   *metrics.Metrics
}

// Services groups the club operations over one SQLite store.
type Services struct {
	Members    *MemberService
	Attendance *AttendanceService
	Fees       *FeeService
	Prices     *PriceService
	Ledger     *LedgerService
	Summary    *SummaryService

	store     *storage.SQLiteRepository
	publisher EventPublisher
}

func New(d Deps) *Services {
	if d.Clock == nil {
		d.Clock = core.SystemClock{Location: d.Store.Location()}
	}
	ev := &eventSink{publisher: d.Publisher, clock: d.Clock, metrics: d.Metrics}
	prices := &PriceService{store: d.Store, clock: d.Clock, events: ev}
	return &Services{
		Members:    &MemberService{store: d.Store, clock: d.Clock},
		Attendance: &AttendanceService{store: d.Store, clock: d.Clock, events: ev, metrics: d.Metrics},
		Fees:       &FeeService{store: d.Store, clock: d.Clock, events: ev},
		Prices:     prices,
		Ledger:     &LedgerService{store: d.Store, clock: d.Clock, events: ev},
		Summary:    &SummaryService{store: d.Store, clock: d.Clock, prices: prices},
		store:      d.Store,
		publisher:  d.Publisher,
	}
}

// Ping reports whether the store is reachable.
func (s *Services) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// Close closes storage and, when it can be closed, the publisher.
func (s *Services) Close() error {
	var errs []error

	if s.store != nil {
		if err := s.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	if c, ok := s.publisher.(io.Closer); ok && c != nil {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close services: %v", errs)
	}

	return nil
}

type eventSink struct {
	publisher EventPublisher
	clock     core.Clock
	metrics   *metrics.Metrics
}

// publish never fails the caller: the write is already committed.
func (s *eventSink) publish(ctx context.Context, e core.Event) {
	log := clublog.FromContext(ctx).WithComponent(clublog.ComponentEvents)
	fields := clublog.NewFields().WithEvent(string(e.Type), e.EntityID).WithOperation(clublog.OpPublish)
	if s == nil || s.publisher == nil {
		log.DebugContext(ctx, "AMQP client not available, skipping event", fields.ToSlice()...)
		return
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = s.clock.Now()
	}
	if err := s.publisher.PublishEvent(ctx, e); err != nil {
		s.metrics.EventPublished(string(e.Type), "error")
		log.ErrorContext(ctx, "Failed to publish event", fields.WithError(err).ToSlice()...)
		return
	}
	s.metrics.EventPublished(string(e.Type), "ok")
}
