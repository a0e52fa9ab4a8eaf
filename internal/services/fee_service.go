package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"trainingclub/internal/core"
	"trainingclub/internal/storage"
)

// FeeService tracks paid/unpaid state per member and month.
type FeeService struct {
	store  *storage.SQLiteRepository
	clock  core.Clock
	events *eventSink
}

// SetPaid upserts the (member, year, month) state. Setting the current
// state again succeeds.
func (s *FeeService) SetPaid(ctx context.Context, memberID string, year, month int, isPaid bool) (core.FeeStatus, error) {
	memberID = strings.TrimSpace(memberID)
	if memberID == "" {
		return core.FeeStatus{}, core.NotFoundf("member not found")
	}
	if err := core.ValidateYearMonth(year, month); err != nil {
		return core.FeeStatus{}, err
	}
	if _, err := s.store.GetMember(ctx, memberID); err != nil {
		return core.FeeStatus{}, err
	}

	fs, err := s.store.UpsertFeeStatus(ctx, memberID, year, month, isPaid, s.clock.Now())
	if err != nil {
		return core.FeeStatus{}, err
	}

	s.events.publish(ctx, core.Event{
		Type:     core.EventFeeUpdated,
		EntityID: fmt.Sprintf("%d-%02d", year, month),
		MemberID: memberID,
		Data: map[string]string{
			"year":    strconv.Itoa(year),
			"month":   strconv.Itoa(month),
			"is_paid": strconv.FormatBool(isPaid),
		},
	})
	return fs, nil
}

// YearGrid returns every member's 12-month paid vector for year.
func (s *FeeService) YearGrid(ctx context.Context, year int) (core.FeeGrid, error) {
	if year < 1 {
		return core.FeeGrid{}, core.ErrInvalidYear
	}
	members, err := s.store.ListMembers(ctx)
	if err != nil {
		return core.FeeGrid{}, err
	}
	statuses, err := s.store.ListFeeStatuses(ctx, year)
	if err != nil {
		return core.FeeGrid{}, err
	}
	return core.BuildFeeGrid(year, members, statuses), nil
}
