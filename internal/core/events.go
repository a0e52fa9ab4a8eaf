package core

import "time"

type EventType string

const (
	EventAttendanceRecorded EventType = "attendance.recorded"
	EventFeeUpdated         EventType = "fee.updated"
	EventLedgerCreated      EventType = "ledger.created"
	EventLedgerDeleted      EventType = "ledger.deleted"
	EventPriceCreated       EventType = "price.created"
)

// Event is published after a successful write. EntityID is the primary key
// of the written row; for fee updates it is "year-month". Data carries the
// values a consumer needs when the row may already be gone.
type Event struct {
	Type       EventType
	EntityID   string
	MemberID   string
	Data       map[string]string
	OccurredAt time.Time
}

func (t EventType) Valid() bool {
	switch t {
	case EventAttendanceRecorded, EventFeeUpdated, EventLedgerCreated, EventLedgerDeleted, EventPriceCreated:
		return true
	}
	return false
}
