package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"trainingclub/internal/core"
)

// EventMessage is the wire form of a core.Event. The worker reloads the row
// by ID; Data carries values for rows that no longer exist.
type EventMessage struct {
	Type       string            `json:"type"`
	ID         string            `json:"id"`
	MemberID   string            `json:"member_id,omitempty"`
	Data       map[string]string `json:"data,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
	Timestamp  time.Time         `json:"timestamp"`
}

func NewEventMessage(e core.Event) *EventMessage {
	return &EventMessage{
		Type:       string(e.Type),
		ID:         e.EntityID,
		MemberID:   e.MemberID,
		Data:       e.Data,
		OccurredAt: e.OccurredAt,
		Timestamp:  time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *EventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// Event converts back to the domain form.
func (m *EventMessage) Event() core.Event {
	return core.Event{
		Type:       core.EventType(m.Type),
		EntityID:   m.ID,
		MemberID:   m.MemberID,
		Data:       m.Data,
		OccurredAt: m.OccurredAt,
	}
}

// EventMessageFromJSON decodes a message and rejects unknown event types.
func EventMessageFromJSON(data []byte) (*EventMessage, error) {
	var msg EventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if !core.EventType(msg.Type).Valid() {
		return nil, fmt.Errorf("unknown event type %q", msg.Type)
	}
	if msg.ID == "" {
		return nil, fmt.Errorf("event %s without id", msg.Type)
	}
	return &msg, nil
}
