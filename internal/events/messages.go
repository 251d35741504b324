package events

import (
	"encoding/json"
	"time"
)

// Event kinds published on the change stream.
const (
	KindExpenseCreated = "expense.created"
	KindStateChanged   = "state.changed"
)

// Event is a lightweight change notification. Consumers that care
// about the payload fetch current state through the API; the message
// carries only what happened and to which record.
type Event struct {
	Kind      string    `json:"kind"`
	ID        string    `json:"id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewEvent creates an event stamped with the current time.
func NewEvent(kind, id string) *Event {
	return &Event{
		Kind:      kind,
		ID:        id,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the event to JSON bytes.
func (e *Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// EventFromJSON creates an event from JSON bytes.
func EventFromJSON(data []byte) (*Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}
