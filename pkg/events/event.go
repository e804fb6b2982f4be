package events

import "time"

// Event defines the contract for all system events.
type Event interface {
	// EventType returns the unique code for this event (e.g., "INTAKE_SESSION_STARTED").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// BaseEvent is the plain implementation used by publishers and subscribers.
type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

const (
	// SubjectPrefix is prepended to the event type to form the bus subject.
	SubjectPrefix = "events."

	TypeIntakeInbound = "INTAKE_INBOUND"
	TypeIntakeReply   = "INTAKE_REPLY"
)

// Subject returns the bus subject an event type is published on.
func Subject(eventType string) string {
	return SubjectPrefix + eventType
}
