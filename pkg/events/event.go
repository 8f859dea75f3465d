package events

import "time"

// Event defines the contract for all system events.
type Event interface {
	// EventType returns the unique code for this event (e.g., "SESSION_CREATED").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// BaseEvent helps embed common logic if needed,
// strictly creating valid implementations is preferred though.
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

// Event type codes used across the backend.
const (
	TypeSessionCreated  = "SESSION_CREATED"
	TypeSessionDeleted  = "SESSION_DELETED"
	TypeSessionExpired  = "SESSION_EXPIRED"
	TypeSessionAborted  = "SESSION_ABORTED"
	TypeDocumentIndexed = "DOCUMENT_INDEXED"
)

// NewSessionEvent builds a session lifecycle event.
func NewSessionEvent(eventType, sessionId string) Event {
	return BaseEvent{
		Type: eventType,
		Data: map[string]interface{}{
			"session_id": sessionId,
		},
		OccurredAt: time.Now(),
	}
}

// NewDocumentIndexedEvent is emitted once a document's chunks are stored.
func NewDocumentIndexedEvent(documentId string, chunks int) Event {
	return BaseEvent{
		Type: TypeDocumentIndexed,
		Data: map[string]interface{}{
			"document_id": documentId,
			"chunks":      chunks,
		},
		OccurredAt: time.Now(),
	}
}
