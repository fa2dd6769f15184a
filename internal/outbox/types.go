// Package outbox implements the transactional outbox: draft runtimes insert
// events in the same transaction as their state mutation, and a listener
// publishes committed events to NATS JetStream. Broadcast delivery is
// best-effort and never rolls back a pick.
package outbox

import (
	"time"

	"github.com/google/uuid"
)

// Event is one row of the draft_outbox table.
type Event struct {
	ID        uuid.UUID
	DraftID   uuid.UUID
	EventType string
	Payload   []byte
	CreatedAt time.Time
}

// NewEvent builds an unsent event for insertion.
func NewEvent(draftID uuid.UUID, eventType string, payload []byte) Event {
	return Event{
		ID:        uuid.New(),
		DraftID:   draftID,
		EventType: eventType,
		Payload:   payload,
	}
}
