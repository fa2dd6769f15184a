package derby

import (
	"time"

	"github.com/google/uuid"

	"github.com/gridironhq/draftd/internal/models"
	"github.com/gridironhq/draftd/internal/outbox"
)

type SelectSlotRequest struct {
	DraftID          uuid.UUID `json:"draft_id"`
	RosterID         uuid.UUID `json:"roster_id"`
	SlotNumber       int       `json:"slot_number"`
	OverrideExisting bool      `json:"override_existing"`
}

// SlotAssignment writes one draft position onto one order row.
type SlotAssignment struct {
	OrderID uuid.UUID
	Slot    int
}

// StartDerbyParams begins slot selection: order rows are inserted with
// position 0 and the derby settings flip to IN_PROGRESS.
type StartDerbyParams struct {
	DraftID      uuid.UUID
	NewOrder     []models.DraftOrder
	Settings     models.DraftSettings
	PickDeadline *time.Time
	Events       []outbox.Event
}

// AdvanceParams is the atomic derby transition: optionally assign a slot
// (clearing another row first on override), move the picker index, and on
// completion apply the catch-all assignments. The write is conditioned on
// ExpectedPickerIndex.
type AdvanceParams struct {
	DraftID             uuid.UUID
	ExpectedPickerIndex int

	Assign        *SlotAssignment
	ClearPosition *uuid.UUID // order row losing its slot on override
	CatchAll      []SlotAssignment

	Settings     models.DraftSettings
	PickDeadline *time.Time
	Events       []outbox.Event
}
