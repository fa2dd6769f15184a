package draft

import (
	"time"

	"github.com/google/uuid"

	"github.com/gridironhq/draftd/internal/models"
	"github.com/gridironhq/draftd/internal/outbox"
)

type CreateDraftRequest struct {
	ID        uuid.UUID            `json:"id"`
	LeagueID  uuid.UUID            `json:"league_id"`
	DraftType models.DraftType     `json:"draft_type"`
	Settings  models.DraftSettings `json:"settings"`
}

type MakePickRequest struct {
	DraftID  uuid.UUID `json:"draft_id"`
	RosterID uuid.UUID `json:"roster_id"`
	PlayerID uuid.UUID `json:"player_id"`
}

// StartDraftParams is the atomic start transition. NewOrder is empty when
// the draft order already exists (e.g. assigned by a completed derby).
type StartDraftParams struct {
	DraftID       uuid.UUID
	NewOrder      []models.DraftOrder
	FirstRosterID uuid.UUID
	PickDeadline  *time.Time
	StartedAt     time.Time
	Events        []outbox.Event
}

// RecordPickParams is the atomic pick + advancement transition. The write
// is conditioned on ExpectedPick, the pick counter read before computing
// the advancement.
type RecordPickParams struct {
	DraftID      uuid.UUID
	ExpectedPick int
	Pick         models.DraftPick

	Completed   bool
	CompletedAt *time.Time

	NextPick     int
	NextRound    int
	NextRosterID uuid.UUID
	NextDeadline *time.Time

	Events []outbox.Event
}

type PauseParams struct {
	DraftID  uuid.UUID
	Settings models.DraftSettings
	Events   []outbox.Event
}

type ResumeParams struct {
	DraftID      uuid.UUID
	Settings     models.DraftSettings
	PickDeadline *time.Time
	Events       []outbox.Event
}

type CancelParams struct {
	DraftID uuid.UUID
	Events  []outbox.Event
}
