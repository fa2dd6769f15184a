package events

import (
	"time"

	"github.com/google/uuid"
)

// Event type names used as outbox event_type and NATS subject suffixes.
const (
	TypeDraftStarted          = "DraftStarted"
	TypeDraftPaused           = "DraftPaused"
	TypeDraftResumed          = "DraftResumed"
	TypeDraftCompleted        = "DraftCompleted"
	TypeDraftCancelled        = "DraftCancelled"
	TypePickMade              = "PickMade"
	TypeDerbyStarted          = "DerbyStarted"
	TypeDerbySlotSelected     = "DerbySlotSelected"
	TypeDerbySlotAutoAssigned = "DerbySlotAutoAssigned"
	TypeDerbyPickerSkipped    = "DerbyPickerSkipped"
	TypeDerbyCompleted        = "DerbyCompleted"
	TypeMatchupDraftStarted   = "MatchupDraftStarted"
	TypeMatchupPickMade       = "MatchupPickMade"
	TypeMatchupDraftCompleted = "MatchupDraftCompleted"
)

// DraftStartedPayload is the payload for a DraftStarted event.
type DraftStartedPayload struct {
	DraftID     string    `json:"draft_id"`
	DraftType   string    `json:"draft_type"`
	StartedAt   time.Time `json:"started_at"`
	TotalRounds int       `json:"total_rounds"`
	TotalPicks  int       `json:"total_picks"`
}

// DraftPausedPayload is the payload for a DraftPaused event.
type DraftPausedPayload struct {
	DraftID      string    `json:"draft_id"`
	PausedAt     time.Time `json:"paused_at"`
	RemainingSec int       `json:"remaining_sec"`
}

// DraftResumedPayload is the payload for a DraftResumed event.
type DraftResumedPayload struct {
	DraftID      string     `json:"draft_id"`
	ResumedAt    time.Time  `json:"resumed_at"`
	PickDeadline *time.Time `json:"pick_deadline,omitempty"`
}

// DraftCompletedPayload is the payload for a DraftCompleted event.
type DraftCompletedPayload struct {
	DraftID     string    `json:"draft_id"`
	CompletedAt time.Time `json:"completed_at"`
	TotalPicks  int       `json:"total_picks"`
}

// DraftCancelledPayload is the payload for a DraftCancelled event.
type DraftCancelledPayload struct {
	DraftID     string    `json:"draft_id"`
	CancelledAt time.Time `json:"cancelled_at"`
}

// PickMadePayload is the payload for a PickMade event.
type PickMadePayload struct {
	PickID       string     `json:"pick_id"`
	RosterID     string     `json:"roster_id"`
	PlayerID     string     `json:"player_id"`
	Round        int        `json:"round"`
	PickNumber   int        `json:"pick_number"`
	IsAutoPick   bool       `json:"is_auto_pick"`
	MadeAt       time.Time  `json:"made_at"`
	NextRosterID *uuid.UUID `json:"next_roster_id,omitempty"`
	PickDeadline *time.Time `json:"pick_deadline,omitempty"`
}

// DerbySlotPayload carries the derby state broadcast on every slot
// transition: the new picker index, derby status, and deadline.
type DerbySlotPayload struct {
	DraftID            string     `json:"draft_id"`
	RosterID           string     `json:"roster_id"`
	SlotNumber         int        `json:"slot_number,omitempty"`
	CurrentPickerIndex int        `json:"current_picker_index"`
	DerbyStatus        string     `json:"derby_status"`
	PickDeadline       *time.Time `json:"pick_deadline,omitempty"`
}

// MatchupDraftStartedPayload is the payload for a MatchupDraftStarted event.
type MatchupDraftStartedPayload struct {
	MatchupDraftID string    `json:"matchup_draft_id"`
	StartedAt      time.Time `json:"started_at"`
	Weeks          int       `json:"weeks"`
	TotalPicks     int       `json:"total_picks"`
}

// MatchupPickMadePayload is the payload for a MatchupPickMade event.
type MatchupPickMadePayload struct {
	MatchupDraftID   string     `json:"matchup_draft_id"`
	RosterID         string     `json:"roster_id"`
	OpponentRosterID string     `json:"opponent_roster_id"`
	WeekNumber       int        `json:"week_number"`
	PickNumber       int        `json:"pick_number"`
	IsAutoPick       bool       `json:"is_auto_pick"`
	NextRosterID     *uuid.UUID `json:"next_roster_id,omitempty"`
	PickDeadline     *time.Time `json:"pick_deadline,omitempty"`
}

// MatchupDraftCompletedPayload is the payload for a MatchupDraftCompleted
// event.
type MatchupDraftCompletedPayload struct {
	MatchupDraftID string    `json:"matchup_draft_id"`
	CompletedAt    time.Time `json:"completed_at"`
	TotalPicks     int       `json:"total_picks"`
	RandomFill     bool      `json:"random_fill"`
}
