package models

import (
	"time"

	"github.com/google/uuid"
)

// DraftType defines the type of draft.
type DraftType string

const (
	DraftTypeSnake              DraftType = "SNAKE"
	DraftTypeLinear             DraftType = "LINEAR"
	DraftTypeThirdRoundReversal DraftType = "THIRD_ROUND_REVERSAL"
	DraftTypeAuction            DraftType = "AUCTION"
	DraftTypeDerby              DraftType = "DERBY"
)

// DraftStatus defines the status of a draft.
type DraftStatus string

const (
	DraftStatusNotStarted DraftStatus = "NOT_STARTED"
	DraftStatusInProgress DraftStatus = "IN_PROGRESS"
	DraftStatusPaused     DraftStatus = "PAUSED"
	DraftStatusCompleted  DraftStatus = "COMPLETED"
	DraftStatusCancelled  DraftStatus = "CANCELLED"
)

// DerbyStatus tracks the slot-selection phase of a derby draft separately
// from the outer draft status.
type DerbyStatus string

const (
	DerbyStatusNotStarted DerbyStatus = "NOT_STARTED"
	DerbyStatusInProgress DerbyStatus = "IN_PROGRESS"
	DerbyStatusCompleted  DerbyStatus = "COMPLETED"
)

// DerbyTimeoutPolicy controls what happens when a derby picker misses their
// deadline.
type DerbyTimeoutPolicy string

const (
	DerbyTimeoutRandomize DerbyTimeoutPolicy = "RANDOMIZE"
	DerbyTimeoutSkip      DerbyTimeoutPolicy = "SKIP"
)

// DerbySettings holds derby-specific draft state. Unlike the standard pick
// counters these fields live in the settings JSONB because they only exist
// for derby drafts.
type DerbySettings struct {
	TimerSec           int                `json:"timer_sec"`
	OnTimeout          DerbyTimeoutPolicy `json:"on_timeout"`
	CurrentPickerIndex int                `json:"current_picker_index"`
	Status             DerbyStatus        `json:"status"`
	SkippedRosterIDs   []uuid.UUID        `json:"skipped_roster_ids,omitempty"`
}

// DraftSettings holds JSONB configuration for drafts.
type DraftSettings struct {
	Rounds             int            `json:"rounds"`
	PickTimeSec        int            `json:"pick_time_sec"`
	Derby              *DerbySettings `json:"derby,omitempty"`
	PausedRemainingSec *int           `json:"paused_remaining_sec,omitempty"`
}

// Timed reports whether picks in this draft run against a deadline.
func (s DraftSettings) Timed() bool {
	return s.PickTimeSec > 0
}

// Draft represents a draft instance. CurrentPick, CurrentRound,
// CurrentRosterID and PickDeadline are nil before the draft starts and
// after it completes.
type Draft struct {
	ID              uuid.UUID     `json:"id"`
	LeagueID        uuid.UUID     `json:"league_id"`
	DraftType       DraftType     `json:"draft_type"`
	Status          DraftStatus   `json:"status"`
	CurrentPick     *int          `json:"current_pick,omitempty"`
	CurrentRound    *int          `json:"current_round,omitempty"`
	CurrentRosterID *uuid.UUID    `json:"current_roster_id,omitempty"`
	PickDeadline    *time.Time    `json:"pick_deadline,omitempty"`
	Settings        DraftSettings `json:"settings"`
	StartedAt       *time.Time    `json:"started_at,omitempty"`
	CompletedAt     *time.Time    `json:"completed_at,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}
