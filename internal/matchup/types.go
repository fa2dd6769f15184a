package matchup

import (
	"time"

	"github.com/google/uuid"

	"github.com/gridironhq/draftd/internal/models"
	"github.com/gridironhq/draftd/internal/outbox"
)

type CreateMatchupDraftRequest struct {
	ID               uuid.UUID `json:"id"`
	LeagueID         uuid.UUID `json:"league_id"`
	PickTimeSec      int       `json:"pick_time_sec"`
	StartWeek        int       `json:"start_week"`
	PlayoffWeekStart int       `json:"playoff_week_start"`
}

type MakePickRequest struct {
	DraftID          uuid.UUID `json:"draft_id"`
	RosterID         uuid.UUID `json:"roster_id"`
	OpponentRosterID uuid.UUID `json:"opponent_roster_id"`
	WeekNumber       int       `json:"week_number"`
}

type StartParams struct {
	DraftID       uuid.UUID
	NewOrder      []models.DraftOrder
	FirstRosterID uuid.UUID
	PickDeadline  *time.Time
	StartedAt     time.Time
	Events        []outbox.Event
}

// RecordPickParams is the atomic matchup pick write, conditioned on
// ExpectedPick.
type RecordPickParams struct {
	DraftID      uuid.UUID
	ExpectedPick int
	Pick         models.MatchupDraftPick

	Completed   bool
	CompletedAt *time.Time

	NextPick     int
	NextRound    int
	NextRosterID uuid.UUID
	NextDeadline *time.Time

	Events []outbox.Event
}

// CompleteWithPicksParams fills the whole schedule in one transaction. The
// write is refused if any pick already exists, locking out the turn-based
// mode once taken and vice versa.
type CompleteWithPicksParams struct {
	DraftID     uuid.UUID
	Picks       []models.MatchupDraftPick
	CompletedAt time.Time
	Events      []outbox.Event
}

type CancelParams struct {
	DraftID uuid.UUID
	Events  []outbox.Event
}
