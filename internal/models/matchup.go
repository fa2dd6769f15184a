package models

import (
	"time"

	"github.com/google/uuid"
)

// MatchupDraft is a turn-based draft where rosters pick which opponent they
// play in which week, building the season schedule. StartWeek is inclusive,
// PlayoffWeekStart exclusive.
type MatchupDraft struct {
	ID               uuid.UUID   `json:"id"`
	LeagueID         uuid.UUID   `json:"league_id"`
	Status           DraftStatus `json:"status"`
	CurrentPick      *int        `json:"current_pick,omitempty"`
	CurrentRound     *int        `json:"current_round,omitempty"`
	CurrentRosterID  *uuid.UUID  `json:"current_roster_id,omitempty"`
	PickTimeSec      int         `json:"pick_time_sec"`
	PickDeadline     *time.Time  `json:"pick_deadline,omitempty"`
	StartWeek        int         `json:"start_week"`
	PlayoffWeekStart int         `json:"playoff_week_start"`
	StartedAt        *time.Time  `json:"started_at,omitempty"`
	CompletedAt      *time.Time  `json:"completed_at,omitempty"`
	CreatedAt        time.Time   `json:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at"`
}

// Weeks returns the number of regular-season weeks the draft schedules.
func (d MatchupDraft) Weeks() int {
	return d.PlayoffWeekStart - d.StartWeek
}

// MatchupDraftPick assigns an opponent to one roster for one week. The pick
// is one-directional: the reverse fixture is implied by convention, not
// stored.
type MatchupDraftPick struct {
	ID               uuid.UUID `json:"id"`
	MatchupDraftID   uuid.UUID `json:"matchup_draft_id"`
	PickNumber       int       `json:"pick_number"`
	Round            int       `json:"round"`
	RosterID         uuid.UUID `json:"roster_id"`
	OpponentRosterID uuid.UUID `json:"opponent_roster_id"`
	WeekNumber       int       `json:"week_number"`
	IsAutoPick       bool      `json:"is_auto_pick"`
	CreatedAt        time.Time `json:"created_at"`
}

// MatchupOption is an (opponent, week) pair still available to a roster.
type MatchupOption struct {
	OpponentRosterID uuid.UUID `json:"opponent_roster_id"`
	WeekNumber       int       `json:"week_number"`
}
