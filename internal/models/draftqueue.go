package models

import "github.com/google/uuid"

// DraftQueue is one entry in a roster's ordered auto-pick preference list.
// QueuePosition is unique per (draft, roster) and kept contiguous from 1.
type DraftQueue struct {
	ID            uuid.UUID `json:"id"`
	DraftID       uuid.UUID `json:"draft_id"`
	RosterID      uuid.UUID `json:"roster_id"`
	PlayerID      uuid.UUID `json:"player_id"`
	QueuePosition int       `json:"queue_position"`
}
