package models

import (
	"time"

	"github.com/google/uuid"
)

// DraftPick is an append-only record of a made pick. PickNumber is globally
// unique per draft and strictly sequential.
type DraftPick struct {
	ID          uuid.UUID `json:"id"`
	DraftID     uuid.UUID `json:"draft_id"`
	PickNumber  int       `json:"pick_number"`
	Round       int       `json:"round"`
	RosterID    uuid.UUID `json:"roster_id"`
	PlayerID    uuid.UUID `json:"player_id"`
	IsAutoPick  bool      `json:"is_auto_pick"`
	PickTimeSec int       `json:"pick_time_sec"`
	CreatedAt   time.Time `json:"created_at"`
}
