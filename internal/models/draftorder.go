package models

import "github.com/google/uuid"

// DraftOrder is one roster's entry in a draft's pick order. DraftPosition is
// a permutation of 1..N over the league's rosters. For derby drafts the
// position starts at 0 (unassigned) and is filled in one at a time as teams
// pick slots; the original picking order is the row insertion order (Seq),
// which is distinct from the position being assigned.
type DraftOrder struct {
	ID            uuid.UUID `json:"id"`
	DraftID       uuid.UUID `json:"draft_id"`
	RosterID      uuid.UUID `json:"roster_id"`
	DraftPosition int       `json:"draft_position"`
	Seq           int64     `json:"seq"`
}

// Assigned reports whether this entry has a draft position yet. Always true
// outside derby drafts.
func (o DraftOrder) Assigned() bool {
	return o.DraftPosition > 0
}
