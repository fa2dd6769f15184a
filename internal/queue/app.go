// Package queue manages per-roster auto-pick preference lists. Availability
// is checked at add time as a courtesy, but the race window between add and
// pick is expected: consumption re-validates every entry before use.
package queue

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/gridironhq/draftd/internal/apperrors"
	"github.com/gridironhq/draftd/internal/models"
)

// QueueRepository defines what the queue app layer needs from the queue
// repository.
type QueueRepository interface {
	Insert(ctx context.Context, draftID, rosterID, playerID uuid.UUID) (*models.DraftQueue, error)
	GetEntry(ctx context.Context, id uuid.UUID) (*models.DraftQueue, error)
	GetQueue(ctx context.Context, draftID, rosterID uuid.UUID) ([]models.DraftQueue, error)
	RemoveAndCompact(ctx context.Context, entry models.DraftQueue) error
	Reorder(ctx context.Context, draftID, rosterID uuid.UUID, moves []ReorderMove) error
}

// PlayerOracle answers whether a player is still undrafted in a draft.
type PlayerOracle interface {
	IsPlayerAvailable(ctx context.Context, draftID, playerID uuid.UUID) (bool, error)
}

// ReorderMove assigns one queue entry a new position.
type ReorderMove struct {
	ID          uuid.UUID `json:"id"`
	NewPosition int       `json:"new_position"`
}

// App handles queue business logic.
type App struct {
	repo    QueueRepository
	players PlayerOracle
}

func NewApp(repo QueueRepository, players PlayerOracle) *App {
	return &App{repo: repo, players: players}
}

// Add queues a player for a roster. Fails with Conflict if already queued
// and with Validation if the player has already been drafted.
func (a *App) Add(ctx context.Context, draftID, rosterID, playerID uuid.UUID) (*models.DraftQueue, error) {
	available, err := a.players.IsPlayerAvailable(ctx, draftID, playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to check player availability: %w", err)
	}
	if !available {
		return nil, apperrors.Validationf("player %s has already been drafted", playerID)
	}

	entry, err := a.repo.Insert(ctx, draftID, rosterID, playerID)
	if err != nil {
		return nil, err
	}

	log.Debug().
		Str("draft_id", draftID.String()).
		Str("roster_id", rosterID.String()).
		Str("player_id", playerID.String()).
		Int("position", entry.QueuePosition).
		Msg("queued player")
	return entry, nil
}

// Remove deletes a queue entry and compacts the remaining positions.
func (a *App) Remove(ctx context.Context, queueID uuid.UUID) error {
	entry, err := a.repo.GetEntry(ctx, queueID)
	if err != nil {
		return err
	}
	return a.repo.RemoveAndCompact(ctx, *entry)
}

// List returns a roster's queue in position order.
func (a *App) List(ctx context.Context, draftID, rosterID uuid.UUID) ([]models.DraftQueue, error) {
	return a.repo.GetQueue(ctx, draftID, rosterID)
}

// Reorder applies new positions to a roster's queue. Every referenced id
// must belong to that roster's queue and the new positions must be a
// permutation of 1..len(queue); anything else rejects the whole request.
func (a *App) Reorder(ctx context.Context, draftID, rosterID uuid.UUID, moves []ReorderMove) error {
	current, err := a.repo.GetQueue(ctx, draftID, rosterID)
	if err != nil {
		return err
	}
	if len(moves) != len(current) {
		return apperrors.Validationf("reorder must cover all %d queue entries, got %d", len(current), len(moves))
	}

	owned := make(map[uuid.UUID]bool, len(current))
	for _, e := range current {
		owned[e.ID] = true
	}

	seenID := make(map[uuid.UUID]bool, len(moves))
	seenPos := make(map[int]bool, len(moves))
	for _, m := range moves {
		if !owned[m.ID] {
			return apperrors.Validationf("queue entry %s does not belong to roster %s", m.ID, rosterID)
		}
		if seenID[m.ID] {
			return apperrors.Validationf("queue entry %s listed twice", m.ID)
		}
		if m.NewPosition < 1 || m.NewPosition > len(moves) || seenPos[m.NewPosition] {
			return apperrors.Validationf("new positions must be a permutation of 1..%d", len(moves))
		}
		seenID[m.ID] = true
		seenPos[m.NewPosition] = true
	}

	return a.repo.Reorder(ctx, draftID, rosterID, moves)
}

// NextAvailable returns the lowest-position entry whose player is still
// undrafted. Entries whose player was drafted since being queued are
// discarded as they are encountered; the search is bounded by the queue
// length. Returns nil with no error when the queue is exhausted.
func (a *App) NextAvailable(ctx context.Context, draftID, rosterID uuid.UUID) (*models.DraftQueue, error) {
	entries, err := a.repo.GetQueue(ctx, draftID, rosterID)
	if err != nil {
		return nil, err
	}

	for _, entry := range entries {
		available, err := a.players.IsPlayerAvailable(ctx, draftID, entry.PlayerID)
		if err != nil {
			return nil, fmt.Errorf("failed to check player availability: %w", err)
		}
		if available {
			return &entry, nil
		}

		// Stale entry: the player was drafted after being queued.
		if err := a.repo.RemoveAndCompact(ctx, entry); err != nil {
			log.Warn().
				Err(err).
				Str("queue_id", entry.ID.String()).
				Msg("failed to discard stale queue entry")
		}
	}
	return nil, nil
}
