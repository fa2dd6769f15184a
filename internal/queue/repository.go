package queue

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gridironhq/draftd/internal/apperrors"
	"github.com/gridironhq/draftd/internal/models"
	"github.com/gridironhq/draftd/internal/sqlutil"
)

const uniqueViolation = "23505"

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Insert appends a player to the tail of a roster's queue. A duplicate
// (draft, roster, player) insert maps to Conflict.
func (r *Repository) Insert(ctx context.Context, draftID, rosterID, playerID uuid.UUID) (*models.DraftQueue, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO draft_queues (id, draft_id, roster_id, player_id, queue_position)
		SELECT $1, $2, $3, $4, COALESCE(MAX(queue_position), 0) + 1
		FROM draft_queues
		WHERE draft_id = $2 AND roster_id = $3
		RETURNING id, draft_id, roster_id, player_id, queue_position`,
		uuid.New(), draftID, rosterID, playerID,
	)

	var entry models.DraftQueue
	if err := row.Scan(&entry.ID, &entry.DraftID, &entry.RosterID, &entry.PlayerID, &entry.QueuePosition); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, apperrors.Conflictf("player %s already queued for roster %s", playerID, rosterID)
		}
		return nil, fmt.Errorf("failed to insert queue entry: %w", err)
	}
	return &entry, nil
}

func (r *Repository) GetEntry(ctx context.Context, id uuid.UUID) (*models.DraftQueue, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, draft_id, roster_id, player_id, queue_position
		FROM draft_queues WHERE id = $1`,
		id,
	)

	var entry models.DraftQueue
	if err := row.Scan(&entry.ID, &entry.DraftID, &entry.RosterID, &entry.PlayerID, &entry.QueuePosition); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFoundf("queue entry %s not found", id)
		}
		return nil, fmt.Errorf("failed to get queue entry: %w", err)
	}
	return &entry, nil
}

func (r *Repository) GetQueue(ctx context.Context, draftID, rosterID uuid.UUID) ([]models.DraftQueue, error) {
	return fetchQueue(ctx, r.pool, draftID, rosterID)
}

// RemoveAndCompact deletes one entry and renumbers the remaining entries of
// that roster's queue to stay contiguous from 1.
func (r *Repository) RemoveAndCompact(ctx context.Context, entry models.DraftQueue) error {
	return sqlutil.InTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `DELETE FROM draft_queues WHERE id = $1`, entry.ID)
		if err != nil {
			return fmt.Errorf("failed to delete queue entry: %w", err)
		}
		if tag.RowsAffected() == 0 {
			// Already removed by a concurrent purge; nothing to compact.
			return nil
		}
		return compactRoster(ctx, tx, entry.DraftID, entry.RosterID)
	})
}

// Reorder applies new positions to a roster's queue. Membership has been
// validated by the app layer against the same snapshot; the whole update is
// one transaction.
func (r *Repository) Reorder(ctx context.Context, draftID, rosterID uuid.UUID, moves []ReorderMove) error {
	return sqlutil.InTx(ctx, r.pool, func(tx pgx.Tx) error {
		// Shift out of the unique range first so intermediate states never
		// collide.
		_, err := tx.Exec(ctx, `
			UPDATE draft_queues SET queue_position = -queue_position
			WHERE draft_id = $1 AND roster_id = $2`,
			draftID, rosterID,
		)
		if err != nil {
			return fmt.Errorf("failed to stage queue reorder: %w", err)
		}

		for _, m := range moves {
			_, err := tx.Exec(ctx, `
				UPDATE draft_queues SET queue_position = $1
				WHERE id = $2 AND draft_id = $3 AND roster_id = $4`,
				m.NewPosition, m.ID, draftID, rosterID,
			)
			if err != nil {
				return fmt.Errorf("failed to reorder queue entry %s: %w", m.ID, err)
			}
		}
		return nil
	})
}

// PurgeDraftedPlayerTx removes a drafted player from every roster's queue in
// the draft and re-compacts positions. It runs on the caller's transaction
// so the purge commits with the pick that drafted the player.
func PurgeDraftedPlayerTx(ctx context.Context, db sqlutil.DBTX, draftID, playerID uuid.UUID) error {
	tag, err := db.Exec(ctx, `
		DELETE FROM draft_queues WHERE draft_id = $1 AND player_id = $2`,
		draftID, playerID,
	)
	if err != nil {
		return fmt.Errorf("failed to purge drafted player from queues: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil
	}

	_, err = db.Exec(ctx, `
		WITH renumbered AS (
			SELECT id, ROW_NUMBER() OVER (
				PARTITION BY roster_id ORDER BY queue_position
			) AS rn
			FROM draft_queues WHERE draft_id = $1
		)
		UPDATE draft_queues q SET queue_position = renumbered.rn
		FROM renumbered
		WHERE q.id = renumbered.id AND q.queue_position <> renumbered.rn`,
		draftID,
	)
	if err != nil {
		return fmt.Errorf("failed to compact queues after purge: %w", err)
	}
	return nil
}

func compactRoster(ctx context.Context, db sqlutil.DBTX, draftID, rosterID uuid.UUID) error {
	_, err := db.Exec(ctx, `
		WITH renumbered AS (
			SELECT id, ROW_NUMBER() OVER (ORDER BY queue_position) AS rn
			FROM draft_queues WHERE draft_id = $1 AND roster_id = $2
		)
		UPDATE draft_queues q SET queue_position = renumbered.rn
		FROM renumbered
		WHERE q.id = renumbered.id AND q.queue_position <> renumbered.rn`,
		draftID, rosterID,
	)
	if err != nil {
		return fmt.Errorf("failed to compact queue: %w", err)
	}
	return nil
}

func fetchQueue(ctx context.Context, db sqlutil.DBTX, draftID, rosterID uuid.UUID) ([]models.DraftQueue, error) {
	rows, err := db.Query(ctx, `
		SELECT id, draft_id, roster_id, player_id, queue_position
		FROM draft_queues
		WHERE draft_id = $1 AND roster_id = $2
		ORDER BY queue_position`,
		draftID, rosterID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch queue: %w", err)
	}
	defer rows.Close()

	var entries []models.DraftQueue
	for rows.Next() {
		var e models.DraftQueue
		if err := rows.Scan(&e.ID, &e.DraftID, &e.RosterID, &e.PlayerID, &e.QueuePosition); err != nil {
			return nil, fmt.Errorf("failed to scan queue entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
