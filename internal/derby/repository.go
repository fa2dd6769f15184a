package derby

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gridironhq/draftd/internal/apperrors"
	"github.com/gridironhq/draftd/internal/models"
	"github.com/gridironhq/draftd/internal/outbox"
	"github.com/gridironhq/draftd/internal/sqlutil"
)

// Repository provides derby slot-selection persistence on top of the
// drafts and draft_order tables.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const getDraftQuery = `
SELECT id, league_id, draft_type, status, settings,
       current_pick, current_round, current_roster_id, pick_deadline,
       started_at, completed_at, created_at, updated_at
FROM drafts
WHERE id = $1`

func (r *Repository) GetDraft(ctx context.Context, draftID uuid.UUID) (*models.Draft, error) {
	row := r.pool.QueryRow(ctx, getDraftQuery, draftID)

	var d models.Draft
	var settings []byte
	err := row.Scan(
		&d.ID, &d.LeagueID, &d.DraftType, &d.Status, &settings,
		&d.CurrentPick, &d.CurrentRound, &d.CurrentRosterID, &d.PickDeadline,
		&d.StartedAt, &d.CompletedAt, &d.CreatedAt, &d.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NotFoundf("draft %s not found", draftID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get draft: %w", err)
	}
	if err := json.Unmarshal(settings, &d.Settings); err != nil {
		return nil, fmt.Errorf("failed to unmarshal draft settings: %w", err)
	}
	return &d, nil
}

const listOrderQuery = `
SELECT id, draft_id, roster_id, draft_position, seq
FROM draft_order
WHERE draft_id = $1
ORDER BY seq`

func (r *Repository) ListOrder(ctx context.Context, draftID uuid.UUID) ([]models.DraftOrder, error) {
	rows, err := r.pool.Query(ctx, listOrderQuery, draftID)
	if err != nil {
		return nil, fmt.Errorf("failed to list draft order: %w", err)
	}
	defer rows.Close()

	var out []models.DraftOrder
	for rows.Next() {
		var o models.DraftOrder
		if err := rows.Scan(&o.ID, &o.DraftID, &o.RosterID, &o.DraftPosition, &o.Seq); err != nil {
			return nil, fmt.Errorf("failed to scan draft order row: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// StartDerby inserts the randomized picking order with unassigned positions
// and flips the derby settings to IN_PROGRESS. The update is conditioned on
// the derby still being NOT_STARTED.
func (r *Repository) StartDerby(ctx context.Context, p StartDerbyParams) error {
	settings, err := json.Marshal(p.Settings)
	if err != nil {
		return fmt.Errorf("failed to marshal draft settings: %w", err)
	}

	return sqlutil.InTx(ctx, r.pool, func(tx pgx.Tx) error {
		for _, o := range p.NewOrder {
			_, err := tx.Exec(ctx, `
				INSERT INTO draft_order (id, draft_id, roster_id, draft_position)
				VALUES ($1, $2, $3, $4)`,
				o.ID, o.DraftID, o.RosterID, o.DraftPosition,
			)
			if err != nil {
				return fmt.Errorf("failed to insert draft order row: %w", err)
			}
		}

		tag, err := tx.Exec(ctx, `
			UPDATE drafts
			SET settings = $2, pick_deadline = $3, updated_at = NOW()
			WHERE id = $1
			  AND status = $4
			  AND settings->'derby'->>'status' = $5`,
			p.DraftID, settings, deadlineArg(p.PickDeadline),
			models.DraftStatusNotStarted, models.DerbyStatusNotStarted,
		)
		if err != nil {
			return fmt.Errorf("failed to start derby: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return apperrors.Conflictf("derby for draft %s is not startable", p.DraftID)
		}

		return outbox.InsertTx(ctx, tx, p.Events...)
	})
}

// Advance applies one derby transition atomically. A zero-row settings
// update means another actor already moved the picker index and the caller
// gets a Conflict.
func (r *Repository) Advance(ctx context.Context, p AdvanceParams) error {
	settings, err := json.Marshal(p.Settings)
	if err != nil {
		return fmt.Errorf("failed to marshal draft settings: %w", err)
	}

	return sqlutil.InTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE drafts
			SET settings = $2, pick_deadline = $3, updated_at = NOW()
			WHERE id = $1
			  AND settings->'derby'->>'status' = $4
			  AND (settings->'derby'->>'current_picker_index')::int = $5`,
			p.DraftID, settings, deadlineArg(p.PickDeadline),
			models.DerbyStatusInProgress, p.ExpectedPickerIndex,
		)
		if err != nil {
			return fmt.Errorf("failed to advance derby: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return apperrors.Conflictf("derby picker for draft %s already advanced past index %d", p.DraftID, p.ExpectedPickerIndex)
		}

		if p.ClearPosition != nil {
			if _, err := tx.Exec(ctx, `
				UPDATE draft_order SET draft_position = 0 WHERE id = $1`,
				*p.ClearPosition,
			); err != nil {
				return fmt.Errorf("failed to clear overridden slot: %w", err)
			}
		}

		assignments := p.CatchAll
		if p.Assign != nil {
			assignments = append([]SlotAssignment{*p.Assign}, assignments...)
		}
		for _, a := range assignments {
			tag, err := tx.Exec(ctx, `
				UPDATE draft_order
				SET draft_position = $2
				WHERE id = $1 AND draft_position = 0`,
				a.OrderID, a.Slot,
			)
			if err != nil {
				return fmt.Errorf("failed to assign slot %d: %w", a.Slot, err)
			}
			if tag.RowsAffected() == 0 {
				return apperrors.Conflictf("order row %s already holds a slot", a.OrderID)
			}
		}

		return outbox.InsertTx(ctx, tx, p.Events...)
	})
}

const fetchDueDerbiesQuery = `
SELECT id
FROM drafts
WHERE draft_type = $1
  AND settings->'derby'->>'status' = $2
  AND pick_deadline IS NOT NULL
  AND pick_deadline < $3
ORDER BY pick_deadline
LIMIT $4`

// FetchDueDerbies returns derbies whose current picker ran out of time.
func (r *Repository) FetchDueDerbies(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, fetchDueDerbiesQuery,
		models.DraftTypeDerby, models.DerbyStatusInProgress, now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch due derbies: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan due derby id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func deadlineArg(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}
