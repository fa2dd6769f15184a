package draft

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gridironhq/draftd/internal/apperrors"
	"github.com/gridironhq/draftd/internal/models"
	"github.com/gridironhq/draftd/internal/outbox"
	"github.com/gridironhq/draftd/internal/queue"
	"github.com/gridironhq/draftd/internal/sqlutil"
)

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) CreateDraft(ctx context.Context, req CreateDraftRequest) (*models.Draft, error) {
	settingsBytes, err := json.Marshal(req.Settings)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal draft settings: %w", err)
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO drafts (id, league_id, draft_type, status, settings)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, league_id, draft_type, status, current_pick, current_round,
		          current_roster_id, pick_deadline, settings, started_at,
		          completed_at, created_at, updated_at`,
		req.ID, req.LeagueID, req.DraftType, models.DraftStatusNotStarted, settingsBytes,
	)
	return scanDraft(row)
}

func (r *Repository) GetDraft(ctx context.Context, id uuid.UUID) (*models.Draft, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, league_id, draft_type, status, current_pick, current_round,
		       current_roster_id, pick_deadline, settings, started_at,
		       completed_at, created_at, updated_at
		FROM drafts WHERE id = $1`,
		id,
	)
	draft, err := scanDraft(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFoundf("draft %s not found", id)
		}
		return nil, err
	}
	return draft, nil
}

// ListOrder returns the draft order in insertion order. Standard callers
// re-sort by position; derby iterates insertion order directly.
func (r *Repository) ListOrder(ctx context.Context, draftID uuid.UUID) ([]models.DraftOrder, error) {
	return listOrder(ctx, r.pool, draftID)
}

func (r *Repository) ListPicks(ctx context.Context, draftID uuid.UUID) ([]models.DraftPick, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, draft_id, pick_number, round, roster_id, player_id,
		       is_auto_pick, pick_time_sec, created_at
		FROM draft_picks
		WHERE draft_id = $1
		ORDER BY pick_number`,
		draftID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list draft picks: %w", err)
	}
	defer rows.Close()

	var picks []models.DraftPick
	for rows.Next() {
		var p models.DraftPick
		if err := rows.Scan(&p.ID, &p.DraftID, &p.PickNumber, &p.Round, &p.RosterID,
			&p.PlayerID, &p.IsAutoPick, &p.PickTimeSec, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan draft pick: %w", err)
		}
		picks = append(picks, p)
	}
	return picks, rows.Err()
}

// FetchDueDrafts returns standard drafts whose pick deadline has passed,
// bounded by limit. Derby drafts are swept separately.
func (r *Repository) FetchDueDrafts(ctx context.Context, now time.Time, limit int32) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id FROM drafts
		WHERE draft_type <> $1
		  AND status = $2
		  AND pick_deadline IS NOT NULL
		  AND pick_deadline < $3
		ORDER BY pick_deadline
		LIMIT $4`,
		models.DraftTypeDerby, models.DraftStatusInProgress, now, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch due drafts: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan due draft id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// StartDraft transitions a draft into IN_PROGRESS, inserting order rows when
// the order was freshly randomized. The status condition makes concurrent
// starts collapse to one winner.
func (r *Repository) StartDraft(ctx context.Context, p StartDraftParams) error {
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
			SET status = $2, current_pick = 1, current_round = 1,
			    current_roster_id = $3, pick_deadline = $4, started_at = $5,
			    updated_at = now()
			WHERE id = $1 AND status = $6`,
			p.DraftID, models.DraftStatusInProgress, p.FirstRosterID,
			p.PickDeadline, p.StartedAt, models.DraftStatusNotStarted,
		)
		if err != nil {
			return fmt.Errorf("failed to start draft: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return apperrors.Conflictf("draft %s is no longer startable", p.DraftID)
		}

		return outbox.InsertTx(ctx, tx, p.Events...)
	})
}

// RecordPick persists one pick and its advancement atomically. The
// advancement update is conditioned on the pick counter the caller read, so
// a concurrent pick (human vs. sweeper) loses cleanly with Conflict instead
// of clobbering.
func (r *Repository) RecordPick(ctx context.Context, p RecordPickParams) error {
	return sqlutil.InTx(ctx, r.pool, func(tx pgx.Tx) error {
		var (
			tag pgconn.CommandTag
			err error
		)
		if p.Completed {
			tag, err = tx.Exec(ctx, `
				UPDATE drafts
				SET status = $2, current_pick = NULL, current_round = NULL,
				    current_roster_id = NULL, pick_deadline = NULL,
				    completed_at = $3, updated_at = now()
				WHERE id = $1 AND status = $4 AND current_pick = $5`,
				p.DraftID, models.DraftStatusCompleted, p.CompletedAt,
				models.DraftStatusInProgress, p.ExpectedPick,
			)
		} else {
			tag, err = tx.Exec(ctx, `
				UPDATE drafts
				SET current_pick = $2, current_round = $3, current_roster_id = $4,
				    pick_deadline = $5, updated_at = now()
				WHERE id = $1 AND status = $6 AND current_pick = $7`,
				p.DraftID, p.NextPick, p.NextRound, p.NextRosterID,
				p.NextDeadline, models.DraftStatusInProgress, p.ExpectedPick,
			)
		}
		if err != nil {
			return fmt.Errorf("failed to advance draft: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return apperrors.Conflictf("draft %s advanced concurrently past pick %d", p.DraftID, p.ExpectedPick)
		}

		pick := p.Pick
		_, err = tx.Exec(ctx, `
			INSERT INTO draft_picks (id, draft_id, pick_number, round, roster_id,
			                         player_id, is_auto_pick, pick_time_sec)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			pick.ID, pick.DraftID, pick.PickNumber, pick.Round, pick.RosterID,
			pick.PlayerID, pick.IsAutoPick, pick.PickTimeSec,
		)
		if err != nil {
			return fmt.Errorf("failed to insert draft pick: %w", err)
		}

		if err := queue.PurgeDraftedPlayerTx(ctx, tx, p.DraftID, pick.PlayerID); err != nil {
			return err
		}

		return outbox.InsertTx(ctx, tx, p.Events...)
	})
}

// Pause captures remaining pick time into settings and clears the deadline.
func (r *Repository) Pause(ctx context.Context, p PauseParams) error {
	return r.transition(ctx, transitionParams{
		DraftID:    p.DraftID,
		FromStatus: models.DraftStatusInProgress,
		ToStatus:   models.DraftStatusPaused,
		Settings:   &p.Settings,
		Events:     p.Events,
	})
}

// Resume restores the deadline from the captured remaining time.
func (r *Repository) Resume(ctx context.Context, p ResumeParams) error {
	return r.transition(ctx, transitionParams{
		DraftID:    p.DraftID,
		FromStatus: models.DraftStatusPaused,
		ToStatus:   models.DraftStatusInProgress,
		Settings:   &p.Settings,
		Deadline:   p.PickDeadline,
		SetDeadline: true,
		Events:     p.Events,
	})
}

// Cancel moves a draft to CANCELLED from any pre-completed state.
func (r *Repository) Cancel(ctx context.Context, p CancelParams) error {
	return sqlutil.InTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE drafts
			SET status = $2, pick_deadline = NULL, updated_at = now()
			WHERE id = $1 AND status = ANY($3)`,
			p.DraftID, models.DraftStatusCancelled,
			[]models.DraftStatus{models.DraftStatusNotStarted, models.DraftStatusInProgress, models.DraftStatusPaused},
		)
		if err != nil {
			return fmt.Errorf("failed to cancel draft: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return apperrors.Conflictf("draft %s is not cancellable", p.DraftID)
		}
		return outbox.InsertTx(ctx, tx, p.Events...)
	})
}

type transitionParams struct {
	DraftID     uuid.UUID
	FromStatus  models.DraftStatus
	ToStatus    models.DraftStatus
	Settings    *models.DraftSettings
	Deadline    *time.Time
	SetDeadline bool
	Events      []outbox.Event
}

func (r *Repository) transition(ctx context.Context, p transitionParams) error {
	settingsBytes, err := json.Marshal(p.Settings)
	if err != nil {
		return fmt.Errorf("failed to marshal draft settings: %w", err)
	}

	return sqlutil.InTx(ctx, r.pool, func(tx pgx.Tx) error {
		var deadline any // NULL unless explicitly set
		if p.SetDeadline {
			deadline = p.Deadline
		}
		tag, err := tx.Exec(ctx, `
			UPDATE drafts
			SET status = $2, settings = $3, pick_deadline = $4, updated_at = now()
			WHERE id = $1 AND status = $5`,
			p.DraftID, p.ToStatus, settingsBytes, deadline, p.FromStatus,
		)
		if err != nil {
			return fmt.Errorf("failed to transition draft to %s: %w", p.ToStatus, err)
		}
		if tag.RowsAffected() == 0 {
			return apperrors.Conflictf("draft %s is not in status %s", p.DraftID, p.FromStatus)
		}
		return outbox.InsertTx(ctx, tx, p.Events...)
	})
}

func listOrder(ctx context.Context, db sqlutil.DBTX, draftID uuid.UUID) ([]models.DraftOrder, error) {
	rows, err := db.Query(ctx, `
		SELECT id, draft_id, roster_id, draft_position, seq
		FROM draft_order
		WHERE draft_id = $1
		ORDER BY seq`,
		draftID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list draft order: %w", err)
	}
	defer rows.Close()

	var orders []models.DraftOrder
	for rows.Next() {
		var o models.DraftOrder
		if err := rows.Scan(&o.ID, &o.DraftID, &o.RosterID, &o.DraftPosition, &o.Seq); err != nil {
			return nil, fmt.Errorf("failed to scan draft order row: %w", err)
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

func scanDraft(row pgx.Row) (*models.Draft, error) {
	var d models.Draft
	var settingsBytes []byte
	err := row.Scan(&d.ID, &d.LeagueID, &d.DraftType, &d.Status, &d.CurrentPick,
		&d.CurrentRound, &d.CurrentRosterID, &d.PickDeadline, &settingsBytes,
		&d.StartedAt, &d.CompletedAt, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(settingsBytes, &d.Settings); err != nil {
		return nil, fmt.Errorf("failed to unmarshal draft settings: %w", err)
	}
	return &d, nil
}
