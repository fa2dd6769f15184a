package matchup

import (
	"context"
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
	"github.com/gridironhq/draftd/internal/sqlutil"
)

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) CreateMatchupDraft(ctx context.Context, req CreateMatchupDraftRequest) (*models.MatchupDraft, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO matchup_drafts (id, league_id, status, pick_time_sec, start_week, playoff_week_start)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, league_id, status, current_pick, current_round, current_roster_id,
		          pick_time_sec, pick_deadline, start_week, playoff_week_start,
		          started_at, completed_at, created_at, updated_at`,
		req.ID, req.LeagueID, models.DraftStatusNotStarted,
		req.PickTimeSec, req.StartWeek, req.PlayoffWeekStart,
	)
	return scanMatchupDraft(row)
}

func (r *Repository) GetMatchupDraft(ctx context.Context, id uuid.UUID) (*models.MatchupDraft, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, league_id, status, current_pick, current_round, current_roster_id,
		       pick_time_sec, pick_deadline, start_week, playoff_week_start,
		       started_at, completed_at, created_at, updated_at
		FROM matchup_drafts WHERE id = $1`,
		id,
	)
	draft, err := scanMatchupDraft(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFoundf("matchup draft %s not found", id)
		}
		return nil, err
	}
	return draft, nil
}

func (r *Repository) ListOrder(ctx context.Context, draftID uuid.UUID) ([]models.DraftOrder, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, matchup_draft_id, roster_id, draft_position, seq
		FROM matchup_draft_order
		WHERE matchup_draft_id = $1
		ORDER BY seq`,
		draftID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list matchup draft order: %w", err)
	}
	defer rows.Close()

	var orders []models.DraftOrder
	for rows.Next() {
		var o models.DraftOrder
		if err := rows.Scan(&o.ID, &o.DraftID, &o.RosterID, &o.DraftPosition, &o.Seq); err != nil {
			return nil, fmt.Errorf("failed to scan matchup draft order row: %w", err)
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

func (r *Repository) ListPicks(ctx context.Context, draftID uuid.UUID) ([]models.MatchupDraftPick, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, matchup_draft_id, pick_number, round, roster_id,
		       opponent_roster_id, week_number, is_auto_pick, created_at
		FROM matchup_draft_picks
		WHERE matchup_draft_id = $1
		ORDER BY pick_number`,
		draftID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list matchup draft picks: %w", err)
	}
	defer rows.Close()

	var picks []models.MatchupDraftPick
	for rows.Next() {
		var p models.MatchupDraftPick
		if err := rows.Scan(&p.ID, &p.MatchupDraftID, &p.PickNumber, &p.Round, &p.RosterID,
			&p.OpponentRosterID, &p.WeekNumber, &p.IsAutoPick, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan matchup draft pick: %w", err)
		}
		picks = append(picks, p)
	}
	return picks, rows.Err()
}

// FetchDueDrafts returns matchup drafts whose pick deadline has passed,
// bounded by limit.
func (r *Repository) FetchDueDrafts(ctx context.Context, now time.Time, limit int32) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id FROM matchup_drafts
		WHERE status = $1
		  AND pick_deadline IS NOT NULL
		  AND pick_deadline < $2
		ORDER BY pick_deadline
		LIMIT $3`,
		models.DraftStatusInProgress, now, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch due matchup drafts: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan due matchup draft id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Start transitions a matchup draft into IN_PROGRESS, inserting the freshly
// randomized order.
func (r *Repository) Start(ctx context.Context, p StartParams) error {
	return sqlutil.InTx(ctx, r.pool, func(tx pgx.Tx) error {
		for _, o := range p.NewOrder {
			_, err := tx.Exec(ctx, `
				INSERT INTO matchup_draft_order (id, matchup_draft_id, roster_id, draft_position)
				VALUES ($1, $2, $3, $4)`,
				o.ID, o.DraftID, o.RosterID, o.DraftPosition,
			)
			if err != nil {
				return fmt.Errorf("failed to insert matchup draft order row: %w", err)
			}
		}

		tag, err := tx.Exec(ctx, `
			UPDATE matchup_drafts
			SET status = $2, current_pick = 1, current_round = 1,
			    current_roster_id = $3, pick_deadline = $4, started_at = $5,
			    updated_at = now()
			WHERE id = $1 AND status = $6`,
			p.DraftID, models.DraftStatusInProgress, p.FirstRosterID,
			p.PickDeadline, p.StartedAt, models.DraftStatusNotStarted,
		)
		if err != nil {
			return fmt.Errorf("failed to start matchup draft: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return apperrors.Conflictf("matchup draft %s is no longer startable", p.DraftID)
		}

		return outbox.InsertTx(ctx, tx, p.Events...)
	})
}

// RecordPick persists one matchup pick and its advancement atomically,
// conditioned on the pick counter the caller read.
func (r *Repository) RecordPick(ctx context.Context, p RecordPickParams) error {
	return sqlutil.InTx(ctx, r.pool, func(tx pgx.Tx) error {
		var (
			tag pgconn.CommandTag
			err error
		)
		if p.Completed {
			tag, err = tx.Exec(ctx, `
				UPDATE matchup_drafts
				SET status = $2, current_pick = NULL, current_round = NULL,
				    current_roster_id = NULL, pick_deadline = NULL,
				    completed_at = $3, updated_at = now()
				WHERE id = $1 AND status = $4 AND current_pick = $5`,
				p.DraftID, models.DraftStatusCompleted, p.CompletedAt,
				models.DraftStatusInProgress, p.ExpectedPick,
			)
		} else {
			tag, err = tx.Exec(ctx, `
				UPDATE matchup_drafts
				SET current_pick = $2, current_round = $3, current_roster_id = $4,
				    pick_deadline = $5, updated_at = now()
				WHERE id = $1 AND status = $6 AND current_pick = $7`,
				p.DraftID, p.NextPick, p.NextRound, p.NextRosterID,
				p.NextDeadline, models.DraftStatusInProgress, p.ExpectedPick,
			)
		}
		if err != nil {
			return fmt.Errorf("failed to advance matchup draft: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return apperrors.Conflictf("matchup draft %s advanced concurrently past pick %d", p.DraftID, p.ExpectedPick)
		}

		if err := insertPick(ctx, tx, p.Pick); err != nil {
			return err
		}

		return outbox.InsertTx(ctx, tx, p.Events...)
	})
}

// CompleteWithPicks fills the entire schedule and completes the draft in one
// transaction. The status update refuses to run once any turn-based pick
// exists, so the two scheduling modes exclude each other.
func (r *Repository) CompleteWithPicks(ctx context.Context, p CompleteWithPicksParams) error {
	return sqlutil.InTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE matchup_drafts
			SET status = $2, current_pick = NULL, current_round = NULL,
			    current_roster_id = NULL, pick_deadline = NULL,
			    completed_at = $3, updated_at = now()
			WHERE id = $1
			  AND status = ANY($4)
			  AND NOT EXISTS (
			      SELECT 1 FROM matchup_draft_picks WHERE matchup_draft_id = $1
			  )`,
			p.DraftID, models.DraftStatusCompleted, p.CompletedAt,
			[]models.DraftStatus{models.DraftStatusNotStarted, models.DraftStatusInProgress},
		)
		if err != nil {
			return fmt.Errorf("failed to complete matchup draft: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return apperrors.Conflictf("matchup draft %s already has picks or is finished", p.DraftID)
		}

		for _, pick := range p.Picks {
			if err := insertPick(ctx, tx, pick); err != nil {
				return err
			}
		}

		return outbox.InsertTx(ctx, tx, p.Events...)
	})
}

// Cancel moves a matchup draft to CANCELLED from any pre-completed state.
func (r *Repository) Cancel(ctx context.Context, p CancelParams) error {
	return sqlutil.InTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE matchup_drafts
			SET status = $2, pick_deadline = NULL, updated_at = now()
			WHERE id = $1 AND status = ANY($3)`,
			p.DraftID, models.DraftStatusCancelled,
			[]models.DraftStatus{models.DraftStatusNotStarted, models.DraftStatusInProgress},
		)
		if err != nil {
			return fmt.Errorf("failed to cancel matchup draft: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return apperrors.Conflictf("matchup draft %s is not cancellable", p.DraftID)
		}
		return outbox.InsertTx(ctx, tx, p.Events...)
	})
}

func insertPick(ctx context.Context, tx pgx.Tx, pick models.MatchupDraftPick) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO matchup_draft_picks (id, matchup_draft_id, pick_number, round,
		                                 roster_id, opponent_roster_id, week_number, is_auto_pick)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		pick.ID, pick.MatchupDraftID, pick.PickNumber, pick.Round, pick.RosterID,
		pick.OpponentRosterID, pick.WeekNumber, pick.IsAutoPick,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return apperrors.Conflictf("matchup for week %d is no longer available", pick.WeekNumber)
		}
		return fmt.Errorf("failed to insert matchup draft pick: %w", err)
	}
	return nil
}

func scanMatchupDraft(row pgx.Row) (*models.MatchupDraft, error) {
	var d models.MatchupDraft
	err := row.Scan(&d.ID, &d.LeagueID, &d.Status, &d.CurrentPick, &d.CurrentRound,
		&d.CurrentRosterID, &d.PickTimeSec, &d.PickDeadline, &d.StartWeek,
		&d.PlayoffWeekStart, &d.StartedAt, &d.CompletedAt, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
