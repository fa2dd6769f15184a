package outbox

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/gridironhq/draftd/internal/sqlutil"
)

// InsertTx inserts outbox events using the caller's transaction, so the
// events commit atomically with the state change that produced them.
func InsertTx(ctx context.Context, db sqlutil.DBTX, evs ...Event) error {
	for _, ev := range evs {
		_, err := db.Exec(ctx, `
			INSERT INTO draft_outbox (id, draft_id, event_type, payload)
			VALUES ($1, $2, $3, $4)`,
			ev.ID, ev.DraftID, ev.EventType, ev.Payload,
		)
		if err != nil {
			return fmt.Errorf("failed to insert %s outbox event: %w", ev.EventType, err)
		}
	}
	return nil
}

type Repository struct {
	db sqlutil.DBTX
}

func NewRepository(db sqlutil.DBTX) *Repository {
	return &Repository{db: db}
}

func (r *Repository) FetchByID(ctx context.Context, id uuid.UUID) (*Event, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, draft_id, event_type, payload, created_at
		FROM draft_outbox
		WHERE id = $1 AND sent_at IS NULL`,
		id,
	)

	var ev Event
	if err := row.Scan(&ev.ID, &ev.DraftID, &ev.EventType, &ev.Payload, &ev.CreatedAt); err != nil {
		return nil, fmt.Errorf("failed to fetch outbox event by ID: %w", err)
	}
	return &ev, nil
}

func (r *Repository) FetchUnsent(ctx context.Context, limit int32) ([]Event, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, draft_id, event_type, payload, created_at
		FROM draft_outbox
		WHERE sent_at IS NULL
		ORDER BY created_at
		LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch unsent outbox events: %w", err)
	}
	defer rows.Close()

	var evs []Event
	for rows.Next() {
		var ev Event
		if err := rows.Scan(&ev.ID, &ev.DraftID, &ev.EventType, &ev.Payload, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan outbox event: %w", err)
		}
		evs = append(evs, ev)
	}
	return evs, rows.Err()
}

func (r *Repository) MarkSent(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.Exec(ctx, `
		UPDATE draft_outbox SET sent_at = now()
		WHERE id = $1 AND sent_at IS NULL`,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to mark outbox event as sent: %w", err)
	}
	return nil
}
