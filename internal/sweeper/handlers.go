package sweeper

import (
	"context"

	"github.com/google/uuid"
)

type funcHandler struct {
	kind   string
	due    func(ctx context.Context, limit int32) ([]uuid.UUID, error)
	handle func(ctx context.Context, draftID uuid.UUID) error
}

// NewHandler adapts a draft runtime's due query and timeout handler into a
// sweepable Handler.
func NewHandler(kind string, due func(ctx context.Context, limit int32) ([]uuid.UUID, error), handle func(ctx context.Context, draftID uuid.UUID) error) Handler {
	return &funcHandler{kind: kind, due: due, handle: handle}
}

func (h *funcHandler) Kind() string { return h.kind }

func (h *funcHandler) DueDrafts(ctx context.Context, limit int32) ([]uuid.UUID, error) {
	return h.due(ctx, limit)
}

func (h *funcHandler) HandleDeadline(ctx context.Context, draftID uuid.UUID) error {
	return h.handle(ctx, draftID)
}
