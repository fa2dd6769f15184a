package queue

import (
	"context"
	"sort"
	"testing"

	"github.com/google/uuid"

	"github.com/gridironhq/draftd/internal/apperrors"
	"github.com/gridironhq/draftd/internal/models"
)

type fakeQueueRepo struct {
	entries []models.DraftQueue
}

func (f *fakeQueueRepo) Insert(_ context.Context, draftID, rosterID, playerID uuid.UUID) (*models.DraftQueue, error) {
	max := 0
	for _, e := range f.entries {
		if e.DraftID == draftID && e.RosterID == rosterID {
			if e.PlayerID == playerID {
				return nil, apperrors.Conflictf("player %s already queued", playerID)
			}
			if e.QueuePosition > max {
				max = e.QueuePosition
			}
		}
	}
	entry := models.DraftQueue{
		ID:            uuid.New(),
		DraftID:       draftID,
		RosterID:      rosterID,
		PlayerID:      playerID,
		QueuePosition: max + 1,
	}
	f.entries = append(f.entries, entry)
	return &entry, nil
}

func (f *fakeQueueRepo) GetEntry(_ context.Context, id uuid.UUID) (*models.DraftQueue, error) {
	for _, e := range f.entries {
		if e.ID == id {
			return &e, nil
		}
	}
	return nil, apperrors.NotFoundf("queue entry %s not found", id)
}

func (f *fakeQueueRepo) GetQueue(_ context.Context, draftID, rosterID uuid.UUID) ([]models.DraftQueue, error) {
	var out []models.DraftQueue
	for _, e := range f.entries {
		if e.DraftID == draftID && e.RosterID == rosterID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].QueuePosition < out[j].QueuePosition })
	return out, nil
}

func (f *fakeQueueRepo) RemoveAndCompact(_ context.Context, entry models.DraftQueue) error {
	kept := f.entries[:0]
	for _, e := range f.entries {
		if e.ID != entry.ID {
			kept = append(kept, e)
		}
	}
	f.entries = kept

	pos := 0
	for i := range f.entries {
		if f.entries[i].DraftID == entry.DraftID && f.entries[i].RosterID == entry.RosterID {
			pos++
			f.entries[i].QueuePosition = pos
		}
	}
	return nil
}

func (f *fakeQueueRepo) Reorder(_ context.Context, draftID, rosterID uuid.UUID, moves []ReorderMove) error {
	byID := make(map[uuid.UUID]int, len(moves))
	for _, m := range moves {
		byID[m.ID] = m.NewPosition
	}
	for i := range f.entries {
		if pos, ok := byID[f.entries[i].ID]; ok {
			f.entries[i].QueuePosition = pos
		}
	}
	return nil
}

type fakeOracle struct {
	drafted map[uuid.UUID]bool
}

func (f *fakeOracle) IsPlayerAvailable(_ context.Context, _, playerID uuid.UUID) (bool, error) {
	return !f.drafted[playerID], nil
}

func newTestApp() (*App, *fakeQueueRepo, *fakeOracle) {
	repo := &fakeQueueRepo{}
	oracle := &fakeOracle{drafted: make(map[uuid.UUID]bool)}
	return NewApp(repo, oracle), repo, oracle
}

func TestAddAssignsTailPosition(t *testing.T) {
	app, _, _ := newTestApp()
	ctx := context.Background()
	draftID, rosterID := uuid.New(), uuid.New()

	for want := 1; want <= 3; want++ {
		entry, err := app.Add(ctx, draftID, rosterID, uuid.New())
		if err != nil {
			t.Fatal(err)
		}
		if entry.QueuePosition != want {
			t.Errorf("position = %d, want %d", entry.QueuePosition, want)
		}
	}
}

func TestAddDuplicateIsConflict(t *testing.T) {
	app, _, _ := newTestApp()
	ctx := context.Background()
	draftID, rosterID, playerID := uuid.New(), uuid.New(), uuid.New()

	if _, err := app.Add(ctx, draftID, rosterID, playerID); err != nil {
		t.Fatal(err)
	}
	_, err := app.Add(ctx, draftID, rosterID, playerID)
	if !apperrors.IsConflict(err) {
		t.Errorf("expected Conflict, got %v", err)
	}
}

func TestAddDraftedPlayerIsValidation(t *testing.T) {
	app, _, oracle := newTestApp()
	ctx := context.Background()
	playerID := uuid.New()
	oracle.drafted[playerID] = true

	_, err := app.Add(ctx, uuid.New(), uuid.New(), playerID)
	if !apperrors.IsValidation(err) {
		t.Errorf("expected Validation, got %v", err)
	}
}

func TestRemoveCompactsPositions(t *testing.T) {
	app, _, _ := newTestApp()
	ctx := context.Background()
	draftID, rosterID := uuid.New(), uuid.New()

	var entries []*models.DraftQueue
	for i := 0; i < 3; i++ {
		e, err := app.Add(ctx, draftID, rosterID, uuid.New())
		if err != nil {
			t.Fatal(err)
		}
		entries = append(entries, e)
	}

	if err := app.Remove(ctx, entries[1].ID); err != nil {
		t.Fatal(err)
	}

	queue, err := app.List(ctx, draftID, rosterID)
	if err != nil {
		t.Fatal(err)
	}
	if len(queue) != 2 {
		t.Fatalf("queue has %d entries, want 2", len(queue))
	}
	for i, e := range queue {
		if e.QueuePosition != i+1 {
			t.Errorf("entry %d position = %d, want %d", i, e.QueuePosition, i+1)
		}
	}
	if queue[0].PlayerID != entries[0].PlayerID || queue[1].PlayerID != entries[2].PlayerID {
		t.Error("remaining entries lost their relative order")
	}
}

func TestReorderValidation(t *testing.T) {
	app, _, _ := newTestApp()
	ctx := context.Background()
	draftID, rosterID := uuid.New(), uuid.New()

	e1, _ := app.Add(ctx, draftID, rosterID, uuid.New())
	e2, _ := app.Add(ctx, draftID, rosterID, uuid.New())

	tests := []struct {
		name  string
		moves []ReorderMove
	}{
		{"partial cover", []ReorderMove{{ID: e1.ID, NewPosition: 1}}},
		{"foreign entry", []ReorderMove{{ID: uuid.New(), NewPosition: 1}, {ID: e2.ID, NewPosition: 2}}},
		{"duplicate position", []ReorderMove{{ID: e1.ID, NewPosition: 1}, {ID: e2.ID, NewPosition: 1}}},
		{"position out of range", []ReorderMove{{ID: e1.ID, NewPosition: 1}, {ID: e2.ID, NewPosition: 3}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := app.Reorder(ctx, draftID, rosterID, tt.moves); !apperrors.IsValidation(err) {
				t.Errorf("expected Validation, got %v", err)
			}
		})
	}

	// A full permutation goes through.
	moves := []ReorderMove{{ID: e1.ID, NewPosition: 2}, {ID: e2.ID, NewPosition: 1}}
	if err := app.Reorder(ctx, draftID, rosterID, moves); err != nil {
		t.Fatal(err)
	}
	queue, _ := app.List(ctx, draftID, rosterID)
	if queue[0].ID != e2.ID {
		t.Error("reorder did not apply")
	}
}

func TestNextAvailableSkipsStaleEntries(t *testing.T) {
	app, repo, oracle := newTestApp()
	ctx := context.Background()
	draftID, rosterID := uuid.New(), uuid.New()

	head, _ := app.Add(ctx, draftID, rosterID, uuid.New())
	second, _ := app.Add(ctx, draftID, rosterID, uuid.New())

	// The head player gets drafted elsewhere after queueing.
	oracle.drafted[head.PlayerID] = true

	entry, err := app.NextAvailable(ctx, draftID, rosterID)
	if err != nil {
		t.Fatal(err)
	}
	if entry == nil || entry.PlayerID != second.PlayerID {
		t.Fatalf("expected second entry, got %+v", entry)
	}

	// The stale head was discarded, not just skipped.
	if len(repo.entries) != 1 {
		t.Errorf("repo has %d entries, want 1", len(repo.entries))
	}
}

func TestNextAvailableExhaustedReturnsNil(t *testing.T) {
	app, _, oracle := newTestApp()
	ctx := context.Background()
	draftID, rosterID := uuid.New(), uuid.New()

	e, _ := app.Add(ctx, draftID, rosterID, uuid.New())
	oracle.drafted[e.PlayerID] = true

	entry, err := app.NextAvailable(ctx, draftID, rosterID)
	if err != nil {
		t.Fatal(err)
	}
	if entry != nil {
		t.Errorf("expected nil for exhausted queue, got %+v", entry)
	}
}
