package draft

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/gridironhq/draftd/internal/apperrors"
	"github.com/gridironhq/draftd/internal/draftorder"
	"github.com/gridironhq/draftd/internal/models"
)

// fakeRepo applies the same conditional-advancement rules as the Postgres
// repository, against in-memory state.
type fakeRepo struct {
	drafts map[uuid.UUID]*models.Draft
	orders map[uuid.UUID][]models.DraftOrder
	picks  map[uuid.UUID][]models.DraftPick
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		drafts: make(map[uuid.UUID]*models.Draft),
		orders: make(map[uuid.UUID][]models.DraftOrder),
		picks:  make(map[uuid.UUID][]models.DraftPick),
	}
}

func (f *fakeRepo) CreateDraft(_ context.Context, req CreateDraftRequest) (*models.Draft, error) {
	d := &models.Draft{
		ID:        req.ID,
		LeagueID:  req.LeagueID,
		DraftType: req.DraftType,
		Status:    models.DraftStatusNotStarted,
		Settings:  req.Settings,
	}
	f.drafts[d.ID] = d
	return f.GetDraft(context.Background(), d.ID)
}

func (f *fakeRepo) GetDraft(_ context.Context, id uuid.UUID) (*models.Draft, error) {
	d, ok := f.drafts[id]
	if !ok {
		return nil, apperrors.NotFoundf("draft %s not found", id)
	}
	cp := *d
	return &cp, nil
}

func (f *fakeRepo) ListOrder(_ context.Context, draftID uuid.UUID) ([]models.DraftOrder, error) {
	return f.orders[draftID], nil
}

func (f *fakeRepo) ListPicks(_ context.Context, draftID uuid.UUID) ([]models.DraftPick, error) {
	return f.picks[draftID], nil
}

func (f *fakeRepo) StartDraft(_ context.Context, p StartDraftParams) error {
	d := f.drafts[p.DraftID]
	if d.Status != models.DraftStatusNotStarted {
		return apperrors.Conflictf("draft %s is no longer startable", p.DraftID)
	}
	if len(p.NewOrder) > 0 {
		f.orders[p.DraftID] = p.NewOrder
	}
	one := 1
	d.Status = models.DraftStatusInProgress
	d.CurrentPick, d.CurrentRound = &one, &one
	first := p.FirstRosterID
	d.CurrentRosterID = &first
	d.PickDeadline = p.PickDeadline
	started := p.StartedAt
	d.StartedAt = &started
	return nil
}

func (f *fakeRepo) RecordPick(_ context.Context, p RecordPickParams) error {
	d := f.drafts[p.DraftID]
	if d.Status != models.DraftStatusInProgress || d.CurrentPick == nil || *d.CurrentPick != p.ExpectedPick {
		return apperrors.Conflictf("draft %s advanced concurrently past pick %d", p.DraftID, p.ExpectedPick)
	}
	if p.Completed {
		d.Status = models.DraftStatusCompleted
		d.CurrentPick, d.CurrentRound, d.CurrentRosterID, d.PickDeadline = nil, nil, nil, nil
		d.CompletedAt = p.CompletedAt
	} else {
		pick, round, roster := p.NextPick, p.NextRound, p.NextRosterID
		d.CurrentPick, d.CurrentRound = &pick, &round
		d.CurrentRosterID = &roster
		d.PickDeadline = p.NextDeadline
	}
	f.picks[p.DraftID] = append(f.picks[p.DraftID], p.Pick)
	return nil
}

func (f *fakeRepo) Pause(_ context.Context, p PauseParams) error {
	d := f.drafts[p.DraftID]
	if d.Status != models.DraftStatusInProgress {
		return apperrors.Conflictf("draft %s is not in status %s", p.DraftID, models.DraftStatusInProgress)
	}
	d.Status = models.DraftStatusPaused
	d.Settings = p.Settings
	d.PickDeadline = nil
	return nil
}

func (f *fakeRepo) Resume(_ context.Context, p ResumeParams) error {
	d := f.drafts[p.DraftID]
	if d.Status != models.DraftStatusPaused {
		return apperrors.Conflictf("draft %s is not in status %s", p.DraftID, models.DraftStatusPaused)
	}
	d.Status = models.DraftStatusInProgress
	d.Settings = p.Settings
	d.PickDeadline = p.PickDeadline
	return nil
}

func (f *fakeRepo) Cancel(_ context.Context, p CancelParams) error {
	d := f.drafts[p.DraftID]
	switch d.Status {
	case models.DraftStatusCompleted, models.DraftStatusCancelled:
		return apperrors.Conflictf("draft %s is not cancellable", p.DraftID)
	}
	d.Status = models.DraftStatusCancelled
	d.PickDeadline = nil
	return nil
}

func (f *fakeRepo) FetchDueDrafts(_ context.Context, now time.Time, _ int32) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	for id, d := range f.drafts {
		if d.DraftType != models.DraftTypeDerby && d.Status == models.DraftStatusInProgress &&
			d.PickDeadline != nil && d.PickDeadline.Before(now) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

type fakeQueues struct {
	next map[uuid.UUID]uuid.UUID // rosterID -> playerID
}

func (f *fakeQueues) NextAvailable(_ context.Context, draftID, rosterID uuid.UUID) (*models.DraftQueue, error) {
	playerID, ok := f.next[rosterID]
	if !ok {
		return nil, nil
	}
	return &models.DraftQueue{
		ID: uuid.New(), DraftID: draftID, RosterID: rosterID,
		PlayerID: playerID, QueuePosition: 1,
	}, nil
}

type fakePlayers struct {
	drafted map[uuid.UUID]bool
	best    uuid.UUID
	bestErr error
	pool    []uuid.UUID
}

func (f *fakePlayers) IsPlayerAvailable(_ context.Context, _, playerID uuid.UUID) (bool, error) {
	return !f.drafted[playerID], nil
}

func (f *fakePlayers) BestAvailable(_ context.Context, _ uuid.UUID) (uuid.UUID, error) {
	return f.best, f.bestErr
}

func (f *fakePlayers) ListAvailablePlayers(_ context.Context, _ uuid.UUID) ([]uuid.UUID, error) {
	var out []uuid.UUID
	for _, id := range f.pool {
		if !f.drafted[id] {
			out = append(out, id)
		}
	}
	return out, nil
}

type fakeLeague struct {
	rosters []uuid.UUID
}

func (f *fakeLeague) ListRosterIDs(_ context.Context, _ uuid.UUID) ([]uuid.UUID, error) {
	return f.rosters, nil
}

type fixture struct {
	app     *App
	repo    *fakeRepo
	queues  *fakeQueues
	players *fakePlayers
	clock   *clockwork.FakeClock
}

func newFixture(numRosters int) *fixture {
	repo := newFakeRepo()
	queues := &fakeQueues{next: make(map[uuid.UUID]uuid.UUID)}
	players := &fakePlayers{drafted: make(map[uuid.UUID]bool)}
	rosters := make([]uuid.UUID, numRosters)
	for i := range rosters {
		rosters[i] = uuid.New()
	}
	clock := clockwork.NewFakeClock()
	app := NewApp(repo, queues, players, &fakeLeague{rosters: rosters}, nil, clock, draftorder.NewGeneratorWithSeed(1))
	return &fixture{app: app, repo: repo, queues: queues, players: players, clock: clock}
}

func (fx *fixture) createAndStart(t *testing.T, draftType models.DraftType, rounds, pickTimeSec int) *models.Draft {
	t.Helper()
	ctx := context.Background()

	draft, err := fx.app.CreateDraft(ctx, CreateDraftRequest{
		LeagueID:  uuid.New(),
		DraftType: draftType,
		Settings:  models.DraftSettings{Rounds: rounds, PickTimeSec: pickTimeSec},
	})
	if err != nil {
		t.Fatal(err)
	}
	started, err := fx.app.StartDraft(ctx, draft.ID)
	if err != nil {
		t.Fatal(err)
	}
	return started
}

func TestCreateDraftValidation(t *testing.T) {
	fx := newFixture(4)
	ctx := context.Background()

	tests := []struct {
		name string
		req  CreateDraftRequest
	}{
		{"missing league", CreateDraftRequest{DraftType: models.DraftTypeSnake, Settings: models.DraftSettings{Rounds: 1}}},
		{"zero rounds", CreateDraftRequest{LeagueID: uuid.New(), DraftType: models.DraftTypeSnake}},
		{"negative pick time", CreateDraftRequest{LeagueID: uuid.New(), DraftType: models.DraftTypeSnake, Settings: models.DraftSettings{Rounds: 1, PickTimeSec: -1}}},
		{"auction unsupported", CreateDraftRequest{LeagueID: uuid.New(), DraftType: models.DraftTypeAuction, Settings: models.DraftSettings{Rounds: 1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := fx.app.CreateDraft(ctx, tt.req); !apperrors.IsValidation(err) {
				t.Errorf("expected Validation, got %v", err)
			}
		})
	}
}

func TestStartDraftRandomizesOrder(t *testing.T) {
	fx := newFixture(4)
	draft := fx.createAndStart(t, models.DraftTypeSnake, 2, 60)

	if draft.Status != models.DraftStatusInProgress {
		t.Fatalf("status = %s, want IN_PROGRESS", draft.Status)
	}
	orders := fx.repo.orders[draft.ID]
	if len(orders) != 4 {
		t.Fatalf("got %d order rows, want 4", len(orders))
	}
	positions := make(map[int]bool)
	for _, o := range orders {
		positions[o.DraftPosition] = true
	}
	for p := 1; p <= 4; p++ {
		if !positions[p] {
			t.Errorf("position %d missing from order", p)
		}
	}
	if draft.CurrentRosterID == nil {
		t.Fatal("no current roster after start")
	}
	if draft.PickDeadline == nil {
		t.Fatal("timed draft started without a deadline")
	}
	wantDeadline := fx.clock.Now().Add(60 * time.Second)
	if !draft.PickDeadline.Equal(wantDeadline) {
		t.Errorf("deadline = %v, want %v", draft.PickDeadline, wantDeadline)
	}
}

func TestUntimedDraftHasNoDeadline(t *testing.T) {
	fx := newFixture(4)
	draft := fx.createAndStart(t, models.DraftTypeSnake, 1, 0)
	if draft.PickDeadline != nil {
		t.Errorf("untimed draft has deadline %v", draft.PickDeadline)
	}
}

func TestMakePickAdvancesAndCompletes(t *testing.T) {
	fx := newFixture(2)
	draft := fx.createAndStart(t, models.DraftTypeSnake, 2, 0)
	ctx := context.Background()

	total := 4
	for i := 1; i <= total; i++ {
		cur, err := fx.app.GetDraft(ctx, draft.ID)
		if err != nil {
			t.Fatal(err)
		}
		if *cur.CurrentPick != i {
			t.Fatalf("current pick = %d, want %d", *cur.CurrentPick, i)
		}
		pick, err := fx.app.MakePick(ctx, MakePickRequest{
			DraftID:  draft.ID,
			RosterID: *cur.CurrentRosterID,
			PlayerID: uuid.New(),
		})
		if err != nil {
			t.Fatal(err)
		}
		if pick.PickNumber != i {
			t.Errorf("pick number = %d, want %d", pick.PickNumber, i)
		}
	}

	final, _ := fx.app.GetDraft(ctx, draft.ID)
	if final.Status != models.DraftStatusCompleted {
		t.Errorf("status after last pick = %s, want COMPLETED", final.Status)
	}
	if final.CurrentPick != nil || final.PickDeadline != nil {
		t.Error("completed draft still has pick state")
	}
	if len(fx.repo.picks[draft.ID]) != total {
		t.Errorf("recorded %d picks, want %d", len(fx.repo.picks[draft.ID]), total)
	}
}

func TestMakePickOutOfTurn(t *testing.T) {
	fx := newFixture(4)
	draft := fx.createAndStart(t, models.DraftTypeSnake, 1, 0)
	ctx := context.Background()

	var wrong uuid.UUID
	for _, o := range fx.repo.orders[draft.ID] {
		if o.RosterID != *draft.CurrentRosterID {
			wrong = o.RosterID
			break
		}
	}

	_, err := fx.app.MakePick(ctx, MakePickRequest{DraftID: draft.ID, RosterID: wrong, PlayerID: uuid.New()})
	if !apperrors.IsValidation(err) {
		t.Errorf("expected Validation, got %v", err)
	}
}

func TestMakePickDraftedPlayerIsConflict(t *testing.T) {
	fx := newFixture(4)
	draft := fx.createAndStart(t, models.DraftTypeSnake, 1, 0)
	ctx := context.Background()

	playerID := uuid.New()
	fx.players.drafted[playerID] = true

	_, err := fx.app.MakePick(ctx, MakePickRequest{DraftID: draft.ID, RosterID: *draft.CurrentRosterID, PlayerID: playerID})
	if !apperrors.IsConflict(err) {
		t.Errorf("expected Conflict, got %v", err)
	}
}

func TestHandleDeadlinePrefersQueue(t *testing.T) {
	fx := newFixture(4)
	draft := fx.createAndStart(t, models.DraftTypeSnake, 1, 30)
	ctx := context.Background()

	queued := uuid.New()
	fx.queues.next[*draft.CurrentRosterID] = queued

	fx.clock.Advance(31 * time.Second)
	if err := fx.app.HandleDeadline(ctx, draft.ID); err != nil {
		t.Fatal(err)
	}

	picks := fx.repo.picks[draft.ID]
	if len(picks) != 1 {
		t.Fatalf("got %d picks, want 1", len(picks))
	}
	if picks[0].PlayerID != queued {
		t.Errorf("auto-pick chose %s, want queued %s", picks[0].PlayerID, queued)
	}
	if !picks[0].IsAutoPick {
		t.Error("auto-pick not flagged")
	}
}

func TestHandleDeadlineFallsBackToBestAvailable(t *testing.T) {
	fx := newFixture(4)
	draft := fx.createAndStart(t, models.DraftTypeSnake, 1, 30)
	ctx := context.Background()

	best := uuid.New()
	fx.players.best = best

	fx.clock.Advance(31 * time.Second)
	if err := fx.app.HandleDeadline(ctx, draft.ID); err != nil {
		t.Fatal(err)
	}

	picks := fx.repo.picks[draft.ID]
	if len(picks) != 1 || picks[0].PlayerID != best {
		t.Fatalf("expected best available %s, got %+v", best, picks)
	}
}

func TestHandleDeadlineDeterministicFallback(t *testing.T) {
	fx := newFixture(4)
	draft := fx.createAndStart(t, models.DraftTypeSnake, 1, 30)
	ctx := context.Background()

	fx.players.bestErr = context.DeadlineExceeded
	a := uuid.MustParse("00000000-0000-0000-0000-000000000002")
	b := uuid.MustParse("00000000-0000-0000-0000-000000000001")
	fx.players.pool = []uuid.UUID{a, b}

	fx.clock.Advance(31 * time.Second)
	if err := fx.app.HandleDeadline(ctx, draft.ID); err != nil {
		t.Fatal(err)
	}

	picks := fx.repo.picks[draft.ID]
	if len(picks) != 1 || picks[0].PlayerID != b {
		t.Fatalf("expected lowest id %s, got %+v", b, picks)
	}
}

func TestHandleDeadlineNotDueIsNoop(t *testing.T) {
	fx := newFixture(4)
	draft := fx.createAndStart(t, models.DraftTypeSnake, 1, 30)
	ctx := context.Background()

	if err := fx.app.HandleDeadline(ctx, draft.ID); err != nil {
		t.Fatal(err)
	}
	if len(fx.repo.picks[draft.ID]) != 0 {
		t.Error("no-op deadline recorded a pick")
	}
}

func TestHandleDeadlineReplayIsNoop(t *testing.T) {
	fx := newFixture(4)
	draft := fx.createAndStart(t, models.DraftTypeSnake, 2, 30)
	ctx := context.Background()

	fx.players.pool = []uuid.UUID{uuid.New(), uuid.New()}
	fx.clock.Advance(31 * time.Second)
	if err := fx.app.HandleDeadline(ctx, draft.ID); err != nil {
		t.Fatal(err)
	}
	// The second sweep sees the refreshed deadline and does nothing.
	if err := fx.app.HandleDeadline(ctx, draft.ID); err != nil {
		t.Fatal(err)
	}
	if got := len(fx.repo.picks[draft.ID]); got != 1 {
		t.Errorf("replay produced %d picks, want 1", got)
	}
}

func TestPauseAndResumeRestoresRemainingTime(t *testing.T) {
	fx := newFixture(4)
	draft := fx.createAndStart(t, models.DraftTypeSnake, 1, 60)
	ctx := context.Background()

	fx.clock.Advance(23 * time.Second)
	if err := fx.app.Pause(ctx, draft.ID); err != nil {
		t.Fatal(err)
	}

	paused, _ := fx.app.GetDraft(ctx, draft.ID)
	if paused.Status != models.DraftStatusPaused {
		t.Fatalf("status = %s, want PAUSED", paused.Status)
	}
	if paused.Settings.PausedRemainingSec == nil || *paused.Settings.PausedRemainingSec != 37 {
		t.Fatalf("remaining = %v, want 37", paused.Settings.PausedRemainingSec)
	}

	fx.clock.Advance(time.Hour)
	if err := fx.app.Resume(ctx, draft.ID); err != nil {
		t.Fatal(err)
	}

	resumed, _ := fx.app.GetDraft(ctx, draft.ID)
	if resumed.Status != models.DraftStatusInProgress {
		t.Fatalf("status = %s, want IN_PROGRESS", resumed.Status)
	}
	want := fx.clock.Now().Add(37 * time.Second)
	if resumed.PickDeadline == nil || !resumed.PickDeadline.Equal(want) {
		t.Errorf("deadline = %v, want %v", resumed.PickDeadline, want)
	}
	if resumed.Settings.PausedRemainingSec != nil {
		t.Error("remaining time not cleared on resume")
	}
}

func TestResumeFloorsTinyWindows(t *testing.T) {
	fx := newFixture(4)
	draft := fx.createAndStart(t, models.DraftTypeSnake, 1, 60)
	ctx := context.Background()

	fx.clock.Advance(58 * time.Second)
	if err := fx.app.Pause(ctx, draft.ID); err != nil {
		t.Fatal(err)
	}
	if err := fx.app.Resume(ctx, draft.ID); err != nil {
		t.Fatal(err)
	}

	resumed, _ := fx.app.GetDraft(ctx, draft.ID)
	want := fx.clock.Now().Add(resumeFloor)
	if resumed.PickDeadline == nil || !resumed.PickDeadline.Equal(want) {
		t.Errorf("deadline = %v, want floor %v", resumed.PickDeadline, want)
	}
}

func TestCancel(t *testing.T) {
	fx := newFixture(4)
	draft := fx.createAndStart(t, models.DraftTypeSnake, 1, 0)
	ctx := context.Background()

	if err := fx.app.Cancel(ctx, draft.ID); err != nil {
		t.Fatal(err)
	}
	cancelled, _ := fx.app.GetDraft(ctx, draft.ID)
	if cancelled.Status != models.DraftStatusCancelled {
		t.Fatalf("status = %s, want CANCELLED", cancelled.Status)
	}
	if err := fx.app.Cancel(ctx, draft.ID); !apperrors.IsValidation(err) {
		t.Errorf("expected Validation on double cancel, got %v", err)
	}
}

func TestStartDerbyDraftRequiresCompletedSlotSelection(t *testing.T) {
	fx := newFixture(4)
	ctx := context.Background()

	draft, err := fx.app.CreateDraft(ctx, CreateDraftRequest{
		LeagueID:  uuid.New(),
		DraftType: models.DraftTypeDerby,
		Settings:  models.DraftSettings{Rounds: 2},
	})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := fx.app.StartDraft(ctx, draft.ID); !apperrors.IsValidation(err) {
		t.Errorf("expected Validation before slot selection, got %v", err)
	}
}
