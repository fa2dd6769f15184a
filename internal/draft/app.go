// Package draft implements the standard draft runtime: human picks,
// pause/resume, and deadline-driven auto-picks, all advancing through the
// shared turn order machinery.
package draft

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/gridironhq/draftd/internal/apperrors"
	"github.com/gridironhq/draftd/internal/draftorder"
	"github.com/gridironhq/draftd/internal/events"
	"github.com/gridironhq/draftd/internal/models"
	"github.com/gridironhq/draftd/internal/outbox"
	"github.com/gridironhq/draftd/internal/turnorder"
)

// resumeFloor is the minimum pick window restored on resume, so a pause at
// the deadline edge cannot resume into an already-expired pick.
const resumeFloor = 10 * time.Second

// oracleTimeout bounds calls to the external ranking collaborator.
const oracleTimeout = 2 * time.Second

// DraftRepository defines what the draft app layer needs from the draft
// repository.
type DraftRepository interface {
	CreateDraft(ctx context.Context, req CreateDraftRequest) (*models.Draft, error)
	GetDraft(ctx context.Context, id uuid.UUID) (*models.Draft, error)
	ListOrder(ctx context.Context, draftID uuid.UUID) ([]models.DraftOrder, error)
	ListPicks(ctx context.Context, draftID uuid.UUID) ([]models.DraftPick, error)
	StartDraft(ctx context.Context, p StartDraftParams) error
	RecordPick(ctx context.Context, p RecordPickParams) error
	Pause(ctx context.Context, p PauseParams) error
	Resume(ctx context.Context, p ResumeParams) error
	Cancel(ctx context.Context, p CancelParams) error
	FetchDueDrafts(ctx context.Context, now time.Time, limit int32) ([]uuid.UUID, error)
}

// QueueResolver resolves a roster's auto-pick preference.
type QueueResolver interface {
	NextAvailable(ctx context.Context, draftID, rosterID uuid.UUID) (*models.DraftQueue, error)
}

// PlayerOracle is the external player-availability collaborator.
type PlayerOracle interface {
	IsPlayerAvailable(ctx context.Context, draftID, playerID uuid.UUID) (bool, error)
	// BestAvailable consults the external ranking service. Errors are
	// expected and fall through to the deterministic fallback.
	BestAvailable(ctx context.Context, draftID uuid.UUID) (uuid.UUID, error)
	ListAvailablePlayers(ctx context.Context, draftID uuid.UUID) ([]uuid.UUID, error)
}

// LeagueGateway resolves league membership.
type LeagueGateway interface {
	ListRosterIDs(ctx context.Context, leagueID uuid.UUID) ([]uuid.UUID, error)
}

// Notifier delivers system chat messages, fire-and-forget.
type Notifier interface {
	SendSystemMessage(ctx context.Context, leagueID uuid.UUID, text string, metadata map[string]any) error
}

// App handles standard draft business logic.
type App struct {
	repo     DraftRepository
	queues   QueueResolver
	players  PlayerOracle
	league   LeagueGateway
	notifier Notifier
	clock    clockwork.Clock
	gen      *draftorder.Generator
}

func NewApp(repo DraftRepository, queues QueueResolver, players PlayerOracle, league LeagueGateway, notifier Notifier, clock clockwork.Clock, gen *draftorder.Generator) *App {
	return &App{
		repo:     repo,
		queues:   queues,
		players:  players,
		league:   league,
		notifier: notifier,
		clock:    clock,
		gen:      gen,
	}
}

// CreateDraft creates a new draft in NOT_STARTED.
func (a *App) CreateDraft(ctx context.Context, req CreateDraftRequest) (*models.Draft, error) {
	if req.ID == uuid.Nil {
		req.ID = uuid.New()
	}
	if req.LeagueID == uuid.Nil {
		return nil, apperrors.Validationf("league_id is required")
	}
	if _, err := policyFor(req.DraftType); err != nil {
		return nil, err
	}
	if req.Settings.Rounds <= 0 {
		return nil, apperrors.Validationf("rounds must be greater than 0")
	}
	if req.Settings.PickTimeSec < 0 {
		return nil, apperrors.Validationf("pick_time_sec cannot be negative")
	}
	if req.DraftType == models.DraftTypeDerby {
		if req.Settings.Derby == nil {
			req.Settings.Derby = &models.DerbySettings{}
		}
		if req.Settings.Derby.OnTimeout == "" {
			req.Settings.Derby.OnTimeout = models.DerbyTimeoutRandomize
		}
		if req.Settings.Derby.Status == "" {
			req.Settings.Derby.Status = models.DerbyStatusNotStarted
		}
	}

	draft, err := a.repo.CreateDraft(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to create draft: %w", err)
	}
	log.Info().
		Str("draft_id", draft.ID.String()).
		Str("draft_type", string(draft.DraftType)).
		Msg("created draft")
	return draft, nil
}

func (a *App) GetDraft(ctx context.Context, id uuid.UUID) (*models.Draft, error) {
	return a.repo.GetDraft(ctx, id)
}

func (a *App) ListPicks(ctx context.Context, draftID uuid.UUID) ([]models.DraftPick, error) {
	return a.repo.ListPicks(ctx, draftID)
}

// FetchDueDrafts exposes the sweeper's batch query.
func (a *App) FetchDueDrafts(ctx context.Context, limit int32) ([]uuid.UUID, error) {
	return a.repo.FetchDueDrafts(ctx, a.clock.Now(), limit)
}

// StartDraft moves a NOT_STARTED draft into IN_PROGRESS, randomizing the
// draft order if none exists yet. Derby drafts may only start once slot
// selection has completed.
func (a *App) StartDraft(ctx context.Context, draftID uuid.UUID) (*models.Draft, error) {
	draft, err := a.repo.GetDraft(ctx, draftID)
	if err != nil {
		return nil, err
	}
	if draft.Status != models.DraftStatusNotStarted {
		return nil, apperrors.Validationf("draft %s has already started (status %s)", draftID, draft.Status)
	}
	policy, err := policyFor(draft.DraftType)
	if err != nil {
		return nil, err
	}
	if draft.DraftType == models.DraftTypeDerby {
		if draft.Settings.Derby == nil || draft.Settings.Derby.Status != models.DerbyStatusCompleted {
			return nil, apperrors.Validationf("derby slot selection is not finished for draft %s", draftID)
		}
	}

	orders, err := a.repo.ListOrder(ctx, draftID)
	if err != nil {
		return nil, err
	}

	var newOrder []models.DraftOrder
	if len(orders) == 0 {
		rosterIDs, err := a.league.ListRosterIDs(ctx, draft.LeagueID)
		if err != nil {
			return nil, fmt.Errorf("failed to list league rosters: %w", err)
		}
		if len(rosterIDs) == 0 {
			return nil, apperrors.Validationf("league %s has no rosters", draft.LeagueID)
		}
		for i, rosterID := range a.gen.Randomize(rosterIDs) {
			newOrder = append(newOrder, models.DraftOrder{
				ID:            uuid.New(),
				DraftID:       draftID,
				RosterID:      rosterID,
				DraftPosition: i + 1,
			})
		}
		orders = newOrder
	}
	for _, o := range orders {
		if !o.Assigned() {
			return nil, apperrors.Validationf("draft order for draft %s has unassigned positions", draftID)
		}
	}

	byPosition := positionIndex(orders)
	firstPos, err := turnorder.PositionForPick(1, len(orders), policy)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeServer, err, "could not determine first picker")
	}
	firstRoster, ok := byPosition[firstPos]
	if !ok {
		return nil, apperrors.Serverf("no roster at draft position %d", firstPos)
	}

	now := a.clock.Now()
	var deadline *time.Time
	if draft.Settings.Timed() {
		d := now.Add(time.Duration(draft.Settings.PickTimeSec) * time.Second)
		deadline = &d
	}

	payload := events.MustMarshal(events.DraftStartedPayload{
		DraftID:     draftID.String(),
		DraftType:   string(draft.DraftType),
		StartedAt:   now,
		TotalRounds: draft.Settings.Rounds,
		TotalPicks:  draft.Settings.Rounds * len(orders),
	})

	err = a.repo.StartDraft(ctx, StartDraftParams{
		DraftID:       draftID,
		NewOrder:      newOrder,
		FirstRosterID: firstRoster,
		PickDeadline:  deadline,
		StartedAt:     now,
		Events:        []outbox.Event{outbox.NewEvent(draftID, events.TypeDraftStarted, payload)},
	})
	if err != nil {
		return nil, err
	}

	a.notify(ctx, draft.LeagueID, "The draft has started!", map[string]any{"draft_id": draftID.String()})
	log.Info().Str("draft_id", draftID.String()).Msg("draft started")

	return a.repo.GetDraft(ctx, draftID)
}

// MakePick records a human pick after validating turn and availability, then
// advances the draft. A concurrent advancement surfaces as Conflict.
func (a *App) MakePick(ctx context.Context, req MakePickRequest) (*models.DraftPick, error) {
	draft, err := a.repo.GetDraft(ctx, req.DraftID)
	if err != nil {
		return nil, err
	}
	if draft.Status != models.DraftStatusInProgress {
		return nil, apperrors.Validationf("draft %s is not in progress", req.DraftID)
	}
	if draft.CurrentRosterID == nil || *draft.CurrentRosterID != req.RosterID {
		return nil, apperrors.Validationf("it is not roster %s's turn to pick", req.RosterID)
	}

	available, err := a.players.IsPlayerAvailable(ctx, req.DraftID, req.PlayerID)
	if err != nil {
		return nil, fmt.Errorf("failed to check player availability: %w", err)
	}
	if !available {
		return nil, apperrors.Conflictf("player %s has already been drafted", req.PlayerID)
	}

	return a.recordPick(ctx, draft, req.PlayerID, false)
}

// HandleDeadline is the sweeper's timeout entry point. It is idempotent: a
// draft whose deadline moved, or that left IN_PROGRESS, is a no-op, as is
// losing the advancement race to a concurrent human pick.
func (a *App) HandleDeadline(ctx context.Context, draftID uuid.UUID) error {
	draft, err := a.repo.GetDraft(ctx, draftID)
	if err != nil {
		return err
	}
	if draft.Status != models.DraftStatusInProgress || draft.PickDeadline == nil {
		return nil
	}
	if draft.PickDeadline.After(a.clock.Now()) {
		return nil
	}
	if draft.CurrentRosterID == nil || draft.CurrentPick == nil {
		return apperrors.Serverf("draft %s is in progress with no current picker", draftID)
	}

	playerID, err := a.resolveAutoPick(ctx, draftID, *draft.CurrentRosterID)
	if err != nil {
		return err
	}

	_, err = a.recordPick(ctx, draft, playerID, true)
	if apperrors.IsConflict(err) {
		// A human pick landed between the due query and our write.
		log.Debug().Str("draft_id", draftID.String()).Msg("auto-pick lost advancement race")
		return nil
	}
	return err
}

// Pause captures the remaining pick time and stops the clock.
func (a *App) Pause(ctx context.Context, draftID uuid.UUID) error {
	draft, err := a.repo.GetDraft(ctx, draftID)
	if err != nil {
		return err
	}
	if draft.Status != models.DraftStatusInProgress {
		return apperrors.Validationf("draft %s is not in progress", draftID)
	}

	now := a.clock.Now()
	remaining := 0
	if draft.PickDeadline != nil {
		if d := draft.PickDeadline.Sub(now); d > 0 {
			remaining = int(d / time.Second)
		}
	}
	settings := draft.Settings
	settings.PausedRemainingSec = &remaining

	payload := events.MustMarshal(events.DraftPausedPayload{
		DraftID:      draftID.String(),
		PausedAt:     now,
		RemainingSec: remaining,
	})
	err = a.repo.Pause(ctx, PauseParams{
		DraftID:  draftID,
		Settings: settings,
		Events:   []outbox.Event{outbox.NewEvent(draftID, events.TypeDraftPaused, payload)},
	})
	if err != nil {
		return err
	}

	a.notify(ctx, draft.LeagueID, "The draft has been paused.", map[string]any{"draft_id": draftID.String()})
	log.Info().Str("draft_id", draftID.String()).Int("remaining_sec", remaining).Msg("draft paused")
	return nil
}

// Resume restores the deadline from the captured remaining time, floored at
// resumeFloor so the current picker always gets a usable window.
func (a *App) Resume(ctx context.Context, draftID uuid.UUID) error {
	draft, err := a.repo.GetDraft(ctx, draftID)
	if err != nil {
		return err
	}
	if draft.Status != models.DraftStatusPaused {
		return apperrors.Validationf("draft %s is not paused", draftID)
	}

	now := a.clock.Now()
	var deadline *time.Time
	if draft.Settings.Timed() {
		window := time.Duration(draft.Settings.PickTimeSec) * time.Second
		if draft.Settings.PausedRemainingSec != nil {
			window = time.Duration(*draft.Settings.PausedRemainingSec) * time.Second
		}
		if window < resumeFloor {
			window = resumeFloor
		}
		d := now.Add(window)
		deadline = &d
	}

	settings := draft.Settings
	settings.PausedRemainingSec = nil

	payload := events.MustMarshal(events.DraftResumedPayload{
		DraftID:      draftID.String(),
		ResumedAt:    now,
		PickDeadline: deadline,
	})
	err = a.repo.Resume(ctx, ResumeParams{
		DraftID:      draftID,
		Settings:     settings,
		PickDeadline: deadline,
		Events:       []outbox.Event{outbox.NewEvent(draftID, events.TypeDraftResumed, payload)},
	})
	if err != nil {
		return err
	}

	a.notify(ctx, draft.LeagueID, "The draft has resumed.", map[string]any{"draft_id": draftID.String()})
	log.Info().Str("draft_id", draftID.String()).Msg("draft resumed")
	return nil
}

// Cancel moves a draft to CANCELLED from any pre-completed state.
func (a *App) Cancel(ctx context.Context, draftID uuid.UUID) error {
	draft, err := a.repo.GetDraft(ctx, draftID)
	if err != nil {
		return err
	}
	switch draft.Status {
	case models.DraftStatusCompleted, models.DraftStatusCancelled:
		return apperrors.Validationf("draft %s is already %s", draftID, draft.Status)
	}

	payload := events.MustMarshal(events.DraftCancelledPayload{
		DraftID:     draftID.String(),
		CancelledAt: a.clock.Now(),
	})
	return a.repo.Cancel(ctx, CancelParams{
		DraftID: draftID,
		Events:  []outbox.Event{outbox.NewEvent(draftID, events.TypeDraftCancelled, payload)},
	})
}

// recordPick computes the advancement for the pick read in draft and writes
// it conditionally.
func (a *App) recordPick(ctx context.Context, draft *models.Draft, playerID uuid.UUID, isAuto bool) (*models.DraftPick, error) {
	policy, err := policyFor(draft.DraftType)
	if err != nil {
		return nil, err
	}
	orders, err := a.repo.ListOrder(ctx, draft.ID)
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return nil, apperrors.Serverf("draft %s has no draft order", draft.ID)
	}

	currentPick := *draft.CurrentPick
	now := a.clock.Now()

	next, err := turnorder.Advance(currentPick, len(orders), draft.Settings.Rounds, policy)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeServer, err, "could not determine next picker")
	}

	pick := models.DraftPick{
		ID:          uuid.New(),
		DraftID:     draft.ID,
		PickNumber:  currentPick,
		Round:       *draft.CurrentRound,
		RosterID:    *draft.CurrentRosterID,
		PlayerID:    playerID,
		IsAutoPick:  isAuto,
		PickTimeSec: draft.Settings.PickTimeSec,
	}

	params := RecordPickParams{
		DraftID:      draft.ID,
		ExpectedPick: currentPick,
		Pick:         pick,
	}

	pickPayload := events.PickMadePayload{
		PickID:     pick.ID.String(),
		RosterID:   pick.RosterID.String(),
		PlayerID:   playerID.String(),
		Round:      pick.Round,
		PickNumber: pick.PickNumber,
		IsAutoPick: isAuto,
		MadeAt:     now,
	}
	evs := make([]outbox.Event, 0, 2)

	if next.Done {
		params.Completed = true
		params.CompletedAt = &now
		completedPayload := events.MustMarshal(events.DraftCompletedPayload{
			DraftID:     draft.ID.String(),
			CompletedAt: now,
			TotalPicks:  currentPick,
		})
		evs = append(evs,
			outbox.NewEvent(draft.ID, events.TypePickMade, events.MustMarshal(pickPayload)),
			outbox.NewEvent(draft.ID, events.TypeDraftCompleted, completedPayload),
		)
	} else {
		byPosition := positionIndex(orders)
		nextRoster, ok := byPosition[next.Position]
		if !ok {
			return nil, apperrors.Serverf("no roster at draft position %d", next.Position)
		}
		params.NextPick = next.Pick
		params.NextRound = next.Round
		params.NextRosterID = nextRoster
		if draft.Settings.Timed() {
			d := now.Add(time.Duration(draft.Settings.PickTimeSec) * time.Second)
			params.NextDeadline = &d
		}
		pickPayload.NextRosterID = &nextRoster
		pickPayload.PickDeadline = params.NextDeadline
		evs = append(evs, outbox.NewEvent(draft.ID, events.TypePickMade, events.MustMarshal(pickPayload)))
	}
	params.Events = evs

	if err := a.repo.RecordPick(ctx, params); err != nil {
		return nil, err
	}

	if next.Done {
		a.notify(ctx, draft.LeagueID, "The draft is complete!", map[string]any{"draft_id": draft.ID.String()})
	}
	log.Info().
		Str("draft_id", draft.ID.String()).
		Int("pick", pick.PickNumber).
		Bool("auto", isAuto).
		Msg("pick recorded")
	return &pick, nil
}

// resolveAutoPick picks from the roster's queue, then the external ranking,
// then the deterministic lowest-id fallback. It never stalls: either a
// player comes back or the condition is a Server-class bug signal.
func (a *App) resolveAutoPick(ctx context.Context, draftID, rosterID uuid.UUID) (uuid.UUID, error) {
	entry, err := a.queues.NextAvailable(ctx, draftID, rosterID)
	if err != nil {
		log.Warn().Err(err).Str("draft_id", draftID.String()).Msg("queue resolution failed, falling back")
	} else if entry != nil {
		return entry.PlayerID, nil
	}

	oracleCtx, cancel := context.WithTimeout(ctx, oracleTimeout)
	defer cancel()
	if playerID, err := a.players.BestAvailable(oracleCtx, draftID); err == nil && playerID != uuid.Nil {
		return playerID, nil
	} else if err != nil {
		log.Warn().Err(err).Str("draft_id", draftID.String()).Msg("best-available ranking failed, falling back")
	}

	available, err := a.players.ListAvailablePlayers(ctx, draftID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to list available players: %w", err)
	}
	if len(available) == 0 {
		return uuid.Nil, apperrors.Serverf("no available players for auto-pick in draft %s", draftID)
	}

	lowest := available[0]
	for _, id := range available[1:] {
		if bytes.Compare(id[:], lowest[:]) < 0 {
			lowest = id
		}
	}
	return lowest, nil
}

// notify is fire-and-forget: a failed chat message never fails the pick.
func (a *App) notify(ctx context.Context, leagueID uuid.UUID, text string, metadata map[string]any) {
	if a.notifier == nil {
		return
	}
	if err := a.notifier.SendSystemMessage(ctx, leagueID, text, metadata); err != nil {
		log.Warn().Err(err).Str("league_id", leagueID.String()).Msg("failed to send system message")
	}
}

func policyFor(t models.DraftType) (turnorder.Policy, error) {
	switch t {
	case models.DraftTypeSnake, models.DraftTypeDerby:
		// Derby drafts select positions first, then run the player phase
		// with snake ordering.
		return turnorder.PolicySnake, nil
	case models.DraftTypeLinear:
		return turnorder.PolicyLinear, nil
	case models.DraftTypeThirdRoundReversal:
		return turnorder.PolicyThirdRoundReversal, nil
	default:
		return "", apperrors.Validationf("unsupported draft type: %s", t)
	}
}

func positionIndex(orders []models.DraftOrder) map[int]uuid.UUID {
	byPosition := make(map[int]uuid.UUID, len(orders))
	for _, o := range orders {
		byPosition[o.DraftPosition] = o.RosterID
	}
	return byPosition
}
