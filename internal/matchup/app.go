// Package matchup implements matchup drafts: rosters take turns picking
// which opponent they face in which regular-season week, or a commissioner
// fills the whole schedule at once from a round robin.
package matchup

import (
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

// MatchupRepository defines what the matchup app layer needs from
// persistence.
type MatchupRepository interface {
	CreateMatchupDraft(ctx context.Context, req CreateMatchupDraftRequest) (*models.MatchupDraft, error)
	GetMatchupDraft(ctx context.Context, id uuid.UUID) (*models.MatchupDraft, error)
	ListOrder(ctx context.Context, draftID uuid.UUID) ([]models.DraftOrder, error)
	ListPicks(ctx context.Context, draftID uuid.UUID) ([]models.MatchupDraftPick, error)
	Start(ctx context.Context, p StartParams) error
	RecordPick(ctx context.Context, p RecordPickParams) error
	CompleteWithPicks(ctx context.Context, p CompleteWithPicksParams) error
	Cancel(ctx context.Context, p CancelParams) error
	FetchDueDrafts(ctx context.Context, now time.Time, limit int32) ([]uuid.UUID, error)
}

// LeagueGateway resolves league membership and commissioner rights.
type LeagueGateway interface {
	ListRosterIDs(ctx context.Context, leagueID uuid.UUID) ([]uuid.UUID, error)
	IsCommissioner(ctx context.Context, leagueID, rosterID uuid.UUID) (bool, error)
}

// Notifier delivers system chat messages, fire-and-forget.
type Notifier interface {
	SendSystemMessage(ctx context.Context, leagueID uuid.UUID, text string, metadata map[string]any) error
}

// App handles matchup draft business logic.
type App struct {
	repo     MatchupRepository
	league   LeagueGateway
	notifier Notifier
	clock    clockwork.Clock
	gen      *draftorder.Generator
}

func NewApp(repo MatchupRepository, league LeagueGateway, notifier Notifier, clock clockwork.Clock, gen *draftorder.Generator) *App {
	return &App{
		repo:     repo,
		league:   league,
		notifier: notifier,
		clock:    clock,
		gen:      gen,
	}
}

// CreateMatchupDraft creates a new matchup draft in NOT_STARTED.
func (a *App) CreateMatchupDraft(ctx context.Context, req CreateMatchupDraftRequest) (*models.MatchupDraft, error) {
	if req.ID == uuid.Nil {
		req.ID = uuid.New()
	}
	if req.LeagueID == uuid.Nil {
		return nil, apperrors.Validationf("league_id is required")
	}
	if req.StartWeek < 1 {
		return nil, apperrors.Validationf("start_week must be at least 1")
	}
	if req.PlayoffWeekStart <= req.StartWeek {
		return nil, apperrors.Validationf("playoff_week_start must be after start_week")
	}
	if req.PickTimeSec < 0 {
		return nil, apperrors.Validationf("pick_time_sec cannot be negative")
	}

	draft, err := a.repo.CreateMatchupDraft(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to create matchup draft: %w", err)
	}
	log.Info().
		Str("matchup_draft_id", draft.ID.String()).
		Int("weeks", draft.Weeks()).
		Msg("created matchup draft")
	return draft, nil
}

func (a *App) GetMatchupDraft(ctx context.Context, id uuid.UUID) (*models.MatchupDraft, error) {
	return a.repo.GetMatchupDraft(ctx, id)
}

func (a *App) ListPicks(ctx context.Context, draftID uuid.UUID) ([]models.MatchupDraftPick, error) {
	return a.repo.ListPicks(ctx, draftID)
}

// FetchDueDrafts exposes the sweeper's batch query.
func (a *App) FetchDueDrafts(ctx context.Context, limit int32) ([]uuid.UUID, error) {
	return a.repo.FetchDueDrafts(ctx, a.clock.Now(), limit)
}

// Start randomizes the picking order and opens the turn-based schedule
// draft. Matchup drafts always advance snake-style.
func (a *App) Start(ctx context.Context, draftID uuid.UUID) (*models.MatchupDraft, error) {
	draft, err := a.repo.GetMatchupDraft(ctx, draftID)
	if err != nil {
		return nil, err
	}
	if draft.Status != models.DraftStatusNotStarted {
		return nil, apperrors.Validationf("matchup draft %s has already started (status %s)", draftID, draft.Status)
	}

	rosterIDs, err := a.league.ListRosterIDs(ctx, draft.LeagueID)
	if err != nil {
		return nil, fmt.Errorf("failed to list league rosters: %w", err)
	}
	if len(rosterIDs) < 2 {
		return nil, apperrors.Validationf("league %s needs at least 2 rosters for a matchup draft", draft.LeagueID)
	}

	var newOrder []models.DraftOrder
	for i, rosterID := range a.gen.Randomize(rosterIDs) {
		newOrder = append(newOrder, models.DraftOrder{
			ID:            uuid.New(),
			DraftID:       draftID,
			RosterID:      rosterID,
			DraftPosition: i + 1,
		})
	}

	now := a.clock.Now()
	var deadline *time.Time
	if draft.PickTimeSec > 0 {
		d := now.Add(time.Duration(draft.PickTimeSec) * time.Second)
		deadline = &d
	}

	payload := events.MustMarshal(events.MatchupDraftStartedPayload{
		MatchupDraftID: draftID.String(),
		StartedAt:      now,
		Weeks:          draft.Weeks(),
		TotalPicks:     len(newOrder) * draft.Weeks(),
	})
	err = a.repo.Start(ctx, StartParams{
		DraftID:       draftID,
		NewOrder:      newOrder,
		FirstRosterID: newOrder[0].RosterID,
		PickDeadline:  deadline,
		StartedAt:     now,
		Events:        []outbox.Event{outbox.NewEvent(draftID, events.TypeMatchupDraftStarted, payload)},
	})
	if err != nil {
		return nil, err
	}

	a.notify(ctx, draft.LeagueID, "The schedule draft has started!", map[string]any{"matchup_draft_id": draftID.String()})
	log.Info().Str("matchup_draft_id", draftID.String()).Msg("matchup draft started")

	return a.repo.GetMatchupDraft(ctx, draftID)
}

// AvailableMatchups returns the (opponent, week) pairs a roster can still
// pick: weeks it has not scheduled, against opponents not already claimed
// for that week.
func (a *App) AvailableMatchups(ctx context.Context, draftID, rosterID uuid.UUID) ([]models.MatchupOption, error) {
	draft, err := a.repo.GetMatchupDraft(ctx, draftID)
	if err != nil {
		return nil, err
	}
	orders, err := a.repo.ListOrder(ctx, draftID)
	if err != nil {
		return nil, err
	}
	picks, err := a.repo.ListPicks(ctx, draftID)
	if err != nil {
		return nil, err
	}
	return availableFor(draft, orders, picks, rosterID), nil
}

// MakePick records a human matchup pick after validating turn and
// availability.
func (a *App) MakePick(ctx context.Context, req MakePickRequest) (*models.MatchupDraftPick, error) {
	draft, err := a.repo.GetMatchupDraft(ctx, req.DraftID)
	if err != nil {
		return nil, err
	}
	if draft.Status != models.DraftStatusInProgress {
		return nil, apperrors.Validationf("matchup draft %s is not in progress", req.DraftID)
	}
	if draft.CurrentRosterID == nil || *draft.CurrentRosterID != req.RosterID {
		return nil, apperrors.Validationf("it is not roster %s's turn to pick", req.RosterID)
	}
	if req.OpponentRosterID == req.RosterID {
		return nil, apperrors.Validationf("roster %s cannot schedule itself", req.RosterID)
	}
	if req.WeekNumber < draft.StartWeek || req.WeekNumber >= draft.PlayoffWeekStart {
		return nil, apperrors.Validationf("week %d is outside the regular season %d..%d", req.WeekNumber, draft.StartWeek, draft.PlayoffWeekStart-1)
	}

	orders, err := a.repo.ListOrder(ctx, req.DraftID)
	if err != nil {
		return nil, err
	}
	picks, err := a.repo.ListPicks(ctx, req.DraftID)
	if err != nil {
		return nil, err
	}
	for _, p := range picks {
		if p.RosterID == req.RosterID && p.WeekNumber == req.WeekNumber {
			return nil, apperrors.Conflictf("roster %s already has a matchup for week %d", req.RosterID, req.WeekNumber)
		}
		if p.OpponentRosterID == req.OpponentRosterID && p.WeekNumber == req.WeekNumber {
			return nil, apperrors.Conflictf("roster %s is already scheduled for week %d", req.OpponentRosterID, req.WeekNumber)
		}
	}

	option := models.MatchupOption{OpponentRosterID: req.OpponentRosterID, WeekNumber: req.WeekNumber}
	return a.recordPick(ctx, draft, orders, option, false)
}

// HandleDeadline auto-picks a uniformly random available matchup for the
// expired roster. Idempotent against deadline movement, and a lost
// advancement race is a no-op.
func (a *App) HandleDeadline(ctx context.Context, draftID uuid.UUID) error {
	draft, err := a.repo.GetMatchupDraft(ctx, draftID)
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
		return apperrors.Serverf("matchup draft %s is in progress with no current picker", draftID)
	}

	orders, err := a.repo.ListOrder(ctx, draftID)
	if err != nil {
		return err
	}
	picks, err := a.repo.ListPicks(ctx, draftID)
	if err != nil {
		return err
	}
	options := availableFor(draft, orders, picks, *draft.CurrentRosterID)
	if len(options) == 0 {
		return apperrors.Serverf("roster %s has no available matchups in draft %s", *draft.CurrentRosterID, draftID)
	}
	option := options[a.gen.Intn(len(options))]

	_, err = a.recordPick(ctx, draft, orders, option, true)
	if apperrors.IsConflict(err) {
		log.Debug().Str("matchup_draft_id", draftID.String()).Msg("matchup auto-pick lost advancement race")
		return nil
	}
	return err
}

// GenerateRandomMatchups lets the commissioner skip the turn-based draft and
// fill every week from a round robin in one shot. Refused once any
// turn-based pick exists.
func (a *App) GenerateRandomMatchups(ctx context.Context, draftID, requestedBy uuid.UUID) error {
	draft, err := a.repo.GetMatchupDraft(ctx, draftID)
	if err != nil {
		return err
	}
	switch draft.Status {
	case models.DraftStatusNotStarted, models.DraftStatusInProgress:
	default:
		return apperrors.Validationf("matchup draft %s is already %s", draftID, draft.Status)
	}

	isCommish, err := a.league.IsCommissioner(ctx, draft.LeagueID, requestedBy)
	if err != nil {
		return fmt.Errorf("failed to check commissioner rights: %w", err)
	}
	if !isCommish {
		return apperrors.Validationf("roster %s is not the league commissioner", requestedBy)
	}

	picks, err := a.repo.ListPicks(ctx, draftID)
	if err != nil {
		return err
	}
	if len(picks) > 0 {
		return apperrors.Conflictf("matchup draft %s already has turn-based picks", draftID)
	}

	rosterIDs, err := a.league.ListRosterIDs(ctx, draft.LeagueID)
	if err != nil {
		return fmt.Errorf("failed to list league rosters: %w", err)
	}
	rosterIDs = a.gen.Randomize(rosterIDs)

	rounds, err := draftorder.RoundRobin(len(rosterIDs))
	if err != nil {
		return apperrors.Wrap(apperrors.CodeValidation, err, "cannot build round robin schedule")
	}

	weeks := draft.Weeks()
	now := a.clock.Now()
	schedule := make([]models.MatchupDraftPick, 0, len(rosterIDs)*weeks)
	pickNumber := 1
	for wi := 0; wi < weeks; wi++ {
		week := draft.StartWeek + wi
		for _, pair := range rounds[wi%len(rounds)] {
			home, away := rosterIDs[pair.Home], rosterIDs[pair.Away]
			for _, side := range [][2]uuid.UUID{{home, away}, {away, home}} {
				schedule = append(schedule, models.MatchupDraftPick{
					ID:               uuid.New(),
					MatchupDraftID:   draftID,
					PickNumber:       pickNumber,
					Round:            wi + 1,
					RosterID:         side[0],
					OpponentRosterID: side[1],
					WeekNumber:       week,
					IsAutoPick:       true,
				})
				pickNumber++
			}
		}
	}

	payload := events.MustMarshal(events.MatchupDraftCompletedPayload{
		MatchupDraftID: draftID.String(),
		CompletedAt:    now,
		TotalPicks:     len(schedule),
		RandomFill:     true,
	})
	err = a.repo.CompleteWithPicks(ctx, CompleteWithPicksParams{
		DraftID:     draftID,
		Picks:       schedule,
		CompletedAt: now,
		Events:      []outbox.Event{outbox.NewEvent(draftID, events.TypeMatchupDraftCompleted, payload)},
	})
	if err != nil {
		return err
	}

	a.notify(ctx, draft.LeagueID, "The schedule has been generated!", map[string]any{"matchup_draft_id": draftID.String()})
	log.Info().
		Str("matchup_draft_id", draftID.String()).
		Int("picks", len(schedule)).
		Msg("random matchups generated")
	return nil
}

// Cancel moves a matchup draft to CANCELLED.
func (a *App) Cancel(ctx context.Context, draftID uuid.UUID) error {
	return a.repo.Cancel(ctx, CancelParams{DraftID: draftID})
}

// recordPick computes the advancement for the pick read in draft and writes
// it conditionally. Matchup drafts snake through the order with one round
// per regular-season week.
func (a *App) recordPick(ctx context.Context, draft *models.MatchupDraft, orders []models.DraftOrder, option models.MatchupOption, isAuto bool) (*models.MatchupDraftPick, error) {
	if len(orders) == 0 {
		return nil, apperrors.Serverf("matchup draft %s has no draft order", draft.ID)
	}

	currentPick := *draft.CurrentPick
	now := a.clock.Now()

	next, err := turnorder.Advance(currentPick, len(orders), draft.Weeks(), turnorder.PolicySnake)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeServer, err, "could not determine next picker")
	}

	pick := models.MatchupDraftPick{
		ID:               uuid.New(),
		MatchupDraftID:   draft.ID,
		PickNumber:       currentPick,
		Round:            *draft.CurrentRound,
		RosterID:         *draft.CurrentRosterID,
		OpponentRosterID: option.OpponentRosterID,
		WeekNumber:       option.WeekNumber,
		IsAutoPick:       isAuto,
	}

	params := RecordPickParams{
		DraftID:      draft.ID,
		ExpectedPick: currentPick,
		Pick:         pick,
	}

	pickPayload := events.MatchupPickMadePayload{
		MatchupDraftID:   draft.ID.String(),
		RosterID:         pick.RosterID.String(),
		OpponentRosterID: pick.OpponentRosterID.String(),
		WeekNumber:       pick.WeekNumber,
		PickNumber:       pick.PickNumber,
		IsAutoPick:       isAuto,
	}
	evs := make([]outbox.Event, 0, 2)

	if next.Done {
		params.Completed = true
		params.CompletedAt = &now
		completedPayload := events.MustMarshal(events.MatchupDraftCompletedPayload{
			MatchupDraftID: draft.ID.String(),
			CompletedAt:    now,
			TotalPicks:     currentPick,
		})
		evs = append(evs,
			outbox.NewEvent(draft.ID, events.TypeMatchupPickMade, events.MustMarshal(pickPayload)),
			outbox.NewEvent(draft.ID, events.TypeMatchupDraftCompleted, completedPayload),
		)
	} else {
		byPosition := make(map[int]uuid.UUID, len(orders))
		for _, o := range orders {
			byPosition[o.DraftPosition] = o.RosterID
		}
		nextRoster, ok := byPosition[next.Position]
		if !ok {
			return nil, apperrors.Serverf("no roster at draft position %d", next.Position)
		}
		params.NextPick = next.Pick
		params.NextRound = next.Round
		params.NextRosterID = nextRoster
		if draft.PickTimeSec > 0 {
			d := now.Add(time.Duration(draft.PickTimeSec) * time.Second)
			params.NextDeadline = &d
		}
		pickPayload.NextRosterID = &nextRoster
		pickPayload.PickDeadline = params.NextDeadline
		evs = append(evs, outbox.NewEvent(draft.ID, events.TypeMatchupPickMade, events.MustMarshal(pickPayload)))
	}
	params.Events = evs

	if err := a.repo.RecordPick(ctx, params); err != nil {
		return nil, err
	}

	if next.Done {
		a.notify(ctx, draft.LeagueID, "The schedule draft is complete!", map[string]any{"matchup_draft_id": draft.ID.String()})
	}
	log.Info().
		Str("matchup_draft_id", draft.ID.String()).
		Int("pick", pick.PickNumber).
		Int("week", pick.WeekNumber).
		Bool("auto", isAuto).
		Msg("matchup pick recorded")
	return &pick, nil
}

// availableFor computes the (opponent, week) pairs still open to a roster:
// weeks the roster has not yet scheduled, paired with opponents nobody has
// claimed for that week.
func availableFor(draft *models.MatchupDraft, orders []models.DraftOrder, picks []models.MatchupDraftPick, rosterID uuid.UUID) []models.MatchupOption {
	myWeeks := make(map[int]bool)
	claimed := make(map[int]map[uuid.UUID]bool)
	for _, p := range picks {
		if p.RosterID == rosterID {
			myWeeks[p.WeekNumber] = true
		}
		if claimed[p.WeekNumber] == nil {
			claimed[p.WeekNumber] = make(map[uuid.UUID]bool)
		}
		claimed[p.WeekNumber][p.OpponentRosterID] = true
	}

	var options []models.MatchupOption
	for week := draft.StartWeek; week < draft.PlayoffWeekStart; week++ {
		if myWeeks[week] {
			continue
		}
		for _, o := range orders {
			if o.RosterID == rosterID || claimed[week][o.RosterID] {
				continue
			}
			options = append(options, models.MatchupOption{
				OpponentRosterID: o.RosterID,
				WeekNumber:       week,
			})
		}
	}
	return options
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
