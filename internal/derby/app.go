// Package derby implements the slot-selection phase of derby drafts: a
// randomized picking order where each roster claims its own draft position
// before the player phase begins.
package derby

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/gridironhq/draftd/internal/apperrors"
	"github.com/gridironhq/draftd/internal/draftorder"
	"github.com/gridironhq/draftd/internal/events"
	"github.com/gridironhq/draftd/internal/models"
	"github.com/gridironhq/draftd/internal/outbox"
)

// DerbyRepository defines what the derby app layer needs from persistence.
type DerbyRepository interface {
	GetDraft(ctx context.Context, draftID uuid.UUID) (*models.Draft, error)
	ListOrder(ctx context.Context, draftID uuid.UUID) ([]models.DraftOrder, error)
	StartDerby(ctx context.Context, p StartDerbyParams) error
	Advance(ctx context.Context, p AdvanceParams) error
	FetchDueDerbies(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error)
}

// LeagueGateway resolves league membership.
type LeagueGateway interface {
	ListRosterIDs(ctx context.Context, leagueID uuid.UUID) ([]uuid.UUID, error)
}

// Notifier delivers system chat messages, fire-and-forget.
type Notifier interface {
	SendSystemMessage(ctx context.Context, leagueID uuid.UUID, text string, metadata map[string]any) error
}

// App handles derby slot-selection business logic.
type App struct {
	repo     DerbyRepository
	league   LeagueGateway
	notifier Notifier
	clock    clockwork.Clock
	gen      *draftorder.Generator
}

func NewApp(repo DerbyRepository, league LeagueGateway, notifier Notifier, clock clockwork.Clock, gen *draftorder.Generator) *App {
	return &App{
		repo:     repo,
		league:   league,
		notifier: notifier,
		clock:    clock,
		gen:      gen,
	}
}

// StartDerby randomizes the picking order and opens slot selection. The
// picking order is fixed at start; slots stay unassigned (position 0) until
// each roster claims one.
func (a *App) StartDerby(ctx context.Context, draftID uuid.UUID) (*models.Draft, error) {
	draft, err := a.repo.GetDraft(ctx, draftID)
	if err != nil {
		return nil, err
	}
	if draft.DraftType != models.DraftTypeDerby {
		return nil, apperrors.Validationf("draft %s is not a derby draft", draftID)
	}
	if draft.Status != models.DraftStatusNotStarted {
		return nil, apperrors.Validationf("draft %s has already started (status %s)", draftID, draft.Status)
	}
	if draft.Settings.Derby == nil || draft.Settings.Derby.Status != models.DerbyStatusNotStarted {
		return nil, apperrors.Validationf("derby for draft %s is not startable", draftID)
	}

	rosterIDs, err := a.league.ListRosterIDs(ctx, draft.LeagueID)
	if err != nil {
		return nil, fmt.Errorf("failed to list league rosters: %w", err)
	}
	if len(rosterIDs) == 0 {
		return nil, apperrors.Validationf("league %s has no rosters", draft.LeagueID)
	}

	newOrder := make([]models.DraftOrder, 0, len(rosterIDs))
	for _, rosterID := range a.gen.Randomize(rosterIDs) {
		newOrder = append(newOrder, models.DraftOrder{
			ID:       uuid.New(),
			DraftID:  draftID,
			RosterID: rosterID,
			// position 0 until the roster selects a slot
		})
	}

	settings := draft.Settings
	derby := *settings.Derby
	derby.Status = models.DerbyStatusInProgress
	derby.CurrentPickerIndex = 0
	settings.Derby = &derby

	deadline := a.nextDeadline(derby)

	payload := events.MustMarshal(events.DerbySlotPayload{
		DraftID:            draftID.String(),
		RosterID:           newOrder[0].RosterID.String(),
		CurrentPickerIndex: 0,
		DerbyStatus:        string(models.DerbyStatusInProgress),
		PickDeadline:       deadline,
	})
	err = a.repo.StartDerby(ctx, StartDerbyParams{
		DraftID:      draftID,
		NewOrder:     newOrder,
		Settings:     settings,
		PickDeadline: deadline,
		Events:       []outbox.Event{outbox.NewEvent(draftID, events.TypeDerbyStarted, payload)},
	})
	if err != nil {
		return nil, err
	}

	a.notify(ctx, draft.LeagueID, "Position selection has started!", map[string]any{"draft_id": draftID.String()})
	log.Info().Str("draft_id", draftID.String()).Int("rosters", len(newOrder)).Msg("derby started")

	return a.repo.GetDraft(ctx, draftID)
}

// SelectSlot records the current picker's slot choice and advances to the
// next picker. Choosing a taken slot is a Conflict unless OverrideExisting
// is set, in which case the previous holder is bumped back to unassigned.
func (a *App) SelectSlot(ctx context.Context, req SelectSlotRequest) error {
	draft, orders, idx, err := a.loadInProgress(ctx, req.DraftID)
	if err != nil {
		return err
	}
	current := orders[idx]
	if current.RosterID != req.RosterID {
		return apperrors.Validationf("it is not roster %s's turn to select", req.RosterID)
	}
	if req.SlotNumber < 1 || req.SlotNumber > len(orders) {
		return apperrors.Validationf("slot %d is out of range 1..%d", req.SlotNumber, len(orders))
	}

	var clear *uuid.UUID
	for _, o := range orders {
		if o.DraftPosition == req.SlotNumber {
			if !req.OverrideExisting {
				return apperrors.Conflictf("slot %d is already taken by roster %s", req.SlotNumber, o.RosterID)
			}
			id := o.ID
			clear = &id
			break
		}
	}

	assign := &SlotAssignment{OrderID: current.ID, Slot: req.SlotNumber}
	return a.advance(ctx, draft, orders, idx, assign, clear, events.TypeDerbySlotSelected)
}

// HandleDeadline is the sweeper's derby entry point. RANDOMIZE assigns the
// expired picker a uniformly random free slot; SKIP moves them to the back
// of the line, resolved by the completion catch-all.
func (a *App) HandleDeadline(ctx context.Context, draftID uuid.UUID) error {
	draft, orders, idx, err := a.loadInProgress(ctx, draftID)
	if apperrors.IsValidation(err) {
		// The derby finished or moved on between the due query and here.
		return nil
	}
	if err != nil {
		return err
	}
	if draft.PickDeadline == nil || draft.PickDeadline.After(a.clock.Now()) {
		return nil
	}
	current := orders[idx]

	var handleErr error
	if draft.Settings.Derby.OnTimeout == models.DerbyTimeoutSkip {
		handleErr = a.skipPicker(ctx, draft, orders, idx)
	} else {
		free := freeSlots(orders)
		if len(free) == 0 {
			return apperrors.Serverf("derby %s has a picker but no free slots", draftID)
		}
		slot := free[a.gen.Intn(len(free))]
		assign := &SlotAssignment{OrderID: current.ID, Slot: slot}
		handleErr = a.advance(ctx, draft, orders, idx, assign, nil, events.TypeDerbySlotAutoAssigned)
	}
	if apperrors.IsConflict(handleErr) {
		log.Debug().Str("draft_id", draftID.String()).Msg("derby timeout lost advancement race")
		return nil
	}
	return handleErr
}

// FetchDueDerbies exposes the sweeper's batch query.
func (a *App) FetchDueDerbies(ctx context.Context, limit int) ([]uuid.UUID, error) {
	return a.repo.FetchDueDerbies(ctx, a.clock.Now(), limit)
}

func (a *App) loadInProgress(ctx context.Context, draftID uuid.UUID) (*models.Draft, []models.DraftOrder, int, error) {
	draft, err := a.repo.GetDraft(ctx, draftID)
	if err != nil {
		return nil, nil, 0, err
	}
	if draft.DraftType != models.DraftTypeDerby {
		return nil, nil, 0, apperrors.Validationf("draft %s is not a derby draft", draftID)
	}
	if draft.Settings.Derby == nil || draft.Settings.Derby.Status != models.DerbyStatusInProgress {
		return nil, nil, 0, apperrors.Validationf("derby for draft %s is not in progress", draftID)
	}

	orders, err := a.repo.ListOrder(ctx, draftID)
	if err != nil {
		return nil, nil, 0, err
	}
	idx := draft.Settings.Derby.CurrentPickerIndex
	if idx < 0 || idx >= len(orders) {
		return nil, nil, 0, apperrors.Serverf("derby %s picker index %d out of range", draftID, idx)
	}
	return draft, orders, idx, nil
}

// advance builds and writes one derby transition. When the last picker in
// the order finishes, the derby completes and any still-unassigned rosters
// (skipped pickers) receive the remaining slots in picking order.
func (a *App) advance(ctx context.Context, draft *models.Draft, orders []models.DraftOrder, idx int, assign *SlotAssignment, clear *uuid.UUID, eventType string) error {
	settings := draft.Settings
	derby := *settings.Derby
	current := orders[idx]

	nextIdx := idx + 1
	done := nextIdx >= len(orders)

	var catchAll []SlotAssignment
	var deadline *time.Time
	if done {
		derby.Status = models.DerbyStatusCompleted
		derby.CurrentPickerIndex = nextIdx
		catchAll = a.catchAllAssignments(orders, assign, clear)
	} else {
		derby.CurrentPickerIndex = nextIdx
		deadline = a.nextDeadline(derby)
	}
	settings.Derby = &derby

	slot := 0
	if assign != nil {
		slot = assign.Slot
	}
	payload := events.MustMarshal(events.DerbySlotPayload{
		DraftID:            draft.ID.String(),
		RosterID:           current.RosterID.String(),
		SlotNumber:         slot,
		CurrentPickerIndex: derby.CurrentPickerIndex,
		DerbyStatus:        string(derby.Status),
		PickDeadline:       deadline,
	})
	evs := []outbox.Event{outbox.NewEvent(draft.ID, eventType, payload)}
	if done {
		completed := events.MustMarshal(events.DerbySlotPayload{
			DraftID:            draft.ID.String(),
			RosterID:           current.RosterID.String(),
			CurrentPickerIndex: derby.CurrentPickerIndex,
			DerbyStatus:        string(models.DerbyStatusCompleted),
		})
		evs = append(evs, outbox.NewEvent(draft.ID, events.TypeDerbyCompleted, completed))
	}

	err := a.repo.Advance(ctx, AdvanceParams{
		DraftID:             draft.ID,
		ExpectedPickerIndex: idx,
		Assign:              assign,
		ClearPosition:       clear,
		CatchAll:            catchAll,
		Settings:            settings,
		PickDeadline:        deadline,
		Events:              evs,
	})
	if err != nil {
		return err
	}

	if done {
		a.notify(ctx, draft.LeagueID, "Position selection is complete!", map[string]any{"draft_id": draft.ID.String()})
	}
	log.Info().
		Str("draft_id", draft.ID.String()).
		Str("roster_id", current.RosterID.String()).
		Int("slot", slot).
		Bool("done", done).
		Msg("derby advanced")
	return nil
}

// skipPicker records the timeout without assigning a slot. The roster keeps
// position 0 and is settled by the catch-all when the derby completes.
func (a *App) skipPicker(ctx context.Context, draft *models.Draft, orders []models.DraftOrder, idx int) error {
	settings := draft.Settings
	derby := *settings.Derby
	derby.SkippedRosterIDs = append(derby.SkippedRosterIDs, orders[idx].RosterID)
	d := *draft
	d.Settings = settings
	d.Settings.Derby = &derby
	return a.advance(ctx, &d, orders, idx, nil, nil, events.TypeDerbyPickerSkipped)
}

// catchAllAssignments pairs every roster still unassigned after the final
// turn with the remaining free slots, both taken in picking order.
func (a *App) catchAllAssignments(orders []models.DraftOrder, assign *SlotAssignment, clear *uuid.UUID) []SlotAssignment {
	taken := make(map[int]bool, len(orders))
	assigned := make(map[uuid.UUID]bool, len(orders))
	for _, o := range orders {
		pos := o.DraftPosition
		if clear != nil && o.ID == *clear {
			pos = 0
		}
		if assign != nil && o.ID == assign.OrderID {
			pos = assign.Slot
		}
		if pos > 0 {
			taken[pos] = true
			assigned[o.ID] = true
		}
	}

	var free []int
	for slot := 1; slot <= len(orders); slot++ {
		if !taken[slot] {
			free = append(free, slot)
		}
	}
	sort.Ints(free)

	var out []SlotAssignment
	for _, o := range orders {
		if assigned[o.ID] {
			continue
		}
		if len(free) == 0 {
			break
		}
		out = append(out, SlotAssignment{OrderID: o.ID, Slot: free[0]})
		free = free[1:]
	}
	return out
}

func (a *App) nextDeadline(derby models.DerbySettings) *time.Time {
	if derby.TimerSec <= 0 {
		return nil
	}
	d := a.clock.Now().Add(time.Duration(derby.TimerSec) * time.Second)
	return &d
}

func freeSlots(orders []models.DraftOrder) []int {
	taken := make(map[int]bool, len(orders))
	for _, o := range orders {
		if o.DraftPosition > 0 {
			taken[o.DraftPosition] = true
		}
	}
	var free []int
	for slot := 1; slot <= len(orders); slot++ {
		if !taken[slot] {
			free = append(free, slot)
		}
	}
	return free
}

// notify is fire-and-forget: a failed chat message never fails the
// transition.
func (a *App) notify(ctx context.Context, leagueID uuid.UUID, text string, metadata map[string]any) {
	if a.notifier == nil {
		return
	}
	if err := a.notifier.SendSystemMessage(ctx, leagueID, text, metadata); err != nil {
		log.Warn().Err(err).Str("league_id", leagueID.String()).Msg("failed to send system message")
	}
}
