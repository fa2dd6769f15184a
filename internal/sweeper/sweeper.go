// Package sweeper polls for drafts whose pick deadline has passed and
// dispatches them to their runtime's timeout handler through a worker pool.
// The database deadline is the source of truth, so any instance can sweep
// any draft and a crashed instance's work is picked up on the next tick.
package sweeper

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/gridironhq/draftd/internal/apperrors"
)

// Handler is one sweepable draft runtime.
type Handler interface {
	// Kind names the runtime in logs.
	Kind() string
	// DueDrafts returns ids whose deadline has passed, bounded by limit.
	DueDrafts(ctx context.Context, limit int32) ([]uuid.UUID, error)
	// HandleDeadline resolves one expired deadline. It must be idempotent:
	// the deadline may have moved between the due query and the call.
	HandleDeadline(ctx context.Context, draftID uuid.UUID) error
}

// Config tunes one sweeper instance.
type Config struct {
	Interval   time.Duration
	BatchLimit int32
	NumWorkers int
}

// Sweeper drives a set of handlers on a shared tick.
type Sweeper struct {
	instanceID string
	handlers   []Handler
	clock      clockwork.Clock
	interval   time.Duration
	batchLimit int32
	numWorkers int

	workCh chan work

	// inFlight dedupes dispatch: a draft already handed to a worker is not
	// re-enqueued by a later tick.
	inFlightMu sync.Mutex
	inFlight   map[uuid.UUID]bool
}

type work struct {
	handler Handler
	draftID uuid.UUID
}

func New(cfg Config, clock clockwork.Clock, handlers ...Handler) *Sweeper {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Second
	}
	if cfg.BatchLimit <= 0 {
		cfg.BatchLimit = 50
	}
	if cfg.NumWorkers <= 0 {
		cfg.NumWorkers = 4
	}
	return &Sweeper{
		instanceID: uuid.New().String()[:8],
		handlers:   handlers,
		clock:      clock,
		interval:   cfg.Interval,
		batchLimit: cfg.BatchLimit,
		numWorkers: cfg.NumWorkers,
		workCh:     make(chan work, int(cfg.BatchLimit)*len(handlers)),
		inFlight:   make(map[uuid.UUID]bool),
	}
}

// Run sweeps until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) error {
	log.Info().
		Str("instance", s.instanceID).
		Int("workers", s.numWorkers).
		Dur("interval", s.interval).
		Msg("sweeper started")

	var wg sync.WaitGroup
	for i := 0; i < s.numWorkers; i++ {
		wg.Add(1)
		go s.worker(ctx, &wg, i)
	}

	ticker := s.clock.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("instance", s.instanceID).Msg("sweeper shutdown requested")
			close(s.workCh)
			wg.Wait()
			log.Info().Str("instance", s.instanceID).Msg("all sweeper workers shut down")
			return nil
		case <-ticker.Chan():
			s.sweep(ctx)
		}
	}
}

// sweep queries every handler for due drafts and enqueues the ones not
// already in flight. Per-handler errors are logged and isolated so one
// failing runtime never starves the others.
func (s *Sweeper) sweep(ctx context.Context) {
	for _, h := range s.handlers {
		due, err := h.DueDrafts(ctx, s.batchLimit)
		if err != nil {
			log.Error().
				Err(err).
				Str("instance", s.instanceID).
				Str("kind", h.Kind()).
				Msg("failed to fetch due drafts")
			continue
		}
		for _, draftID := range due {
			if !s.markInFlight(draftID) {
				continue
			}
			select {
			case s.workCh <- work{handler: h, draftID: draftID}:
			default:
				// Channel full: drop and let the next tick retry.
				s.clearInFlight(draftID)
				log.Warn().
					Str("instance", s.instanceID).
					Str("draft_id", draftID.String()).
					Msg("sweeper work channel full")
			}
		}
	}
}

func (s *Sweeper) worker(ctx context.Context, wg *sync.WaitGroup, workerID int) {
	defer wg.Done()

	for w := range s.workCh {
		err := w.handler.HandleDeadline(ctx, w.draftID)
		s.clearInFlight(w.draftID)
		if err != nil && !apperrors.IsConflict(err) {
			log.Error().
				Err(err).
				Str("instance", s.instanceID).
				Str("kind", w.handler.Kind()).
				Str("draft_id", w.draftID.String()).
				Int("worker_id", workerID).
				Msg("deadline handling failed")
			continue
		}
		log.Debug().
			Str("instance", s.instanceID).
			Str("kind", w.handler.Kind()).
			Str("draft_id", w.draftID.String()).
			Int("worker_id", workerID).
			Msg("deadline handled")
	}
}

func (s *Sweeper) markInFlight(draftID uuid.UUID) bool {
	s.inFlightMu.Lock()
	defer s.inFlightMu.Unlock()
	if s.inFlight[draftID] {
		return false
	}
	s.inFlight[draftID] = true
	return true
}

func (s *Sweeper) clearInFlight(draftID uuid.UUID) {
	s.inFlightMu.Lock()
	defer s.inFlightMu.Unlock()
	delete(s.inFlight, draftID)
}
