package sweeper

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

type recordingHandler struct {
	kind string

	mu      sync.Mutex
	due     []uuid.UUID
	dueErr  error
	handled []uuid.UUID

	gate     chan struct{} // non-nil blocks HandleDeadline until closed
	handledC chan uuid.UUID
}

func newRecordingHandler(kind string) *recordingHandler {
	return &recordingHandler{kind: kind, handledC: make(chan uuid.UUID, 16)}
}

func (h *recordingHandler) Kind() string { return h.kind }

func (h *recordingHandler) DueDrafts(_ context.Context, _ int32) ([]uuid.UUID, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.dueErr != nil {
		return nil, h.dueErr
	}
	out := make([]uuid.UUID, len(h.due))
	copy(out, h.due)
	return out, nil
}

func (h *recordingHandler) HandleDeadline(_ context.Context, draftID uuid.UUID) error {
	if h.gate != nil {
		<-h.gate
	}
	h.mu.Lock()
	h.handled = append(h.handled, draftID)
	h.mu.Unlock()
	h.handledC <- draftID
	return nil
}

func (h *recordingHandler) handledCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.handled)
}

func waitHandled(t *testing.T, h *recordingHandler, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-h.handledC:
		case <-time.After(5 * time.Second):
			t.Fatalf("timed out waiting for %d deadlines, got %d", n, i)
		}
	}
}

func startSweeper(t *testing.T, clock *clockwork.FakeClock, handlers ...Handler) context.CancelFunc {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	s := New(Config{Interval: time.Second, NumWorkers: 2}, clock, handlers...)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = s.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	// Wait for the ticker to be registered before advancing.
	clock.BlockUntil(1)
	return cancel
}

func TestSweepDispatchesDueDrafts(t *testing.T) {
	clock := clockwork.NewFakeClock()
	h := newRecordingHandler("draft")
	id1, id2 := uuid.New(), uuid.New()
	h.due = []uuid.UUID{id1, id2}

	startSweeper(t, clock, h)
	clock.Advance(time.Second)
	waitHandled(t, h, 2)

	seen := map[uuid.UUID]bool{}
	h.mu.Lock()
	for _, id := range h.handled {
		seen[id] = true
	}
	h.mu.Unlock()
	if !seen[id1] || !seen[id2] {
		t.Errorf("handled = %v, want both %s and %s", h.handled, id1, id2)
	}
}

func TestSweepIsolatesFailingHandler(t *testing.T) {
	clock := clockwork.NewFakeClock()
	broken := newRecordingHandler("derby")
	broken.dueErr = errors.New("query failed")
	healthy := newRecordingHandler("matchup")
	id := uuid.New()
	healthy.due = []uuid.UUID{id}

	startSweeper(t, clock, broken, healthy)
	clock.Advance(time.Second)
	waitHandled(t, healthy, 1)

	if broken.handledCount() != 0 {
		t.Error("broken handler should not have processed anything")
	}
	if healthy.handledCount() != 1 {
		t.Errorf("healthy handler processed %d, want 1", healthy.handledCount())
	}
}

func TestInFlightDedupe(t *testing.T) {
	clock := clockwork.NewFakeClock()
	h := newRecordingHandler("draft")
	id := uuid.New()
	h.due = []uuid.UUID{id}
	h.gate = make(chan struct{})

	startSweeper(t, clock, h)

	// Two ticks fire while the worker is still blocked on the first
	// dispatch; the draft must not be enqueued again.
	clock.Advance(time.Second)
	clock.BlockUntil(1)
	clock.Advance(time.Second)
	clock.BlockUntil(1)

	close(h.gate)
	waitHandled(t, h, 1)

	// Drain any residual dispatch to make the count stable.
	select {
	case <-h.handledC:
		t.Fatal("draft was dispatched twice while in flight")
	case <-time.After(100 * time.Millisecond):
	}

	if got := h.handledCount(); got != 1 {
		t.Errorf("handled %d times, want 1", got)
	}
}
