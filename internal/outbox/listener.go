package outbox

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/rs/zerolog/log"
)

type ListenerConfig struct {
	DatabaseURL      string        // Postgres DSN for LISTEN/NOTIFY
	NotifyChannel    string        // Channel name to LISTEN on
	FallbackInterval time.Duration // How often to poll for missed events
	MaxRetries       int
	RetryDelay       time.Duration
	PingInterval     time.Duration
	BatchSize        int32
}

func DefaultListenerConfig() ListenerConfig {
	return ListenerConfig{
		NotifyChannel:    "draft_outbox_events",
		FallbackInterval: 30 * time.Second,
		MaxRetries:       5,
		RetryDelay:       200 * time.Millisecond,
		PingInterval:     90 * time.Second,
		BatchSize:        100,
	}
}

// Publisher delivers a committed outbox event to the message bus.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Listener waits on Postgres NOTIFY for freshly committed outbox rows and
// publishes them, with a polling fallback for anything a notification
// missed.
type Listener struct {
	repo      *Repository
	listener  *pq.Listener
	publisher Publisher
	cfg       ListenerConfig
}

func NewListener(repo *Repository, publisher Publisher, cfg ListenerConfig) (*Listener, error) {
	l := pq.NewListener(
		cfg.DatabaseURL,
		10*time.Second,
		time.Minute,
		func(ev pq.ListenerEventType, err error) {
			if err != nil {
				log.Error().Err(err).Msg("listener event")
			}
		},
	)
	if err := l.Listen(cfg.NotifyChannel); err != nil {
		return nil, fmt.Errorf("failed to listen to channel: %w", err)
	}

	log.Info().Str("channel", cfg.NotifyChannel).Msg("listening for notifications")

	return &Listener{
		repo:      repo,
		listener:  l,
		publisher: publisher,
		cfg:       cfg,
	}, nil
}

func (l *Listener) Start(ctx context.Context) error {
	log.Info().
		Str("channel", l.cfg.NotifyChannel).
		Dur("fallback_interval", l.cfg.FallbackInterval).
		Msg("outbox listener started")

	pingTicker := time.NewTicker(l.cfg.PingInterval)
	fallbackTicker := time.NewTicker(l.cfg.FallbackInterval)
	defer pingTicker.Stop()
	defer fallbackTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("outbox listener shutting down")
			return l.Stop()
		case note := <-l.listener.Notify:
			if note == nil {
				// nil notification means the connection was lost; pq
				// reconnects on its own, the fallback poll covers the gap
				continue
			}
			if err := l.handleNotification(ctx, note.Extra); err != nil {
				log.Error().Err(err).Msg("failed to handle notification")
			}
		case <-fallbackTicker.C:
			if err := l.processUnsent(ctx); err != nil {
				log.Error().Err(err).Msg("failed to process unsent events")
			}
		case <-pingTicker.C:
			if err := l.listener.Ping(); err != nil {
				log.Error().Err(err).Msg("failed to ping listener")
			}
		}
	}
}

func (l *Listener) Stop() error {
	return l.listener.Close()
}

// handleNotification fetches the outbox row named by the NOTIFY payload and
// publishes it.
func (l *Listener) handleNotification(ctx context.Context, extra string) error {
	id, err := uuid.Parse(extra)
	if err != nil {
		return fmt.Errorf("invalid event ID in notification: %w", err)
	}

	ev, err := l.repo.FetchByID(ctx, id)
	if err != nil {
		// Row may already be sent by the fallback poll; nothing to do.
		log.Debug().Err(err).Str("event_id", id.String()).Msg("outbox event not fetchable")
		return nil
	}

	return l.publishAndMark(ctx, *ev)
}

func (l *Listener) processUnsent(ctx context.Context) error {
	unsent, err := l.repo.FetchUnsent(ctx, l.cfg.BatchSize)
	if err != nil {
		return fmt.Errorf("failed to fetch unsent outbox events: %w", err)
	}

	for _, ev := range unsent {
		if err := l.publishAndMark(ctx, ev); err != nil {
			log.Error().Err(err).Str("event_id", ev.ID.String()).Msg("failed to publish event")
		}
	}
	return nil
}

func (l *Listener) publishAndMark(ctx context.Context, ev Event) error {
	if err := l.publishWithRetry(ctx, ev); err != nil {
		return err
	}
	if err := l.repo.MarkSent(ctx, ev.ID); err != nil {
		log.Error().Err(err).Str("event_id", ev.ID.String()).Msg("failed to mark outbox event as sent")
		return err
	}
	log.Info().
		Str("event_id", ev.ID.String()).
		Str("event_type", ev.EventType).
		Msg("published and marked event as sent")
	return nil
}

func (l *Listener) publishWithRetry(ctx context.Context, ev Event) error {
	var lastErr error

	for attempt := 0; attempt <= l.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := l.cfg.RetryDelay * time.Duration(attempt)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		if err := l.publisher.Publish(ctx, ev); err != nil {
			lastErr = err
			log.Error().
				Err(err).
				Int("attempt", attempt+1).
				Str("event_id", ev.ID.String()).
				Msg("failed to publish, retrying")
			continue
		}
		return nil
	}

	return fmt.Errorf("publish failed after %d attempts: %w", l.cfg.MaxRetries+1, lastErr)
}
