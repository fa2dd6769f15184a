package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"
)

type JetStreamConfig struct {
	URL             string
	StreamName      string
	SubjectPrefix   string
	MaxReconnects   int
	ReconnectWait   time.Duration
	MaxAge          time.Duration
	MaxMsgs         int64
	Replicas        int
	DuplicateWindow time.Duration
}

func DefaultJetStreamConfig() JetStreamConfig {
	return JetStreamConfig{
		URL:             nats.DefaultURL,
		StreamName:      "DRAFT_EVENTS",
		SubjectPrefix:   "draft.events",
		MaxReconnects:   -1,
		ReconnectWait:   2 * time.Second,
		MaxAge:          7 * 24 * time.Hour,
		MaxMsgs:         -1,
		Replicas:        1,
		DuplicateWindow: 2 * time.Hour,
	}
}

// JetStreamPublisher emits outbox events to a NATS JetStream stream. The
// outbox event ID doubles as the JetStream message ID, so redelivery after
// a listener crash dedupes at the stream.
type JetStreamPublisher struct {
	nc     *nats.Conn
	js     jetstream.JetStream
	config JetStreamConfig
}

func NewJetStreamPublisher(cfg JetStreamConfig) (*JetStreamPublisher, error) {
	opts := []nats.Option{
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}

	p := &JetStreamPublisher{nc: nc, js: js, config: cfg}

	if err := p.ensureStream(context.Background()); err != nil {
		nc.Close()
		return nil, fmt.Errorf("ensure stream: %w", err)
	}

	return p, nil
}

func (p *JetStreamPublisher) ensureStream(ctx context.Context) error {
	sc := jetstream.StreamConfig{
		Name:        p.config.StreamName,
		Description: "Draft event stream for outbox relay",
		Subjects:    []string{fmt.Sprintf("%s.>", p.config.SubjectPrefix)},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      p.config.MaxAge,
		MaxMsgs:     p.config.MaxMsgs,
		Storage:     jetstream.FileStorage,
		Replicas:    p.config.Replicas,
		Duplicates:  p.config.DuplicateWindow,
	}

	if _, err := p.js.Stream(ctx, p.config.StreamName); err != nil {
		if _, err := p.js.CreateStream(ctx, sc); err != nil {
			return fmt.Errorf("create stream: %w", err)
		}
		log.Info().Str("stream", p.config.StreamName).Msg("created JetStream stream")
		return nil
	}

	if _, err := p.js.UpdateStream(ctx, sc); err != nil {
		return fmt.Errorf("update stream: %w", err)
	}
	return nil
}

func (p *JetStreamPublisher) Publish(ctx context.Context, event Event) error {
	subject := fmt.Sprintf("%s.%s", p.config.SubjectPrefix, event.EventType)

	env := map[string]any{
		"eventId":   event.ID.String(),
		"eventType": event.EventType,
		"draftId":   event.DraftID.String(),
		"timestamp": time.Now().UTC(),
		"payload":   json.RawMessage(event.Payload),
	}
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	ack, err := p.js.PublishMsg(ctx, &nats.Msg{
		Subject: subject,
		Data:    data,
		Header: nats.Header{
			"Event-Type": []string{event.EventType},
			"Draft-ID":   []string{event.DraftID.String()},
			"Event-ID":   []string{event.ID.String()},
		},
	},
		jetstream.WithMsgID(event.ID.String()),
		jetstream.WithExpectStream(p.config.StreamName),
	)
	if err != nil {
		return fmt.Errorf("publish to JetStream: %w", err)
	}

	log.Info().
		Str("subject", subject).
		Str("event_id", event.ID.String()).
		Uint64("sequence", ack.Sequence).
		Msg("published to JetStream")

	return nil
}

// Conn exposes the underlying NATS connection for co-located publishers.
func (p *JetStreamPublisher) Conn() *nats.Conn {
	return p.nc
}

func (p *JetStreamPublisher) Close() error {
	if p.nc != nil {
		p.nc.Close()
	}
	return nil
}
