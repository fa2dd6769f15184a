package gateways

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

// ChatNotifier publishes system chat messages over NATS. Delivery is best
// effort; callers treat failures as non-fatal.
type ChatNotifier struct {
	nc            *nats.Conn
	subjectPrefix string
}

func NewChatNotifier(nc *nats.Conn, subjectPrefix string) *ChatNotifier {
	if subjectPrefix == "" {
		subjectPrefix = "chat.system"
	}
	return &ChatNotifier{nc: nc, subjectPrefix: subjectPrefix}
}

type systemMessage struct {
	LeagueID uuid.UUID      `json:"league_id"`
	Text     string         `json:"text"`
	Metadata map[string]any `json:"metadata,omitempty"`
	SentAt   time.Time      `json:"sent_at"`
}

func (n *ChatNotifier) SendSystemMessage(_ context.Context, leagueID uuid.UUID, text string, metadata map[string]any) error {
	payload, err := json.Marshal(systemMessage{
		LeagueID: leagueID,
		Text:     text,
		Metadata: metadata,
		SentAt:   time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal system message: %w", err)
	}
	subject := fmt.Sprintf("%s.%s", n.subjectPrefix, leagueID)
	if err := n.nc.Publish(subject, payload); err != nil {
		return fmt.Errorf("failed to publish system message: %w", err)
	}
	return nil
}
