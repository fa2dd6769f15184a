package gateways

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// PlayerPoolClient answers availability and ranking questions from the
// player pool service.
type PlayerPoolClient struct {
	*baseClient
}

func NewPlayerPoolClient(baseURL string) *PlayerPoolClient {
	return &PlayerPoolClient{baseClient: newBaseClient(baseURL)}
}

type availabilityResponse struct {
	Available bool `json:"available"`
}

func (c *PlayerPoolClient) IsPlayerAvailable(ctx context.Context, draftID, playerID uuid.UUID) (bool, error) {
	body, err := c.get(ctx, fmt.Sprintf("/drafts/%s/players/%s/availability", draftID, playerID))
	if err != nil {
		return false, fmt.Errorf("failed to check player availability: %w", err)
	}
	var resp availabilityResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return false, fmt.Errorf("failed to unmarshal availability response: %w", err)
	}
	return resp.Available, nil
}

type bestAvailableResponse struct {
	PlayerID uuid.UUID `json:"player_id"`
}

func (c *PlayerPoolClient) BestAvailable(ctx context.Context, draftID uuid.UUID) (uuid.UUID, error) {
	body, err := c.get(ctx, fmt.Sprintf("/drafts/%s/players/best-available", draftID))
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to get best available player: %w", err)
	}
	var resp bestAvailableResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return uuid.Nil, fmt.Errorf("failed to unmarshal best available response: %w", err)
	}
	return resp.PlayerID, nil
}

type availablePlayersResponse struct {
	PlayerIDs []uuid.UUID `json:"player_ids"`
}

func (c *PlayerPoolClient) ListAvailablePlayers(ctx context.Context, draftID uuid.UUID) ([]uuid.UUID, error) {
	body, err := c.get(ctx, fmt.Sprintf("/drafts/%s/players/available", draftID))
	if err != nil {
		return nil, fmt.Errorf("failed to list available players: %w", err)
	}
	var resp availablePlayersResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal available players response: %w", err)
	}
	return resp.PlayerIDs, nil
}
