package gateways

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// LeagueClient resolves league membership and commissioner rights from the
// league service.
type LeagueClient struct {
	*baseClient
}

func NewLeagueClient(baseURL string) *LeagueClient {
	return &LeagueClient{baseClient: newBaseClient(baseURL)}
}

type leagueRostersResponse struct {
	RosterIDs []uuid.UUID `json:"roster_ids"`
}

func (c *LeagueClient) ListRosterIDs(ctx context.Context, leagueID uuid.UUID) ([]uuid.UUID, error) {
	body, err := c.get(ctx, fmt.Sprintf("/leagues/%s/rosters", leagueID))
	if err != nil {
		return nil, fmt.Errorf("failed to list league rosters: %w", err)
	}
	var resp leagueRostersResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal roster response: %w", err)
	}
	return resp.RosterIDs, nil
}

type commissionerResponse struct {
	CommissionerRosterID uuid.UUID `json:"commissioner_roster_id"`
}

func (c *LeagueClient) IsCommissioner(ctx context.Context, leagueID, rosterID uuid.UUID) (bool, error) {
	body, err := c.get(ctx, fmt.Sprintf("/leagues/%s/commissioner", leagueID))
	if err != nil {
		return false, fmt.Errorf("failed to get league commissioner: %w", err)
	}
	var resp commissionerResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return false, fmt.Errorf("failed to unmarshal commissioner response: %w", err)
	}
	return resp.CommissionerRosterID == rosterID, nil
}
