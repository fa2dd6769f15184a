package main

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"

	"github.com/gridironhq/draftd/internal/derby"
	"github.com/gridironhq/draftd/internal/draft"
	"github.com/gridironhq/draftd/internal/draftorder"
	"github.com/gridironhq/draftd/internal/gateways"
	"github.com/gridironhq/draftd/internal/matchup"
	"github.com/gridironhq/draftd/internal/queue"
	"github.com/gridironhq/draftd/internal/sweeper"
)

type Services struct {
	Drafts   *draft.App
	Derbies  *derby.App
	Matchups *matchup.App
	Queues   *queue.App
}

// setupServices wires the dependency chain: pool and gateways into
// repositories, repositories into app layers.
func setupServices(pool *pgxpool.Pool, config *Config, notifier *gateways.ChatNotifier) *Services {
	clock := clockwork.NewRealClock()
	gen := draftorder.NewGenerator()

	leagueClient := gateways.NewLeagueClient(config.Gateways.LeagueURL)
	playerClient := gateways.NewPlayerPoolClient(config.Gateways.PlayerPoolURL)

	queueRepo := queue.NewRepository(pool)
	queueApp := queue.NewApp(queueRepo, playerClient)

	draftRepo := draft.NewRepository(pool)
	draftApp := draft.NewApp(draftRepo, queueApp, playerClient, leagueClient, notifier, clock, gen)

	derbyRepo := derby.NewRepository(pool)
	derbyApp := derby.NewApp(derbyRepo, leagueClient, notifier, clock, gen)

	matchupRepo := matchup.NewRepository(pool)
	matchupApp := matchup.NewApp(matchupRepo, leagueClient, notifier, clock, gen)

	return &Services{
		Drafts:   draftApp,
		Derbies:  derbyApp,
		Matchups: matchupApp,
		Queues:   queueApp,
	}
}

// setupSweepers builds one sweep loop for the turn-based drafts and a
// faster one for derbies, where slot picks resolve in seconds.
func setupSweepers(config *Config, services *Services) []*sweeper.Sweeper {
	cfg := sweeper.Config{
		Interval:   time.Duration(config.Sweeper.Interval),
		BatchLimit: config.Sweeper.BatchLimit,
		NumWorkers: config.Sweeper.NumWorkers,
	}

	derbyCfg := cfg
	derbyCfg.Interval = time.Duration(config.Sweeper.DerbyInterval)
	if derbyCfg.Interval == 0 {
		derbyCfg.Interval = 500 * time.Millisecond
	}

	return []*sweeper.Sweeper{
		sweeper.New(cfg, clockwork.NewRealClock(),
			sweeper.NewHandler("draft", services.Drafts.FetchDueDrafts, services.Drafts.HandleDeadline),
			sweeper.NewHandler("matchup", services.Matchups.FetchDueDrafts, services.Matchups.HandleDeadline),
		),
		sweeper.New(derbyCfg, clockwork.NewRealClock(),
			sweeper.NewHandler("derby", func(ctx context.Context, limit int32) ([]uuid.UUID, error) {
				return services.Derbies.FetchDueDerbies(ctx, int(limit))
			}, services.Derbies.HandleDeadline),
		),
	}
}
