package main

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/gridironhq/draftd/internal/dbconfig"
)

func setupDatabase(ctx context.Context) (*pgxpool.Pool, dbconfig.Config, error) {
	cfg := dbconfig.NewConfigFromEnv()

	pool, err := cfg.Connect(ctx)
	if err != nil {
		return nil, cfg, fmt.Errorf("failed to connect to database: %w", err)
	}

	log.Info().
		Str("host", cfg.Host).
		Int("port", cfg.Port).
		Str("database", cfg.Database).
		Msg("connected to database")
	return pool, cfg, nil
}
