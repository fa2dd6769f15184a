package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/gridironhq/draftd/internal/gateways"
	"github.com/gridironhq/draftd/internal/outbox"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	config, err := loadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, dbCfg, err := setupDatabase(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to set up database")
	}
	defer pool.Close()

	jsCfg := outbox.DefaultJetStreamConfig()
	if config.NATS.URL != "" {
		jsCfg.URL = config.NATS.URL
	}
	if config.NATS.Stream != "" {
		jsCfg.StreamName = config.NATS.Stream
	}
	if config.NATS.SubjectPrefix != "" {
		jsCfg.SubjectPrefix = config.NATS.SubjectPrefix
	}
	publisher, err := outbox.NewJetStreamPublisher(jsCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to set up JetStream publisher")
	}
	defer publisher.Close()

	listenerCfg := outbox.DefaultListenerConfig()
	listenerCfg.DatabaseURL = dbCfg.DSN()
	if config.Outbox.NotifyChannel != "" {
		listenerCfg.NotifyChannel = config.Outbox.NotifyChannel
	}
	if config.Outbox.FallbackInterval > 0 {
		listenerCfg.FallbackInterval = time.Duration(config.Outbox.FallbackInterval)
	}
	listener, err := outbox.NewListener(outbox.NewRepository(pool), publisher, listenerCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to set up outbox listener")
	}

	notifier := gateways.NewChatNotifier(publisher.Conn(), config.Gateways.ChatSubjectPrefix)
	services := setupServices(pool, config, notifier)
	sweepers := setupSweepers(config, services)

	components := 1 + len(sweepers)
	errCh := make(chan error, components)
	go func() { errCh <- listener.Start(ctx) }()
	for _, sw := range sweepers {
		sw := sw
		go func() { errCh <- sw.Run(ctx) }()
	}

	log.Info().Msg("draftd started")

	received := 0
	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown requested")
	case err := <-errCh:
		received++
		if err != nil {
			log.Error().Err(err).Msg("component failed")
		}
	}

	stop()
	// Wait for the remaining components to finish shutting down.
	for ; received < components; received++ {
		if err := <-errCh; err != nil {
			log.Error().Err(err).Msg("component failed during shutdown")
		}
	}
}
