package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// duration parses "5s" style strings from YAML.
type duration time.Duration

func (d *duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = duration(parsed)
	return nil
}

type Config struct {
	Sweeper struct {
		Interval      duration `yaml:"interval"`
		DerbyInterval duration `yaml:"derby_interval"`
		BatchLimit    int32    `yaml:"batch_limit"`
		NumWorkers    int      `yaml:"num_workers"`
	} `yaml:"sweeper"`

	NATS struct {
		URL           string `yaml:"url"`
		Stream        string `yaml:"stream"`
		SubjectPrefix string `yaml:"subject_prefix"`
	} `yaml:"nats"`

	Outbox struct {
		NotifyChannel    string   `yaml:"notify_channel"`
		FallbackInterval duration `yaml:"fallback_interval"`
	} `yaml:"outbox"`

	Gateways struct {
		LeagueURL         string `yaml:"league_url"`
		PlayerPoolURL     string `yaml:"player_pool_url"`
		ChatSubjectPrefix string `yaml:"chat_subject_prefix"`
	} `yaml:"gateways"`
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func loadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Deploy-time settings can be overridden from the environment.
	config.NATS.URL = getEnv("NATS_URL", config.NATS.URL)
	config.Gateways.LeagueURL = getEnv("LEAGUE_SERVICE_URL", config.Gateways.LeagueURL)
	config.Gateways.PlayerPoolURL = getEnv("PLAYER_POOL_URL", config.Gateways.PlayerPoolURL)
	config.Sweeper.NumWorkers = getEnvAsInt("SWEEPER_WORKERS", config.Sweeper.NumWorkers)

	return &config, nil
}
