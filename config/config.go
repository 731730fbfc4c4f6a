package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Black-And-White-Club/tournament-engine/app/shared/observability"
)

// Config struct to hold the configuration settings
type Config struct {
	Postgres      PostgresConfig      `yaml:"postgres"`
	NATS          NATSConfig          `yaml:"nats"`
	Observability ObservabilityConfig `yaml:"observability"`
	Engine        EngineConfig        `yaml:"engine"`
}

// PostgresConfig holds Postgres configuration.
type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

// NATSConfig holds NATS configuration.
type NATSConfig struct {
	URL string `yaml:"url"`
	// NkeySeed authenticates the connection with an nkey when set.
	NkeySeed string `yaml:"nkey_seed"`
}

// ObservabilityConfig holds configuration for observability components
type ObservabilityConfig struct {
	MetricsAddress string `yaml:"metrics_address"`
	Environment    string `yaml:"environment"`
	LogLevel       string `yaml:"log_level"`
}

// EngineConfig tunes the periodic jobs and match dispatch.
type EngineConfig struct {
	MatchmakingInterval  time.Duration `yaml:"matchmaking_interval"`
	HousekeepingInterval time.Duration `yaml:"housekeeping_interval"`
	RoundSweepInterval   time.Duration `yaml:"round_sweep_interval"`
	MaxWorkers           int           `yaml:"max_workers"`
	DispatchRate         float64       `yaml:"dispatch_rate"`
	DispatchBurst        int           `yaml:"dispatch_burst"`
}

const (
	defaultMatchmakingInterval  = 10 * time.Second
	defaultHousekeepingInterval = time.Minute
	defaultRoundSweepInterval   = 30 * time.Second
	defaultMaxWorkers           = 10
	defaultDispatchRate         = 50
	defaultDispatchBurst        = 100
)

// LoadConfig loads the configuration from a YAML file.
func LoadConfig(filename string) (*Config, error) {
	// Try reading configuration from the file first
	data, err := os.ReadFile(filename)
	if err != nil {
		// If the file is not found, try loading from environment variables
		return loadConfigFromEnv()
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// --- OVERRIDE WITH ENV VARS IF PRESENT ---
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Postgres.DSN = v
	}
	if v := os.Getenv("NATS_URL"); v != "" {
		cfg.NATS.URL = v
	}
	if v := os.Getenv("NATS_NKEY_SEED"); v != "" {
		cfg.NATS.NkeySeed = v
	}
	if v := os.Getenv("METRICS_ADDRESS"); v != "" {
		cfg.Observability.MetricsAddress = v
	}
	if v := os.Getenv("ENV"); v != "" {
		cfg.Observability.Environment = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Observability.LogLevel = v
	}
	if err := applyEngineEnv(&cfg.Engine); err != nil {
		return nil, err
	}

	cfg.Engine.applyDefaults()
	return &cfg, nil
}

// loadConfigFromEnv loads the configuration from environment variables.
func loadConfigFromEnv() (*Config, error) {
	var cfg Config

	// Load Postgres DSN
	cfg.Postgres.DSN = os.Getenv("DATABASE_URL")
	if cfg.Postgres.DSN == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable not set")
	}

	// Load NATS URL
	cfg.NATS.URL = os.Getenv("NATS_URL")
	if cfg.NATS.URL == "" {
		return nil, fmt.Errorf("NATS_URL environment variable not set")
	}
	cfg.NATS.NkeySeed = os.Getenv("NATS_NKEY_SEED")

	cfg.Observability.MetricsAddress = os.Getenv("METRICS_ADDRESS") // optional; empty disables metrics
	cfg.Observability.Environment = os.Getenv("ENV")
	cfg.Observability.LogLevel = os.Getenv("LOG_LEVEL")

	if err := applyEngineEnv(&cfg.Engine); err != nil {
		return nil, err
	}

	cfg.Engine.applyDefaults()
	return &cfg, nil
}

func applyEngineEnv(e *EngineConfig) error {
	durations := map[string]*time.Duration{
		"MATCHMAKING_INTERVAL":  &e.MatchmakingInterval,
		"HOUSEKEEPING_INTERVAL": &e.HousekeepingInterval,
		"ROUND_SWEEP_INTERVAL":  &e.RoundSweepInterval,
	}
	for key, dst := range durations {
		if v := os.Getenv(key); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("invalid %s value: %w", key, err)
			}
			*dst = d
		}
	}

	if v := os.Getenv("ENGINE_MAX_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid ENGINE_MAX_WORKERS value: %w", err)
		}
		e.MaxWorkers = n
	}
	if v := os.Getenv("DISPATCH_RATE"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid DISPATCH_RATE value: %w", err)
		}
		e.DispatchRate = f
	}
	if v := os.Getenv("DISPATCH_BURST"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid DISPATCH_BURST value: %w", err)
		}
		e.DispatchBurst = n
	}
	return nil
}

func (e *EngineConfig) applyDefaults() {
	if e.MatchmakingInterval <= 0 {
		e.MatchmakingInterval = defaultMatchmakingInterval
	}
	if e.HousekeepingInterval <= 0 {
		e.HousekeepingInterval = defaultHousekeepingInterval
	}
	if e.RoundSweepInterval <= 0 {
		e.RoundSweepInterval = defaultRoundSweepInterval
	}
	if e.MaxWorkers <= 0 {
		e.MaxWorkers = defaultMaxWorkers
	}
	if e.DispatchRate <= 0 {
		e.DispatchRate = defaultDispatchRate
	}
	if e.DispatchBurst <= 0 {
		e.DispatchBurst = defaultDispatchBurst
	}
}

func ToObsConfig(appCfg *Config) observability.Config {
	return observability.Config{
		ServiceName:    "tournament-engine",
		Environment:    appCfg.Observability.Environment,
		Version:        "0.1.0", // Could inject via `ldflags`
		LogLevel:       appCfg.Observability.LogLevel,
		MetricsAddress: appCfg.Observability.MetricsAddress,
	}
}
