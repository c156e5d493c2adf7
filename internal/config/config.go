package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"demandwave/internal/market"
)

// WorkerConfig drives the scheduled wave runner.
type WorkerConfig struct {
	DatabaseURL string
	WaveEvery   time.Duration
	CronSpec    string
	TuningFile  string
	RunOnce     bool
	Engine      market.Config
}

// APIConfig drives the read-only operational API.
type APIConfig struct {
	Addr        string
	DatabaseURL string
	WaveEvery   time.Duration
}

func LoadWorkerFromEnv() (WorkerConfig, error) {
	cfg := WorkerConfig{
		DatabaseURL: strings.TrimSpace(os.Getenv("DATABASE_URL")),
		WaveEvery:   envDurationDefault("MARKET_WAVE_EVERY", 20*time.Minute),
		CronSpec:    envDefault("MARKET_WAVE_CRON", ""),
		TuningFile:  envDefault("MARKET_TUNING_FILE", ""),
		RunOnce:     envBoolDefault("MARKET_WORKER_RUN_ONCE", false),
	}
	if cfg.DatabaseURL == "" {
		return cfg, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.CronSpec == "" {
		cfg.CronSpec = "@every " + cfg.WaveEvery.String()
	}
	engine, err := LoadTuning(cfg.TuningFile)
	if err != nil {
		return cfg, err
	}
	cfg.Engine = engine
	return cfg, nil
}

func LoadAPIFromEnv() (APIConfig, error) {
	addr := os.Getenv("PORT")
	if addr != "" {
		if !strings.HasPrefix(addr, ":") {
			addr = ":" + addr
		}
	} else {
		addr = envDefault("MARKET_API_ADDR", ":8080")
	}
	cfg := APIConfig{
		Addr:        addr,
		DatabaseURL: strings.TrimSpace(os.Getenv("DATABASE_URL")),
		WaveEvery:   envDurationDefault("MARKET_WAVE_EVERY", 20*time.Minute),
	}
	if cfg.DatabaseURL == "" {
		return cfg, fmt.Errorf("DATABASE_URL is required")
	}
	return cfg, nil
}

// LoadTuning reads the engine tuning file if one is configured, applies
// environment overrides for the most commonly adjusted knobs, and validates
// the result before anything downstream can consume it.
func LoadTuning(path string) (market.Config, error) {
	cfg := market.DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return cfg, fmt.Errorf("read tuning file: %w", err)
		}
		if len(data) > 0 {
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse tuning file: %w", err)
			}
		}
	}

	if v := strings.TrimSpace(os.Getenv("MARKET_WAVE_BUDGET_CREDITS")); v != "" {
		budget, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return cfg, fmt.Errorf("parse MARKET_WAVE_BUDGET_CREDITS: %w", err)
		}
		cfg.GlobalBudgetMicros = market.CreditsToMicros(budget)
	}
	if v := strings.TrimSpace(os.Getenv("MARKET_PLANNER_STRATEGY")); v != "" {
		cfg.PlannerStrategy = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv("MARKET_NOISE_SEED")); v != "" {
		seed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return cfg, fmt.Errorf("parse MARKET_NOISE_SEED: %w", err)
		}
		cfg.NoiseSeed = seed
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func envDefault(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func envDurationDefault(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func envBoolDefault(key string, fallback bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
