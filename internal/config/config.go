// Package config loads runtime settings from the environment and an optional .env file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DataDir   string // raw cache, snapshots and dashboard output
	DBDriver  string // sqlite or postgres
	DBDSN     string
	APIBase   string
	UserAgent string

	Budget        int // tenths of a million
	ScoringRules  string
	SolverTimeout time.Duration

	FetchWorkers int
	FetchSleep   time.Duration

	WebhookURL string
	MCPAPIKey  string
	Schedule   string // cron specs with seconds, separated by ';'

	LogLevel  string
	LogPretty bool
}

// DefaultSchedule runs after the Tuesday price update and before the Friday deadline.
const DefaultSchedule = "CRON_TZ=America/New_York 0 0 11 * * TUE;CRON_TZ=America/New_York 0 0 19 * * FRI"

// Load reads .env if present, then the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	dataDir, err := filepath.Abs(getEnv("FPL_DATA_DIR", "data"))
	if err != nil {
		return nil, fmt.Errorf("resolve data directory: %w", err)
	}

	cfg := &Config{
		DataDir:       dataDir,
		DBDriver:      getEnv("FPL_DB_DRIVER", "sqlite"),
		DBDSN:         getEnv("FPL_DB_DSN", ""),
		APIBase:       getEnv("FPL_API_BASE", "https://fantasy.premierleague.com/api"),
		UserAgent:     getEnv("FPL_USER_AGENT", "fpl-squad-planner/1.0"),
		Budget:        getEnvAsInt("FPL_BUDGET", 1000),
		ScoringRules:  getEnv("FPL_SCORING_RULES", ""),
		SolverTimeout: getEnvAsDuration("FPL_SOLVER_TIMEOUT", 60*time.Second),
		FetchWorkers:  getEnvAsInt("FPL_FETCH_WORKERS", 8),
		FetchSleep:    getEnvAsDuration("FPL_FETCH_SLEEP", 100*time.Millisecond),
		WebhookURL:    getEnv("FPL_WEBHOOK_URL", ""),
		MCPAPIKey:     getEnv("FPL_MCP_API_KEY", ""),
		Schedule:      getEnv("FPL_SCHEDULE", DefaultSchedule),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogPretty:     getEnvAsBool("LOG_PRETTY", false),
	}
	if cfg.DBDSN == "" && cfg.DBDriver == "sqlite" {
		cfg.DBDSN = filepath.Join(cfg.DataDir, "fpl.db")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.DBDriver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("FPL_DB_DRIVER must be sqlite or postgres, got %q", c.DBDriver)
	}
	if c.DBDSN == "" {
		return fmt.Errorf("FPL_DB_DSN is required for %s", c.DBDriver)
	}
	if c.Budget <= 0 {
		return fmt.Errorf("FPL_BUDGET must be positive, got %d", c.Budget)
	}
	if c.FetchWorkers <= 0 {
		return fmt.Errorf("FPL_FETCH_WORKERS must be positive, got %d", c.FetchWorkers)
	}
	if c.SolverTimeout <= 0 {
		return fmt.Errorf("FPL_SOLVER_TIMEOUT must be positive")
	}
	return nil
}

// RawDir holds cached API responses.
func (c *Config) RawDir() string { return filepath.Join(c.DataDir, "raw") }

// SnapshotDir holds msgpack run snapshots.
func (c *Config) SnapshotDir() string { return filepath.Join(c.DataDir, "snapshots") }

// DashboardPath is the data.json consumed by the dashboard page.
func (c *Config) DashboardPath() string { return filepath.Join(c.DataDir, "dashboard", "data.json") }

// Schedules splits Schedule into individual cron specs.
func (c *Config) Schedules() []string {
	var out []string
	for _, spec := range strings.Split(c.Schedule, ";") {
		if spec = strings.TrimSpace(spec); spec != "" {
			out = append(out, spec)
		}
	}
	return out
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
