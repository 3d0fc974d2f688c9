package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("FPL_DATA_DIR", filepath.Join(dir, "data"))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, filepath.Join(dir, "data", "fpl.db"), cfg.DBDSN)
	assert.Equal(t, 1000, cfg.Budget)
	assert.Equal(t, 60*time.Second, cfg.SolverTimeout)
	assert.Equal(t, 8, cfg.FetchWorkers)
	assert.Equal(t, "https://fantasy.premierleague.com/api", cfg.APIBase)
	assert.Equal(t, filepath.Join(dir, "data", "raw"), cfg.RawDir())
	assert.Equal(t, filepath.Join(dir, "data", "dashboard", "data.json"), cfg.DashboardPath())
}

func TestLoadOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("FPL_DB_DRIVER", "postgres")
	t.Setenv("FPL_DB_DSN", "postgres://fpl@localhost/fpl?sslmode=disable")
	t.Setenv("FPL_BUDGET", "985")
	t.Setenv("FPL_SOLVER_TIMEOUT", "5s")
	t.Setenv("LOG_PRETTY", "true")
	t.Setenv("FPL_FETCH_WORKERS", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.DBDriver)
	assert.Equal(t, 985, cfg.Budget)
	assert.Equal(t, 5*time.Second, cfg.SolverTimeout)
	assert.True(t, cfg.LogPretty)
	assert.Equal(t, 8, cfg.FetchWorkers, "bad ints fall back to the default")
}

func TestValidate(t *testing.T) {
	base := func() Config {
		return Config{DBDriver: "sqlite", DBDSN: "x.db", Budget: 1000, FetchWorkers: 4, SolverTimeout: time.Second}
	}
	ok := base()
	assert.NoError(t, ok.Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"driver", func(c *Config) { c.DBDriver = "mysql" }},
		{"dsn", func(c *Config) { c.DBDSN = "" }},
		{"budget", func(c *Config) { c.Budget = 0 }},
		{"workers", func(c *Config) { c.FetchWorkers = 0 }},
		{"timeout", func(c *Config) { c.SolverTimeout = 0 }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := base()
			tc.mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestSchedules(t *testing.T) {
	c := Config{Schedule: DefaultSchedule}
	assert.Equal(t, []string{
		"CRON_TZ=America/New_York 0 0 11 * * TUE",
		"CRON_TZ=America/New_York 0 0 19 * * FRI",
	}, c.Schedules())

	c.Schedule = " ; "
	assert.Empty(t, c.Schedules())
}
