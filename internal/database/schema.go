package database

import (
	"context"
	"fmt"
)

// schema works on both SQLite and Postgres. Booleans are stored as 0/1 integers and timestamps as
// RFC 3339 text.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS teams (
		id         INTEGER PRIMARY KEY,
		name       TEXT NOT NULL,
		short_name TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS players (
		id         INTEGER PRIMARY KEY,
		name       TEXT NOT NULL,
		team_id    INTEGER NOT NULL,
		position   INTEGER NOT NULL,
		cost       INTEGER NOT NULL,
		status     TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS player_history (
		player_id      INTEGER NOT NULL,
		round          INTEGER NOT NULL,
		fixture_id     INTEGER NOT NULL,
		opponent_team  INTEGER NOT NULL,
		was_home       INTEGER NOT NULL,
		minutes        INTEGER NOT NULL,
		goals_scored   INTEGER NOT NULL,
		assists        INTEGER NOT NULL,
		clean_sheets   INTEGER NOT NULL,
		goals_conceded INTEGER NOT NULL,
		saves          INTEGER NOT NULL,
		bonus          INTEGER NOT NULL,
		yellow_cards   INTEGER NOT NULL,
		red_cards      INTEGER NOT NULL,
		own_goals      INTEGER NOT NULL,
		threat         DOUBLE PRECISION NOT NULL,
		creativity     DOUBLE PRECISION NOT NULL,
		total_points   INTEGER NOT NULL,
		PRIMARY KEY (player_id, fixture_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_player_history_round ON player_history (player_id, round)`,
	`CREATE TABLE IF NOT EXISTS fixtures (
		id                INTEGER PRIMARY KEY,
		round             INTEGER NOT NULL,
		team_h            INTEGER NOT NULL,
		team_a            INTEGER NOT NULL,
		team_h_difficulty INTEGER NOT NULL,
		team_a_difficulty INTEGER NOT NULL,
		finished          INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_fixtures_round ON fixtures (round)`,
	`CREATE TABLE IF NOT EXISTS predictions (
		player_id        INTEGER NOT NULL,
		gw               INTEGER NOT NULL,
		run_id           TEXT NOT NULL,
		predicted_pts    DOUBLE PRECISION NOT NULL,
		opponent_team_id INTEGER NOT NULL,
		is_home          INTEGER NOT NULL,
		difficulty       INTEGER NOT NULL,
		PRIMARY KEY (player_id, gw)
	)`,
	`CREATE TABLE IF NOT EXISTS lineups (
		gw            INTEGER NOT NULL,
		player_id     INTEGER NOT NULL,
		run_id        TEXT NOT NULL,
		slot          INTEGER NOT NULL,
		is_captain    INTEGER NOT NULL,
		is_vice       INTEGER NOT NULL,
		predicted_pts DOUBLE PRECISION NOT NULL,
		created_at    TEXT NOT NULL,
		PRIMARY KEY (gw, player_id)
	)`,
}

// Migrate creates missing tables and indexes.
func (db *DB) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
