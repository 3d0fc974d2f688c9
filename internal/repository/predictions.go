package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/aatrey56/fpl-squad-planner/internal/database"
	"github.com/aatrey56/fpl-squad-planner/internal/model"
)

type Prediction struct {
	RunID          string  `json:"run_id"`
	PlayerID       int     `json:"player_id"`
	Round          int     `json:"gw"`
	ExpectedPoints float64 `json:"predicted_pts"`
	Opponent       int     `json:"opponent_team_id"`
	Home           bool    `json:"is_home"`
	Difficulty     int     `json:"difficulty"`
}

// SavePredictions replaces the stored predictions of every round present in projs.
func (r *Repository) SavePredictions(ctx context.Context, runID string, projs []model.Projection) error {
	return r.withTx(ctx, func(tx *database.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `INSERT INTO predictions (player_id, gw, run_id, predicted_pts,
				opponent_team_id, is_home, difficulty)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (player_id, gw) DO UPDATE SET run_id = excluded.run_id,
				predicted_pts = excluded.predicted_pts, opponent_team_id = excluded.opponent_team_id,
				is_home = excluded.is_home, difficulty = excluded.difficulty`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, p := range projs {
			if _, err := stmt.ExecContext(ctx, p.PlayerID, p.Round, runID, p.ExpectedPoints,
				p.Fixture.Opponent, boolInt(p.Fixture.Home), p.Fixture.Difficulty); err != nil {
				return fmt.Errorf("save prediction %d: %w", p.PlayerID, err)
			}
		}
		return nil
	})
}

// HasPredictions reports whether any prediction exists for gw.
func (r *Repository) HasPredictions(ctx context.Context, gw int) (bool, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM predictions WHERE gw = ?`, gw).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

// Predictions returns gw's predictions, best first, ties by player id.
func (r *Repository) Predictions(ctx context.Context, gw int) ([]Prediction, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT run_id, player_id, gw, predicted_pts, opponent_team_id,
		is_home, difficulty FROM predictions WHERE gw = ? ORDER BY predicted_pts DESC, player_id`, gw)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Prediction
	for rows.Next() {
		var (
			p    Prediction
			home int
		)
		if err := rows.Scan(&p.RunID, &p.PlayerID, &p.Round, &p.ExpectedPoints, &p.Opponent, &home,
			&p.Difficulty); err != nil {
			return nil, err
		}
		p.Home = home != 0
		out = append(out, p)
	}
	return out, rows.Err()
}

// SaveLineup replaces the stored lineup for the lineup's round.
func (r *Repository) SaveLineup(ctx context.Context, runID string, lu model.Lineup) error {
	now := r.now().Format(time.RFC3339)
	return r.withTx(ctx, func(tx *database.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM lineups WHERE gw = ?`, lu.Round); err != nil {
			return err
		}
		for _, p := range lu.Picks() {
			if _, err := tx.ExecContext(ctx, `INSERT INTO lineups (gw, player_id, run_id, slot, is_captain,
					is_vice, predicted_pts, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
				lu.Round, p.Projection.PlayerID, runID, p.Slot, boolInt(p.IsCaptain),
				boolInt(p.IsViceCaptain), p.Projection.ExpectedPoints, now); err != nil {
				return fmt.Errorf("save lineup pick %d: %w", p.Projection.PlayerID, err)
			}
		}
		return nil
	})
}

// Lineup returns the stored picks for gw in slot order, with player details joined in.
func (r *Repository) Lineup(ctx context.Context, gw int) ([]model.Pick, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT l.slot, l.is_captain, l.is_vice, l.predicted_pts,
			p.id, p.name, p.team_id, p.position, p.cost, p.status
		FROM lineups l JOIN players p ON p.id = l.player_id
		WHERE l.gw = ? ORDER BY l.slot`, gw)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Pick
	for rows.Next() {
		var (
			pk            model.Pick
			captain, vice int
			pos           int
			status        string
			pl            model.Player
		)
		if err := rows.Scan(&pk.Slot, &captain, &vice, &pk.Projection.ExpectedPoints,
			&pl.ID, &pl.Name, &pl.Team, &pos, &pl.Cost, &status); err != nil {
			return nil, err
		}
		pl.Position = model.Position(pos)
		pl.Status = model.Status(status)
		pk.Projection.PlayerID = pl.ID
		pk.Projection.Round = gw
		pk.Projection.Player = pl
		pk.IsCaptain = captain != 0
		pk.IsViceCaptain = vice != 0
		pk.Role = model.Starter
		if pk.Slot > 11 {
			pk.Role = model.Bench
		}
		out = append(out, pk)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("lineup for gw %d: %w", gw, ErrNotFound)
	}
	return out, nil
}

// LatestLineupRound is the highest gw with a stored lineup, or 0.
func (r *Repository) LatestLineupRound(ctx context.Context) (int, error) {
	var gw int
	err := r.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(gw), 0) FROM lineups`).Scan(&gw)
	return gw, err
}
