package repository

import (
	"context"
	"fmt"

	"github.com/aatrey56/fpl-squad-planner/internal/database"
	"github.com/aatrey56/fpl-squad-planner/internal/model"
)

// SaveHistory upserts records keyed by (player, fixture).
func (r *Repository) SaveHistory(ctx context.Context, records []model.GameRecord) error {
	return r.withTx(ctx, func(tx *database.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `INSERT INTO player_history (player_id, round, fixture_id,
				opponent_team, was_home, minutes, goals_scored, assists, clean_sheets, goals_conceded, saves,
				bonus, yellow_cards, red_cards, own_goals, threat, creativity, total_points)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (player_id, fixture_id) DO UPDATE SET round = excluded.round,
				opponent_team = excluded.opponent_team, was_home = excluded.was_home,
				minutes = excluded.minutes, goals_scored = excluded.goals_scored, assists = excluded.assists,
				clean_sheets = excluded.clean_sheets, goals_conceded = excluded.goals_conceded,
				saves = excluded.saves, bonus = excluded.bonus, yellow_cards = excluded.yellow_cards,
				red_cards = excluded.red_cards, own_goals = excluded.own_goals, threat = excluded.threat,
				creativity = excluded.creativity, total_points = excluded.total_points`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, g := range records {
			if _, err := stmt.ExecContext(ctx, g.PlayerID, g.Round, g.FixtureID, g.OpponentTeam,
				boolInt(g.WasHome), g.Minutes, g.Goals, g.Assists, g.CleanSheet, g.GoalsConceded, g.Saves,
				g.Bonus, g.YellowCards, g.RedCards, g.OwnGoals, g.Threat, g.Creativity, g.TotalPoints); err != nil {
				return fmt.Errorf("save history %d/%d: %w", g.PlayerID, g.FixtureID, err)
			}
		}
		return nil
	})
}

const historyQuery = `SELECT player_id, round, fixture_id, opponent_team, was_home, minutes, goals_scored,
	assists, clean_sheets, goals_conceded, saves, bonus, yellow_cards, red_cards, own_goals, threat,
	creativity, total_points FROM player_history`

func (r *Repository) queryHistory(ctx context.Context, query string, args ...any) ([]model.GameRecord, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.GameRecord
	for rows.Next() {
		var (
			g    model.GameRecord
			home int
		)
		if err := rows.Scan(&g.PlayerID, &g.Round, &g.FixtureID, &g.OpponentTeam, &home, &g.Minutes,
			&g.Goals, &g.Assists, &g.CleanSheet, &g.GoalsConceded, &g.Saves, &g.Bonus, &g.YellowCards,
			&g.RedCards, &g.OwnGoals, &g.Threat, &g.Creativity, &g.TotalPoints); err != nil {
			return nil, err
		}
		g.WasHome = home != 0
		out = append(out, g)
	}
	return out, rows.Err()
}

func (r *Repository) History(ctx context.Context, playerID int) ([]model.GameRecord, error) {
	return r.queryHistory(ctx, historyQuery+` WHERE player_id = ? ORDER BY round, fixture_id`, playerID)
}

// AllHistory returns every record ordered by player, round and fixture.
func (r *Repository) AllHistory(ctx context.Context) ([]model.GameRecord, error) {
	return r.queryHistory(ctx, historyQuery+` ORDER BY player_id, round, fixture_id`)
}
