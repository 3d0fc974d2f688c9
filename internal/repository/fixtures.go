package repository

import (
	"context"
	"fmt"

	"github.com/aatrey56/fpl-squad-planner/internal/database"
	"github.com/aatrey56/fpl-squad-planner/internal/model"
)

func (r *Repository) SaveFixtures(ctx context.Context, fixtures []model.Fixture) error {
	return r.withTx(ctx, func(tx *database.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `INSERT INTO fixtures (id, round, team_h, team_a,
				team_h_difficulty, team_a_difficulty, finished)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (id) DO UPDATE SET round = excluded.round, team_h = excluded.team_h,
				team_a = excluded.team_a, team_h_difficulty = excluded.team_h_difficulty,
				team_a_difficulty = excluded.team_a_difficulty, finished = excluded.finished`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, f := range fixtures {
			if _, err := stmt.ExecContext(ctx, f.ID, f.Round, f.HomeTeam, f.AwayTeam,
				f.HomeDifficulty, f.AwayDifficulty, boolInt(f.Finished)); err != nil {
				return fmt.Errorf("save fixture %d: %w", f.ID, err)
			}
		}
		return nil
	})
}

// Fixtures returns the fixtures of one round ordered by id.
func (r *Repository) Fixtures(ctx context.Context, round int) ([]model.Fixture, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, round, team_h, team_a, team_h_difficulty,
		team_a_difficulty, finished FROM fixtures WHERE round = ? ORDER BY id`, round)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Fixture
	for rows.Next() {
		var (
			f        model.Fixture
			finished int
		)
		if err := rows.Scan(&f.ID, &f.Round, &f.HomeTeam, &f.AwayTeam, &f.HomeDifficulty,
			&f.AwayDifficulty, &finished); err != nil {
			return nil, err
		}
		f.Finished = finished != 0
		out = append(out, f)
	}
	return out, rows.Err()
}

func (r *Repository) UpcomingFixtures(ctx context.Context, round int) ([]model.FixtureContext, error) {
	fixtures, err := r.Fixtures(ctx, round)
	if err != nil {
		return nil, err
	}
	return model.FixtureContexts(fixtures, round), nil
}

// NextRound is the earliest round with an unfinished fixture, or 0 when none remain.
func (r *Repository) NextRound(ctx context.Context) (int, error) {
	var round int
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(MIN(round), 0) FROM fixtures WHERE finished = 0 AND round > 0`).Scan(&round)
	return round, err
}
