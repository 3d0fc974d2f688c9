package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/aatrey56/fpl-squad-planner/internal/database"
	"github.com/aatrey56/fpl-squad-planner/internal/model"
)

// PriceChange is a cost movement detected while saving players.
type PriceChange struct {
	Player  model.Player `json:"player"`
	OldCost int          `json:"old_cost"`
	NewCost int          `json:"new_cost"`
}

func (r *Repository) SaveTeams(ctx context.Context, teams []model.Team) error {
	return r.withTx(ctx, func(tx *database.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `INSERT INTO teams (id, name, short_name) VALUES (?, ?, ?)
			ON CONFLICT (id) DO UPDATE SET name = excluded.name, short_name = excluded.short_name`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, t := range teams {
			if _, err := stmt.ExecContext(ctx, t.ID, t.Name, t.ShortName); err != nil {
				return fmt.Errorf("save team %d: %w", t.ID, err)
			}
		}
		return nil
	})
}

func (r *Repository) Teams(ctx context.Context) ([]model.Team, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, short_name FROM teams ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Team
	for rows.Next() {
		var t model.Team
		if err := rows.Scan(&t.ID, &t.Name, &t.ShortName); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// SavePlayers upserts the roster and reports players whose cost moved since the last save.
func (r *Repository) SavePlayers(ctx context.Context, players []model.Player) ([]PriceChange, error) {
	var changes []PriceChange
	now := r.now().Format(time.RFC3339)
	err := r.withTx(ctx, func(tx *database.Tx) error {
		for _, p := range players {
			var old int
			err := tx.QueryRowContext(ctx, `SELECT cost FROM players WHERE id = ?`, p.ID).Scan(&old)
			switch {
			case errors.Is(err, sql.ErrNoRows):
			case err != nil:
				return fmt.Errorf("read player %d: %w", p.ID, err)
			case old != p.Cost:
				changes = append(changes, PriceChange{Player: p, OldCost: old, NewCost: p.Cost})
			}
			if _, err := tx.ExecContext(ctx, `INSERT INTO players (id, name, team_id, position, cost, status, updated_at)
				VALUES (?, ?, ?, ?, ?, ?, ?)
				ON CONFLICT (id) DO UPDATE SET name = excluded.name, team_id = excluded.team_id,
					position = excluded.position, cost = excluded.cost, status = excluded.status,
					updated_at = excluded.updated_at`,
				p.ID, p.Name, p.Team, int(p.Position), p.Cost, string(p.Status), now); err != nil {
				return fmt.Errorf("save player %d: %w", p.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(changes) > 0 {
		r.log.Info().Int("count", len(changes)).Msg("price changes detected")
	}
	return changes, nil
}

const playerColumns = `id, name, team_id, position, cost, status`

func scanPlayer(sc interface{ Scan(...any) error }) (model.Player, error) {
	var (
		p      model.Player
		pos    int
		status string
	)
	if err := sc.Scan(&p.ID, &p.Name, &p.Team, &pos, &p.Cost, &status); err != nil {
		return p, err
	}
	p.Position = model.Position(pos)
	p.Status = model.Status(status)
	return p, nil
}

// Players returns the roster ordered by id.
func (r *Repository) Players(ctx context.Context) ([]model.Player, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+playerColumns+` FROM players ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Player
	for rows.Next() {
		p, err := scanPlayer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *Repository) Player(ctx context.Context, id int) (model.Player, error) {
	p, err := scanPlayer(r.db.QueryRowContext(ctx, `SELECT `+playerColumns+` FROM players WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return p, fmt.Errorf("player %d: %w", id, ErrNotFound)
	}
	return p, err
}
