// Package points totals the realised score of a stored lineup from live gameweek stats.
package points

import (
	"time"

	"github.com/aatrey56/fpl-squad-planner/internal/model"
)

type LiveStats struct {
	Minutes     int `json:"minutes"`
	TotalPoints int `json:"total_points"`
}

type PlayerPoints struct {
	Element    int     `json:"element"`
	Name       string  `json:"name"`
	Slot       int     `json:"slot"`
	Minutes    int     `json:"minutes"`
	Points     int     `json:"points"`
	Multiplier int     `json:"multiplier"`
	Total      int     `json:"total"`
	Predicted  float64 `json:"predicted"`
}

type Result struct {
	Gameweek       int            `json:"gameweek"`
	GeneratedAtUTC string         `json:"generated_at_utc"`
	Players        []PlayerPoints `json:"players"`
	TotalPoints    int            `json:"total_points"`
	Predicted      float64        `json:"predicted"`
}

// BuildResult scores the starters (slots 1-11); the captain's points count twice.
// Players missing from live score zero.
func BuildResult(gw int, picks []model.Pick, liveByElement map[int]LiveStats) *Result {
	players := make([]PlayerPoints, 0, 11)
	total := 0
	predicted := 0.0

	for _, p := range picks {
		if p.Slot > 11 || p.Role != model.Starter {
			continue
		}
		live := liveByElement[p.Projection.PlayerID]
		pp := PlayerPoints{
			Element:    p.Projection.PlayerID,
			Name:       p.Projection.Player.Name,
			Slot:       p.Slot,
			Minutes:    live.Minutes,
			Points:     live.TotalPoints,
			Multiplier: p.Multiplier(),
			Total:      live.TotalPoints * p.Multiplier(),
			Predicted:  p.Projection.ExpectedPoints * float64(p.Multiplier()),
		}
		players = append(players, pp)
		total += pp.Total
		predicted += pp.Predicted
	}

	return &Result{
		Gameweek:       gw,
		GeneratedAtUTC: time.Now().UTC().Format(time.RFC3339),
		Players:        players,
		TotalPoints:    total,
		Predicted:      predicted,
	}
}
