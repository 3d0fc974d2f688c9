// Package calibrate derives per-position conversion ratios from season history.
package calibrate

import "github.com/aatrey56/fpl-squad-planner/internal/model"

// Ratios holds a ConversionRatio for every position.
type Ratios map[model.Position]model.ConversionRatio

type totals struct {
	goals, threat       float64
	assists, creativity float64
}

// Compute sums goals/threat and assists/creativity across every record of a known player,
// grouped by that player's position. A zero denominator yields a zero ratio.
func Compute(players []model.Player, history []model.GameRecord) Ratios {
	posByID := make(map[int]model.Position, len(players))
	for _, p := range players {
		posByID[p.ID] = p.Position
	}

	sums := make(map[model.Position]*totals, len(model.Positions))
	for _, pos := range model.Positions {
		sums[pos] = &totals{}
	}
	for _, rec := range history {
		pos, ok := posByID[rec.PlayerID]
		if !ok {
			continue
		}
		t, ok := sums[pos]
		if !ok {
			continue
		}
		t.goals += float64(rec.Goals)
		t.threat += rec.Threat
		t.assists += float64(rec.Assists)
		t.creativity += rec.Creativity
	}

	out := make(Ratios, len(model.Positions))
	for _, pos := range model.Positions {
		t := sums[pos]
		var r model.ConversionRatio
		if t.threat > 0 {
			r.ThreatToGoal = t.goals / t.threat
		}
		if t.creativity > 0 {
			r.CreativityToAssist = t.assists / t.creativity
		}
		out[pos] = r
	}
	return out
}
