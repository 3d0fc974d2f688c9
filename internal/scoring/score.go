package scoring

import "github.com/aatrey56/fpl-squad-planner/internal/model"

// Breakdown is expected points per scoring term.
type Breakdown struct {
	Minutes     float64 `json:"minutes"`
	Goals       float64 `json:"goals"`
	Assists     float64 `json:"assists"`
	CleanSheets float64 `json:"clean_sheets"`
	Saves       float64 `json:"saves"`
	Conceded    float64 `json:"conceded"`
	YellowCards float64 `json:"yellow_cards"`
	Bonus       float64 `json:"bonus"`
	Total       float64 `json:"total"`
}

func (r Ruleset) Breakdown(pos model.Position, s model.Stats) Breakdown {
	pr := r.Positions[pos]

	var b Breakdown
	switch {
	case s.Minutes >= r.FullMinutes:
		b.Minutes = r.FullMinutesPoints
	case s.Minutes > 0:
		b.Minutes = r.AppearancePoints
	}
	b.Goals = s.Goals * pr.Goal
	b.Assists = s.Assists * r.Assist
	b.CleanSheets = s.CleanSheets * pr.CleanSheet
	b.Saves = s.Saves / r.SavesPerPoint * r.SavePoints
	if pr.ConcededPenalty {
		b.Conceded = s.Conceded / r.ConcededPerPenalty * r.ConcededPoints
	}
	b.YellowCards = s.YellowCards * r.YellowCard
	b.Bonus = s.Bonus * r.BonusWeight

	// Fixed summation order keeps totals bit-identical across runs.
	b.Total = b.Minutes
	b.Total += b.Goals
	b.Total += b.Assists
	b.Total += b.CleanSheets
	b.Total += b.Saves
	b.Total += b.Conceded
	b.Total += b.YellowCards
	b.Total += b.Bonus
	return b
}

// ExpectedPoints is the captain-free expected score for one fixture.
func (r Ruleset) ExpectedPoints(pos model.Position, s model.Stats) float64 {
	return r.Breakdown(pos, s).Total
}
