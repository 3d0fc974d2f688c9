// Package projection turns recent form and the next fixture into per-player expected stats.
package projection

import (
	"sort"

	"github.com/aatrey56/fpl-squad-planner/internal/calibrate"
	"github.com/aatrey56/fpl-squad-planner/internal/form"
	"github.com/aatrey56/fpl-squad-planner/internal/model"
	"github.com/aatrey56/fpl-squad-planner/internal/scoring"
)

// Reason explains why a player has no projection.
type Reason string

const (
	ReasonUnavailable Reason = "unavailable"
	ReasonNoHistory   Reason = "no_history"
	ReasonLowMinutes  Reason = "low_minutes"
	ReasonNoFixture   Reason = "no_fixture"
)

// Factors scale projections by fixture difficulty and venue.
type Factors struct {
	Step          float64 `json:"step"`
	Neutral       float64 `json:"neutral"`
	HomeAdvantage float64 `json:"home_advantage"`
}

func DefaultFactors() Factors {
	return Factors{Step: 0.1, Neutral: 3, HomeAdvantage: 1.1}
}

// Attack scales goals, assists, clean sheets and bonus.
func (f Factors) Attack(difficulty int, home bool) float64 {
	diff := 1 + (f.Neutral-float64(difficulty))*f.Step
	venue := 1.0
	if home {
		venue = f.HomeAdvantage
	}
	return diff * venue
}

// Concede scales goals conceded and saves.
func (f Factors) Concede(difficulty int) float64 {
	return 1 + (float64(difficulty)-f.Neutral)*f.Step
}

type Engine struct {
	Round    int
	Ratios   calibrate.Ratios
	Fixtures map[int]model.FixtureContext // by team
	Form     form.Options
	Factors  Factors
	Rules    scoring.Ruleset
}

// Project returns the player's projection, or the reason none exists.
func (e *Engine) Project(p model.Player, records []model.GameRecord) (model.Projection, Reason) {
	if !p.Status.Selectable() {
		return model.Projection{}, ReasonUnavailable
	}
	summary, ok := form.Aggregate(records, e.Form)
	if !ok {
		if summary.Appearances == 0 {
			return model.Projection{}, ReasonNoHistory
		}
		return model.Projection{}, ReasonLowMinutes
	}
	fx, ok := e.Fixtures[p.Team]
	if !ok {
		return model.Projection{}, ReasonNoFixture
	}

	ratio := e.Ratios[p.Position]
	attack := e.Factors.Attack(fx.Difficulty, fx.Home)
	concede := e.Factors.Concede(fx.Difficulty)

	stats := model.Stats{
		Minutes:     summary.Minutes,
		Goals:       summary.Threat * ratio.ThreatToGoal * attack,
		Assists:     summary.Creativity * ratio.CreativityToAssist * attack,
		CleanSheets: summary.CleanSheets * attack,
		Conceded:    summary.Conceded * concede,
		Saves:       summary.Saves * concede,
		Bonus:       summary.Bonus * attack,
		YellowCards: summary.YellowCards,
	}
	return model.Projection{
		PlayerID:       p.ID,
		Round:          e.Round,
		Player:         p,
		Fixture:        fx,
		Stats:          stats,
		ExpectedPoints: e.Rules.ExpectedPoints(p.Position, stats),
	}, ""
}

// Tally counts exclusions by reason.
type Tally map[Reason]int

func (t Tally) Total() int {
	n := 0
	for _, v := range t {
		n += v
	}
	return n
}

// ProjectAll projects every player in id order. history is keyed by player id.
func (e *Engine) ProjectAll(players []model.Player, history map[int][]model.GameRecord) ([]model.Projection, Tally) {
	sorted := make([]model.Player, len(players))
	copy(sorted, players)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	out := make([]model.Projection, 0, len(sorted))
	tally := Tally{}
	for _, p := range sorted {
		proj, reason := e.Project(p, history[p.ID])
		if reason != "" {
			tally[reason]++
			continue
		}
		out = append(out, proj)
	}
	return out, tally
}
