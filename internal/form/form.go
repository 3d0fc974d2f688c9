// Package form reduces a player's recent appearances to recency-weighted averages.
package form

import (
	"sort"

	"github.com/aatrey56/fpl-squad-planner/internal/model"
)

const (
	DefaultLookback   = 5
	DefaultMinMinutes = 30.0
)

type Options struct {
	Lookback   int     // most recent appearances considered
	MinMinutes float64 // weighted minutes below this exclude the player
}

func DefaultOptions() Options {
	return Options{Lookback: DefaultLookback, MinMinutes: DefaultMinMinutes}
}

// Summary holds weighted averages over the recent appearances.
type Summary struct {
	Appearances int     `json:"appearances"`
	Threat      float64 `json:"threat"`
	Creativity  float64 `json:"creativity"`
	Minutes     float64 `json:"minutes"`
	Saves       float64 `json:"saves"`
	Bonus       float64 `json:"bonus"`
	YellowCards float64 `json:"yellow_cards"`
	Conceded    float64 `json:"conceded"`
	CleanSheets float64 `json:"clean_sheets"`
}

// Weights returns 1/(rank+1) for ranks 0..n-1, most recent first.
func Weights(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 1.0 / float64(i+1)
	}
	return w
}

// Recent returns the lookback most recent records with minutes > 0, newest first.
func Recent(records []model.GameRecord, lookback int) []model.GameRecord {
	played := make([]model.GameRecord, 0, len(records))
	for _, r := range records {
		if r.Minutes > 0 {
			played = append(played, r)
		}
	}
	sort.SliceStable(played, func(i, j int) bool {
		if played[i].Round != played[j].Round {
			return played[i].Round > played[j].Round
		}
		return played[i].FixtureID > played[j].FixtureID
	})
	if lookback > 0 && len(played) > lookback {
		played = played[:lookback]
	}
	return played
}

// Aggregate returns ok=false when there are no qualifying appearances or weighted minutes fall
// below opts.MinMinutes.
func Aggregate(records []model.GameRecord, opts Options) (Summary, bool) {
	recent := Recent(records, opts.Lookback)
	if len(recent) == 0 {
		return Summary{}, false
	}

	var s Summary
	var total float64
	for i, w := range Weights(len(recent)) {
		g := recent[i]
		total += w
		s.Threat += g.Threat * w
		s.Creativity += g.Creativity * w
		s.Minutes += float64(g.Minutes) * w
		s.Saves += float64(g.Saves) * w
		s.Bonus += float64(g.Bonus) * w
		s.YellowCards += float64(g.YellowCards) * w
		s.Conceded += float64(g.GoalsConceded) * w
		s.CleanSheets += float64(g.CleanSheet) * w
	}
	s.Threat /= total
	s.Creativity /= total
	s.Minutes /= total
	s.Saves /= total
	s.Bonus /= total
	s.YellowCards /= total
	s.Conceded /= total
	s.CleanSheets /= total
	s.Appearances = len(recent)

	if s.Minutes < opts.MinMinutes {
		return s, false
	}
	return s, true
}
