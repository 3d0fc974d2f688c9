package model

import "sort"

type Fixture struct {
	ID             int  `json:"id"`
	Round          int  `json:"event"`
	HomeTeam       int  `json:"team_h"`
	AwayTeam       int  `json:"team_a"`
	HomeDifficulty int  `json:"team_h_difficulty"`
	AwayDifficulty int  `json:"team_a_difficulty"`
	Finished       bool `json:"finished"`
}

// FixtureContext is a fixture seen from one team's side.
type FixtureContext struct {
	Round      int  `json:"round"`
	FixtureID  int  `json:"fixture_id"`
	Team       int  `json:"team"`
	Opponent   int  `json:"opponent"`
	Home       bool `json:"home"`
	Difficulty int  `json:"difficulty"`
}

// Contexts splits a fixture into the home and away views.
func (f Fixture) Contexts() (home, away FixtureContext) {
	home = FixtureContext{
		Round:      f.Round,
		FixtureID:  f.ID,
		Team:       f.HomeTeam,
		Opponent:   f.AwayTeam,
		Home:       true,
		Difficulty: f.HomeDifficulty,
	}
	away = FixtureContext{
		Round:      f.Round,
		FixtureID:  f.ID,
		Team:       f.AwayTeam,
		Opponent:   f.HomeTeam,
		Home:       false,
		Difficulty: f.AwayDifficulty,
	}
	return home, away
}

// FixtureContexts returns every team-side context for round, ordered by fixture id then home first.
func FixtureContexts(fixtures []Fixture, round int) []FixtureContext {
	sorted := make([]Fixture, 0, len(fixtures))
	for _, f := range fixtures {
		if f.Round == round {
			sorted = append(sorted, f)
		}
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	out := make([]FixtureContext, 0, len(sorted)*2)
	for _, f := range sorted {
		h, a := f.Contexts()
		out = append(out, h, a)
	}
	return out
}

// FixtureIndex keys contexts by team. A team with two fixtures in the round keeps the lower fixture id.
func FixtureIndex(contexts []FixtureContext) map[int]FixtureContext {
	idx := make(map[int]FixtureContext, len(contexts))
	for _, c := range contexts {
		if prev, ok := idx[c.Team]; ok && prev.FixtureID <= c.FixtureID {
			continue
		}
		idx[c.Team] = c
	}
	return idx
}

// NextRound is the round of the earliest unfinished fixture, or 0 if none remain.
func NextRound(fixtures []Fixture) int {
	next := 0
	for _, f := range fixtures {
		if f.Finished || f.Round == 0 {
			continue
		}
		if next == 0 || f.Round < next {
			next = f.Round
		}
	}
	return next
}
