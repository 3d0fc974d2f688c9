package main

import (
	"context"
	"sort"
)

type FixturesArgs struct {
	GW int `json:"gw" jsonschema:"Gameweek (0 = next)"`
}

type FixtureDifficultyItem struct {
	Rank          int    `json:"rank"`
	FixtureID     int    `json:"fixture_id"`
	TeamID        int    `json:"team_id"`
	TeamShort     string `json:"team_short"`
	OpponentID    int    `json:"opponent_id"`
	OpponentShort string `json:"opponent_short"`
	Venue         string `json:"venue"`
	Difficulty    int    `json:"difficulty"`
	// Teams with two fixtures in the round are projected against the first only.
	Projected bool `json:"projected"`
}

type FixtureDifficultyOutput struct {
	Gameweek int                     `json:"gameweek"`
	Sides    []FixtureDifficultyItem `json:"sides"`
	Blank    []string                `json:"blank"`
}

// buildFixtureDifficulty ranks every team side of the round by difficulty, easiest first, home
// before away, then by fixture id and team id.
func buildFixtureDifficulty(ctx context.Context, cfg ServerConfig, args FixturesArgs) (*FixtureDifficultyOutput, error) {
	gw, err := resolveGW(ctx, cfg, args.GW)
	if err != nil {
		return nil, err
	}
	ctxs, err := cfg.Repo.UpcomingFixtures(ctx, gw)
	if err != nil {
		return nil, err
	}
	teams, err := cfg.Repo.Teams(ctx)
	if err != nil {
		return nil, err
	}
	short := make(map[int]string, len(teams))
	for _, t := range teams {
		short[t.ID] = t.ShortName
	}

	first := make(map[int]int, len(ctxs))
	for _, c := range ctxs {
		if id, ok := first[c.Team]; !ok || c.FixtureID < id {
			first[c.Team] = c.FixtureID
		}
	}

	sort.SliceStable(ctxs, func(i, j int) bool {
		a, b := ctxs[i], ctxs[j]
		if a.Difficulty != b.Difficulty {
			return a.Difficulty < b.Difficulty
		}
		if a.Home != b.Home {
			return a.Home
		}
		if a.FixtureID != b.FixtureID {
			return a.FixtureID < b.FixtureID
		}
		return a.Team < b.Team
	})

	out := &FixtureDifficultyOutput{Gameweek: gw, Sides: []FixtureDifficultyItem{}, Blank: []string{}}
	for i, c := range ctxs {
		out.Sides = append(out.Sides, FixtureDifficultyItem{
			Rank:          i + 1,
			FixtureID:     c.FixtureID,
			TeamID:        c.Team,
			TeamShort:     short[c.Team],
			OpponentID:    c.Opponent,
			OpponentShort: short[c.Opponent],
			Venue:         venue(c.Home),
			Difficulty:    c.Difficulty,
			Projected:     first[c.Team] == c.FixtureID,
		})
	}
	for _, t := range teams {
		if _, ok := first[t.ID]; !ok {
			out.Blank = append(out.Blank, t.ShortName)
		}
	}
	return out, nil
}
