package main

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/aatrey56/fpl-squad-planner/internal/model"
)

type PlayerPredictionsArgs struct {
	GW    int `json:"gw" jsonschema:"Gameweek (0 = next)"`
	Limit int `json:"limit" jsonschema:"Max players (default 20, -1 = all)"`
}

type StoredPrediction struct {
	Rank           int     `json:"rank"`
	PlayerID       int     `json:"player_id"`
	Name           string  `json:"name"`
	TeamShort      string  `json:"team_short"`
	Position       string  `json:"position"`
	OpponentShort  string  `json:"opponent_short"`
	Venue          string  `json:"venue"`
	Difficulty     int     `json:"difficulty"`
	ExpectedPoints float64 `json:"expected_points"`
	RunID          string  `json:"run_id"`
}

type PlayerPredictionsOutput struct {
	Gameweek int                `json:"gameweek"`
	Total    int                `json:"total"`
	Players  []StoredPrediction `json:"players"`
}

// buildPlayerPredictions reads the projections the last planner run persisted, without
// recomputing anything.
func buildPlayerPredictions(ctx context.Context, cfg ServerConfig, args PlayerPredictionsArgs) (*PlayerPredictionsOutput, error) {
	gw, err := resolveGW(ctx, cfg, args.GW)
	if err != nil {
		return nil, err
	}
	has, err := cfg.Repo.HasPredictions(ctx, gw)
	if err != nil {
		return nil, err
	}
	if !has {
		return nil, fmt.Errorf("no stored predictions for gw %d; run the planner first", gw)
	}
	preds, err := cfg.Repo.Predictions(ctx, gw)
	if err != nil {
		return nil, err
	}
	players, err := cfg.Repo.Players(ctx)
	if err != nil {
		return nil, err
	}
	byID := make(map[int]model.Player, len(players))
	for _, p := range players {
		byID[p.ID] = p
	}
	short, err := teamShorts(ctx, cfg)
	if err != nil {
		return nil, err
	}

	limit := args.Limit
	if limit == 0 {
		limit = 20
	}
	out := &PlayerPredictionsOutput{Gameweek: gw, Total: len(preds)}
	for i, pr := range preds {
		if limit > 0 && i >= limit {
			break
		}
		p := byID[pr.PlayerID]
		out.Players = append(out.Players, StoredPrediction{
			Rank:           i + 1,
			PlayerID:       pr.PlayerID,
			Name:           p.Name,
			TeamShort:      short[p.Team],
			Position:       p.Position.String(),
			OpponentShort:  short[pr.Opponent],
			Venue:          venue(pr.Home),
			Difficulty:     pr.Difficulty,
			ExpectedPoints: pr.ExpectedPoints,
			RunID:          pr.RunID,
		})
	}
	return out, nil
}

type MyTeamArgs struct {
	GW int `json:"gw" jsonschema:"Gameweek (0 = latest stored lineup)"`
}

type TeamPick struct {
	Slot           int     `json:"slot"`
	PlayerID       int     `json:"player_id"`
	Name           string  `json:"name"`
	TeamShort      string  `json:"team_short"`
	Position       string  `json:"position"`
	Price          float64 `json:"price"`
	Starter        bool    `json:"starter"`
	IsCaptain      bool    `json:"is_captain"`
	IsViceCaptain  bool    `json:"is_vice_captain"`
	ExpectedPoints float64 `json:"expected_points"`
}

type MyTeamOutput struct {
	Gameweek       int        `json:"gameweek"`
	TotalCost      float64    `json:"total_cost"`
	ExpectedPoints float64    `json:"expected_points"`
	Captain        int        `json:"captain"`
	ViceCaptain    int        `json:"vice_captain"`
	Picks          []TeamPick `json:"picks"`
}

// buildMyTeam returns a stored lineup. The expected total counts starters once and the captain
// twice.
func buildMyTeam(ctx context.Context, cfg ServerConfig, args MyTeamArgs) (*MyTeamOutput, error) {
	gw := args.GW
	if gw <= 0 {
		latest, err := cfg.Repo.LatestLineupRound(ctx)
		if err != nil {
			return nil, err
		}
		if latest == 0 {
			return nil, fmt.Errorf("no stored lineup; run the planner first")
		}
		gw = latest
	}
	picks, err := cfg.Repo.Lineup(ctx, gw)
	if err != nil {
		return nil, err
	}
	short, err := teamShorts(ctx, cfg)
	if err != nil {
		return nil, err
	}

	out := &MyTeamOutput{Gameweek: gw}
	cost := 0
	for _, pk := range picks {
		p := pk.Projection.Player
		cost += p.Cost
		out.ExpectedPoints += float64(pk.Multiplier()) * pk.Projection.ExpectedPoints
		if pk.IsCaptain {
			out.Captain = p.ID
		}
		if pk.IsViceCaptain {
			out.ViceCaptain = p.ID
		}
		out.Picks = append(out.Picks, TeamPick{
			Slot:           pk.Slot,
			PlayerID:       p.ID,
			Name:           p.Name,
			TeamShort:      short[p.Team],
			Position:       p.Position.String(),
			Price:          p.Price(),
			Starter:        pk.Role == model.Starter,
			IsCaptain:      pk.IsCaptain,
			IsViceCaptain:  pk.IsViceCaptain,
			ExpectedPoints: pk.Projection.ExpectedPoints,
		})
	}
	out.TotalCost = float64(cost) / 10
	return out, nil
}

type ListPlayersArgs struct {
	Name     string `json:"name,omitempty" jsonschema:"Case-insensitive name fragment (empty = all)"`
	Position string `json:"position,omitempty" jsonschema:"GK|DEF|MID|FWD (empty = all)"`
	Limit    int    `json:"limit" jsonschema:"Max players (default 50, -1 = all)"`
}

type ListPlayersOutput struct {
	Total   int                  `json:"total"`
	Players []PlayerLookupOutput `json:"players"`
}

func buildListPlayers(ctx context.Context, cfg ServerConfig, args ListPlayersArgs) (*ListPlayersOutput, error) {
	var pos model.Position
	if args.Position != "" {
		p, err := model.ParsePositionLabel(args.Position)
		if err != nil {
			return nil, err
		}
		pos = p
	}
	players, err := cfg.Repo.Players(ctx)
	if err != nil {
		return nil, err
	}
	short, err := teamShorts(ctx, cfg)
	if err != nil {
		return nil, err
	}
	needle := strings.ToLower(strings.TrimSpace(args.Name))

	var matched []model.Player
	for _, p := range players {
		if pos != 0 && p.Position != pos {
			continue
		}
		if needle != "" && !strings.Contains(strings.ToLower(p.Name), needle) {
			continue
		}
		matched = append(matched, p)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })

	limit := args.Limit
	if limit == 0 {
		limit = 50
	}
	out := &ListPlayersOutput{Total: len(matched)}
	for i, p := range matched {
		if limit > 0 && i >= limit {
			break
		}
		out.Players = append(out.Players, PlayerLookupOutput{
			ID:         p.ID,
			Name:       p.Name,
			TeamID:     p.Team,
			TeamShort:  short[p.Team],
			Position:   p.Position.String(),
			Price:      p.Price(),
			Status:     p.Status,
			Selectable: p.Status.Selectable(),
		})
	}
	return out, nil
}

type ListTeamsArgs struct{}

type ListTeamsOutput struct {
	Teams []model.Team `json:"teams"`
}

func buildListTeams(ctx context.Context, cfg ServerConfig) (*ListTeamsOutput, error) {
	teams, err := cfg.Repo.Teams(ctx)
	if err != nil {
		return nil, err
	}
	sort.Slice(teams, func(i, j int) bool { return teams[i].ID < teams[j].ID })
	return &ListTeamsOutput{Teams: teams}, nil
}
