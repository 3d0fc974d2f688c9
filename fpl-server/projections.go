package main

import (
	"context"
	"fmt"
	"sort"

	"github.com/aatrey56/fpl-squad-planner/internal/model"
	"github.com/aatrey56/fpl-squad-planner/internal/pipeline"
	"github.com/aatrey56/fpl-squad-planner/internal/projection"
	"github.com/aatrey56/fpl-squad-planner/internal/scoring"
)

type ProjectionsArgs struct {
	GW       int    `json:"gw" jsonschema:"Gameweek (0 = next)"`
	Position string `json:"position,omitempty" jsonschema:"GK|DEF|MID|FWD (empty = all)"`
	Limit    int    `json:"limit" jsonschema:"Max players (default 20, -1 = all)"`
}

type ProjectionItem struct {
	Rank           int     `json:"rank"`
	PlayerID       int     `json:"player_id"`
	Name           string  `json:"name"`
	TeamShort      string  `json:"team_short"`
	Position       string  `json:"position"`
	Price          float64 `json:"price"`
	OpponentShort  string  `json:"opponent_short"`
	Venue          string  `json:"venue"`
	Difficulty     int     `json:"difficulty"`
	ExpectedPoints float64 `json:"expected_points"`
}

type ProjectionsOutput struct {
	Gameweek  int              `json:"gameweek"`
	Ruleset   string           `json:"ruleset"`
	Projected int              `json:"projected"`
	Excluded  projection.Tally `json:"excluded"`
	Players   []ProjectionItem `json:"players"`
}

// resolveGW maps 0 to the next round with unfinished fixtures.
func resolveGW(ctx context.Context, cfg ServerConfig, gw int) (int, error) {
	if gw > 0 {
		return gw, nil
	}
	next, err := cfg.Repo.NextRound(ctx)
	if err != nil {
		return 0, err
	}
	if next == 0 {
		return 0, fmt.Errorf("no upcoming gameweek in stored fixtures")
	}
	return next, nil
}

func loadSnapshot(ctx context.Context, cfg ServerConfig, gw int) (*pipeline.Snapshot, error) {
	gw, err := resolveGW(ctx, cfg, gw)
	if err != nil {
		return nil, err
	}
	return pipeline.Build(ctx, cfg.Repo, gw)
}

func teamShorts(ctx context.Context, cfg ServerConfig) (map[int]string, error) {
	teams, err := cfg.Repo.Teams(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[int]string, len(teams))
	for _, t := range teams {
		out[t.ID] = t.ShortName
	}
	return out, nil
}

func venue(home bool) string {
	if home {
		return "H"
	}
	return "A"
}

func projectionItem(p model.Projection, short map[int]string) ProjectionItem {
	return ProjectionItem{
		PlayerID:       p.PlayerID,
		Name:           p.Player.Name,
		TeamShort:      short[p.Player.Team],
		Position:       p.Player.Position.String(),
		Price:          p.Player.Price(),
		OpponentShort:  short[p.Fixture.Opponent],
		Venue:          venue(p.Fixture.Home),
		Difficulty:     p.Fixture.Difficulty,
		ExpectedPoints: p.ExpectedPoints,
	}
}

func buildProjections(ctx context.Context, cfg ServerConfig, args ProjectionsArgs) (*ProjectionsOutput, error) {
	var pos model.Position
	if args.Position != "" {
		p, err := model.ParsePositionLabel(args.Position)
		if err != nil {
			return nil, err
		}
		pos = p
	}
	limit := args.Limit
	if limit == 0 {
		limit = 20
	}

	snap, err := loadSnapshot(ctx, cfg, args.GW)
	if err != nil {
		return nil, err
	}
	res, err := pipeline.New(cfg.Pipeline, cfg.Optimizer, cfg.Log).Project(snap)
	if err != nil {
		return nil, err
	}
	short, err := teamShorts(ctx, cfg)
	if err != nil {
		return nil, err
	}

	projs := append([]model.Projection(nil), res.Projections...)
	sort.SliceStable(projs, func(i, j int) bool {
		if projs[i].ExpectedPoints != projs[j].ExpectedPoints {
			return projs[i].ExpectedPoints > projs[j].ExpectedPoints
		}
		return projs[i].PlayerID < projs[j].PlayerID
	})

	out := &ProjectionsOutput{
		Gameweek:  res.Round,
		Ruleset:   res.Ruleset,
		Projected: len(res.Projections),
		Excluded:  res.Excluded,
		Players:   []ProjectionItem{},
	}
	for _, p := range projs {
		if pos != 0 && p.Player.Position != pos {
			continue
		}
		if limit > 0 && len(out.Players) >= limit {
			break
		}
		item := projectionItem(p, short)
		item.Rank = len(out.Players) + 1
		out.Players = append(out.Players, item)
	}
	return out, nil
}

type PlayerProjectionArgs struct {
	ElementID int `json:"element_id" jsonschema:"Player element id (required)"`
	GW        int `json:"gw" jsonschema:"Gameweek (0 = next)"`
}

type PlayerProjectionOutput struct {
	Gameweek   int                `json:"gameweek"`
	Player     model.Player       `json:"player"`
	Excluded   projection.Reason  `json:"excluded,omitempty"`
	Projection *ProjectionItem    `json:"projection,omitempty"`
	Stats      *model.Stats       `json:"stats,omitempty"`
	Breakdown  *scoring.Breakdown `json:"breakdown,omitempty"`
}

func buildPlayerProjection(ctx context.Context, cfg ServerConfig, args PlayerProjectionArgs) (*PlayerProjectionOutput, error) {
	player, err := cfg.Repo.Player(ctx, args.ElementID)
	if err != nil {
		return nil, err
	}
	snap, err := loadSnapshot(ctx, cfg, args.GW)
	if err != nil {
		return nil, err
	}
	records, err := snap.History(ctx, player.ID)
	if err != nil {
		return nil, err
	}

	engine := pipeline.New(cfg.Pipeline, cfg.Optimizer, cfg.Log).Engine(snap)
	proj, reason := engine.Project(player, records)
	out := &PlayerProjectionOutput{Gameweek: snap.Round, Player: player}
	if reason != "" {
		out.Excluded = reason
		return out, nil
	}

	short, err := teamShorts(ctx, cfg)
	if err != nil {
		return nil, err
	}
	item := projectionItem(proj, short)
	bd := engine.Rules.Breakdown(player.Position, proj.Stats)
	out.Projection = &item
	out.Stats = &proj.Stats
	out.Breakdown = &bd
	return out, nil
}
