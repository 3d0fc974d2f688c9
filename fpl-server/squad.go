package main

import (
	"context"
	"fmt"

	"github.com/aatrey56/fpl-squad-planner/internal/model"
	"github.com/aatrey56/fpl-squad-planner/internal/pipeline"
)

type OptimalSquadArgs struct {
	GW     int     `json:"gw" jsonschema:"Gameweek (0 = next)"`
	Budget float64 `json:"budget" jsonschema:"Budget in millions (0 = configured default)"`
}

type SquadPick struct {
	ProjectionItem
	Slot          int  `json:"slot"`
	Starter       bool `json:"starter"`
	IsCaptain     bool `json:"is_captain"`
	IsViceCaptain bool `json:"is_vice_captain"`
}

type OptimalSquadOutput struct {
	RunID          string      `json:"run_id"`
	Gameweek       int         `json:"gameweek"`
	Budget         float64     `json:"budget"`
	TotalCost      float64     `json:"total_cost"`
	ExpectedPoints float64     `json:"expected_points"`
	Captain        int         `json:"captain"`
	ViceCaptain    int         `json:"vice_captain"`
	Picks          []SquadPick `json:"picks"`
}

func buildOptimalSquad(ctx context.Context, cfg ServerConfig, args OptimalSquadArgs) (*OptimalSquadOutput, error) {
	pcfg := cfg.Pipeline
	if args.Budget < 0 {
		return nil, fmt.Errorf("budget must not be negative")
	}
	if args.Budget > 0 {
		// Round to tenths; 99.95 becomes 1000.
		pcfg.Budget = int(args.Budget*10 + 0.5)
	}

	snap, err := loadSnapshot(ctx, cfg, args.GW)
	if err != nil {
		return nil, err
	}
	res, err := pipeline.New(pcfg, cfg.Optimizer, cfg.Log).Run(ctx, snap)
	if err != nil {
		return nil, err
	}
	short, err := teamShorts(ctx, cfg)
	if err != nil {
		return nil, err
	}

	out := &OptimalSquadOutput{
		RunID:          res.RunID,
		Gameweek:       res.Round,
		Budget:         float64(pcfg.Budget) / 10,
		TotalCost:      float64(res.Squad.TotalCost) / 10,
		ExpectedPoints: res.Lineup.ExpectedPoints,
		Captain:        res.Lineup.Captain,
		ViceCaptain:    res.Lineup.ViceCaptain,
	}
	for _, pk := range res.Lineup.Picks() {
		out.Picks = append(out.Picks, SquadPick{
			ProjectionItem: projectionItem(pk.Projection, short),
			Slot:           pk.Slot,
			Starter:        pk.Role == model.Starter,
			IsCaptain:      pk.IsCaptain,
			IsViceCaptain:  pk.IsViceCaptain,
		})
	}
	return out, nil
}
