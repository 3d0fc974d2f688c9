package main

import (
	"context"

	"github.com/aatrey56/fpl-squad-planner/internal/model"
)

type PlayerLookupArgs struct {
	ElementID int `json:"element_id" jsonschema:"Player element id (required)"`
}

type PlayerLookupOutput struct {
	ID         int          `json:"id"`
	Name       string       `json:"name"`
	TeamID     int          `json:"team_id"`
	TeamShort  string       `json:"team_short"`
	Position   string       `json:"position"`
	Price      float64      `json:"price"`
	Status     model.Status `json:"status"`
	Selectable bool         `json:"selectable"`
}

func lookupPlayer(ctx context.Context, cfg ServerConfig, elementID int) (*PlayerLookupOutput, error) {
	p, err := cfg.Repo.Player(ctx, elementID)
	if err != nil {
		return nil, err
	}
	short, err := teamShorts(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &PlayerLookupOutput{
		ID:         p.ID,
		Name:       p.Name,
		TeamID:     p.Team,
		TeamShort:  short[p.Team],
		Position:   p.Position.String(),
		Price:      p.Price(),
		Status:     p.Status,
		Selectable: p.Status.Selectable(),
	}, nil
}

type PlayerHistoryArgs struct {
	ElementID int `json:"element_id" jsonschema:"Player element id (required)"`
	Last      int `json:"last" jsonschema:"Only the most recent N records (0 = all)"`
}

type PlayerHistoryOutput struct {
	PlayerID int                `json:"player_id"`
	Name     string             `json:"name"`
	Records  []model.GameRecord `json:"records"`
}

func buildPlayerHistory(ctx context.Context, cfg ServerConfig, args PlayerHistoryArgs) (*PlayerHistoryOutput, error) {
	p, err := cfg.Repo.Player(ctx, args.ElementID)
	if err != nil {
		return nil, err
	}
	recs, err := cfg.Repo.History(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	if args.Last > 0 && len(recs) > args.Last {
		recs = recs[len(recs)-args.Last:]
	}
	if recs == nil {
		recs = []model.GameRecord{}
	}
	return &PlayerHistoryOutput{PlayerID: p.ID, Name: p.Name, Records: recs}, nil
}
