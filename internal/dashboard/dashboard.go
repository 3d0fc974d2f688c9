// Package dashboard maintains data.json, the document the static dashboard page renders.
package dashboard

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/aatrey56/fpl-squad-planner/internal/model"
	"github.com/aatrey56/fpl-squad-planner/internal/points"
	"github.com/aatrey56/fpl-squad-planner/internal/scoring"
	"github.com/aatrey56/fpl-squad-planner/internal/store"
)

type Status string

const (
	StatusPrediction Status = "prediction"
	StatusLive       Status = "live"
)

type Entry struct {
	PlayerID        int                `json:"player_id"`
	Name            string             `json:"web_name"`
	Position        model.Position     `json:"position"`
	Team            string             `json:"team_short_name"`
	Opponent        string             `json:"opponent_short_name"`
	IsHome          bool               `json:"is_home"`
	Difficulty      int                `json:"opponent_difficulty"`
	Cost            int                `json:"now_cost"`
	Role            model.Role         `json:"role"`
	IsCaptain       bool               `json:"is_captain"`
	IsVice          bool               `json:"is_vice"`
	PredictedPoints float64            `json:"predicted_points"`
	Breakdown       *scoring.Breakdown `json:"breakdown,omitempty"`
	LivePoints      int                `json:"live_points"`
}

type Summary struct {
	TotalPredicted float64 `json:"total_predicted"`
	TotalLive      int     `json:"total_live"`
}

type Document struct {
	Status      Status    `json:"status"`
	Gameweek    int       `json:"gameweek"`
	GeneratedAt time.Time `json:"generated_at"`
	Team        []Entry   `json:"team"`
	Summary     Summary   `json:"summary"`
}

// Build turns a lineup into a prediction document. Projections that carry stats get a per-term
// breakdown.
func Build(lu model.Lineup, teams map[int]model.Team, rules scoring.Ruleset, now time.Time) *Document {
	short := func(id int) string {
		if t, ok := teams[id]; ok && t.ShortName != "" {
			return t.ShortName
		}
		return "UNK"
	}
	doc := &Document{
		Status:      StatusPrediction,
		Gameweek:    lu.Round,
		GeneratedAt: now.UTC(),
		Summary:     Summary{TotalPredicted: lu.ExpectedPoints},
	}
	for _, pk := range lu.Picks() {
		p := pk.Projection
		e := Entry{
			PlayerID:        p.PlayerID,
			Name:            p.Player.Name,
			Position:        p.Player.Position,
			Team:            short(p.Player.Team),
			Opponent:        short(p.Fixture.Opponent),
			IsHome:          p.Fixture.Home,
			Difficulty:      p.Fixture.Difficulty,
			Cost:            p.Player.Cost,
			Role:            pk.Role,
			IsCaptain:       pk.IsCaptain,
			IsVice:          pk.IsViceCaptain,
			PredictedPoints: p.ExpectedPoints,
		}
		if p.Stats != (model.Stats{}) {
			bd := rules.Breakdown(p.Player.Position, p.Stats)
			e.Breakdown = &bd
		}
		doc.Team = append(doc.Team, e)
	}
	return doc
}

// picks rebuilds slot-ordered picks from the document.
func (d *Document) picks() []model.Pick {
	out := make([]model.Pick, 0, len(d.Team))
	for i, e := range d.Team {
		out = append(out, model.Pick{
			Projection: model.Projection{
				PlayerID:       e.PlayerID,
				Round:          d.Gameweek,
				Player:         model.Player{ID: e.PlayerID, Name: e.Name, Position: e.Position, Cost: e.Cost},
				ExpectedPoints: e.PredictedPoints,
			},
			Role:          e.Role,
			Slot:          i + 1,
			IsCaptain:     e.IsCaptain,
			IsViceCaptain: e.IsVice,
		})
	}
	return out
}

// ApplyLive records live points on every entry and the starters' total with the captain doubled.
func (d *Document) ApplyLive(live map[int]points.LiveStats, now time.Time) *points.Result {
	res := points.BuildResult(d.Gameweek, d.picks(), live)
	for i := range d.Team {
		d.Team[i].LivePoints = live[d.Team[i].PlayerID].TotalPoints
	}
	d.Summary.TotalLive = res.TotalPoints
	d.Status = StatusLive
	d.GeneratedAt = now.UTC()
	return res
}

// Action is what a refresh should do with the document.
type Action int

const (
	Skip Action = iota
	Predict
	Live
)

func (a Action) String() string {
	switch a {
	case Predict:
		return "predict"
	case Live:
		return "live"
	default:
		return "skip"
	}
}

// Round state from bootstrap-static: current is 0 before the season and next is 0 after it.
type Round struct {
	Current         int
	CurrentFinished bool
	Next            int
}

// Decide picks the action for the saved document (nil when none exists). While the current round
// is in play only a document for that round is updated; otherwise a prediction is made for the
// next round unless one already exists.
func Decide(r Round, saved *Document) (Action, int) {
	if r.Current > 0 && !r.CurrentFinished {
		if saved != nil && saved.Gameweek == r.Current {
			return Live, r.Current
		}
		return Skip, r.Current
	}
	if r.Next > 0 {
		if saved != nil && saved.Gameweek == r.Next && saved.Status == StatusPrediction {
			return Skip, r.Next
		}
		return Predict, r.Next
	}
	return Skip, 0
}

const fileName = "data.json"

// Load reads the saved document; a missing file yields nil without error.
func Load(st *store.JSONStore) (*Document, error) {
	var doc Document
	if err := st.ReadJSON(fileName, &doc); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("load dashboard: %w", err)
	}
	return &doc, nil
}

func Save(st *store.JSONStore, doc *Document) error {
	return st.WriteJSON(fileName, doc)
}
