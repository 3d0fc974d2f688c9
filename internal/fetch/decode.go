package fetch

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/aatrey56/fpl-squad-planner/internal/model"
	"github.com/aatrey56/fpl-squad-planner/internal/points"
)

type Event struct {
	ID           int       `json:"id"`
	Name         string    `json:"name"`
	DeadlineTime time.Time `json:"deadline_time"`
	IsCurrent    bool      `json:"is_current"`
	IsNext       bool      `json:"is_next"`
	Finished     bool      `json:"finished"`
}

type Bootstrap struct {
	Events  []Event
	Teams   []model.Team
	Players []model.Player
	// Skipped counts elements whose type is not one of the four squad positions.
	Skipped int
	// UnknownStatus lists elements left out because their status code is not recognised.
	UnknownStatus []int
}

// Current is the event flagged current, or 0 before the season starts.
func (b *Bootstrap) Current() (round int, finished bool) {
	for _, e := range b.Events {
		if e.IsCurrent {
			return e.ID, e.Finished
		}
	}
	return 0, false
}

// NextRound is the event flagged next, or 0 after the last deadline.
func (b *Bootstrap) NextRound() int {
	for _, e := range b.Events {
		if e.IsNext {
			return e.ID
		}
	}
	return 0
}

type rawElement struct {
	ID          int    `json:"id"`
	WebName     string `json:"web_name"`
	Team        int    `json:"team"`
	ElementType int    `json:"element_type"`
	NowCost     int    `json:"now_cost"`
	Status      string `json:"status"`
}

func DecodeBootstrap(b []byte) (*Bootstrap, error) {
	var raw struct {
		Events   []Event      `json:"events"`
		Teams    []model.Team `json:"teams"`
		Elements []rawElement `json:"elements"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("decode bootstrap-static: %w", err)
	}

	out := &Bootstrap{Events: raw.Events, Teams: raw.Teams}
	for _, e := range raw.Elements {
		pos, err := model.ParsePosition(e.ElementType)
		if err != nil {
			out.Skipped++
			continue
		}
		status, err := model.ParseStatus(e.Status)
		if err != nil {
			out.UnknownStatus = append(out.UnknownStatus, e.ID)
			continue
		}
		out.Players = append(out.Players, model.Player{
			ID:       e.ID,
			Name:     e.WebName,
			Team:     e.Team,
			Position: pos,
			Cost:     e.NowCost,
			Status:   status,
		})
	}
	sort.Slice(out.Players, func(i, j int) bool { return out.Players[i].ID < out.Players[j].ID })
	sort.Slice(out.Teams, func(i, j int) bool { return out.Teams[i].ID < out.Teams[j].ID })
	return out, nil
}

func DecodeFixtures(b []byte) ([]model.Fixture, error) {
	var fixtures []model.Fixture
	if err := json.Unmarshal(b, &fixtures); err != nil {
		return nil, fmt.Errorf("decode fixtures: %w", err)
	}
	sort.Slice(fixtures, func(i, j int) bool { return fixtures[i].ID < fixtures[j].ID })
	return fixtures, nil
}

// index is an ICT index value; the API publishes them as decimal strings.
type index float64

func (x *index) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*x = 0
		return nil
	}
	if s, err := strconv.Unquote(string(b)); err == nil {
		b = []byte(s)
	}
	if len(b) == 0 {
		*x = 0
		return nil
	}
	v, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return fmt.Errorf("parse index %q: %w", b, err)
	}
	*x = index(v)
	return nil
}

type rawHistory struct {
	Element       int   `json:"element"`
	Fixture       int   `json:"fixture"`
	OpponentTeam  int   `json:"opponent_team"`
	WasHome       bool  `json:"was_home"`
	Round         int   `json:"round"`
	Minutes       int   `json:"minutes"`
	GoalsScored   int   `json:"goals_scored"`
	Assists       int   `json:"assists"`
	CleanSheets   int   `json:"clean_sheets"`
	GoalsConceded int   `json:"goals_conceded"`
	OwnGoals      int   `json:"own_goals"`
	YellowCards   int   `json:"yellow_cards"`
	RedCards      int   `json:"red_cards"`
	Saves         int   `json:"saves"`
	Bonus         int   `json:"bonus"`
	Threat        index `json:"threat"`
	Creativity    index `json:"creativity"`
	TotalPoints   int   `json:"total_points"`
}

// DecodeElementSummary returns the played-fixture history of one element.
func DecodeElementSummary(playerID int, b []byte) ([]model.GameRecord, error) {
	var raw struct {
		History []rawHistory `json:"history"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("decode element-summary %d: %w", playerID, err)
	}
	out := make([]model.GameRecord, 0, len(raw.History))
	for _, h := range raw.History {
		out = append(out, model.GameRecord{
			PlayerID:      playerID,
			Round:         h.Round,
			FixtureID:     h.Fixture,
			OpponentTeam:  h.OpponentTeam,
			WasHome:       h.WasHome,
			Minutes:       h.Minutes,
			Goals:         h.GoalsScored,
			Assists:       h.Assists,
			CleanSheet:    h.CleanSheets,
			GoalsConceded: h.GoalsConceded,
			Saves:         h.Saves,
			Bonus:         h.Bonus,
			YellowCards:   h.YellowCards,
			RedCards:      h.RedCards,
			OwnGoals:      h.OwnGoals,
			Threat:        float64(h.Threat),
			Creativity:    float64(h.Creativity),
			TotalPoints:   h.TotalPoints,
		})
	}
	return out, nil
}

func DecodeLive(b []byte) (map[int]points.LiveStats, error) {
	var raw struct {
		Elements []struct {
			ID    int              `json:"id"`
			Stats points.LiveStats `json:"stats"`
		} `json:"elements"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("decode event live: %w", err)
	}
	out := make(map[int]points.LiveStats, len(raw.Elements))
	for _, e := range raw.Elements {
		out[e.ID] = e.Stats
	}
	return out, nil
}
