// Package scoring turns projected stats into expected fantasy points under a named ruleset.
package scoring

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/aatrey56/fpl-squad-planner/internal/model"
)

// PositionRules are the values that vary by position.
type PositionRules struct {
	Goal            float64 `json:"goal"`
	CleanSheet      float64 `json:"clean_sheet"`
	ConcededPenalty bool    `json:"conceded_penalty"`
}

// Ruleset is a season's points table. Rulesets are values; Default returns a fresh copy.
type Ruleset struct {
	Name string `json:"name"`

	FullMinutes       float64 `json:"full_minutes"`
	FullMinutesPoints float64 `json:"full_minutes_points"`
	AppearancePoints  float64 `json:"appearance_points"`

	Assist float64 `json:"assist"`

	SavesPerPoint float64 `json:"saves_per_point"`
	SavePoints    float64 `json:"save_points"`

	ConcededPerPenalty float64 `json:"conceded_per_penalty"`
	ConcededPoints     float64 `json:"conceded_points"`

	YellowCard  float64 `json:"yellow_card"`
	BonusWeight float64 `json:"bonus_weight"`

	Positions map[model.Position]PositionRules `json:"positions"`
}

// Default is the 2025/26 FPL table.
func Default() Ruleset {
	return Ruleset{
		Name:               "fpl-2025-26",
		FullMinutes:        60,
		FullMinutesPoints:  2,
		AppearancePoints:   1,
		Assist:             3,
		SavesPerPoint:      3,
		SavePoints:         1,
		ConcededPerPenalty: 2,
		ConcededPoints:     -1,
		YellowCard:         -1,
		BonusWeight:        1,
		Positions: map[model.Position]PositionRules{
			model.Goalkeeper: {Goal: 10, CleanSheet: 4, ConcededPenalty: true},
			model.Defender:   {Goal: 6, CleanSheet: 4, ConcededPenalty: true},
			model.Midfielder: {Goal: 5, CleanSheet: 1},
			model.Forward:    {Goal: 4, CleanSheet: 0},
		},
	}
}

// LoadRuleset reads a JSON ruleset. Fields missing from the file keep their Default values.
func LoadRuleset(path string) (Ruleset, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Ruleset{}, fmt.Errorf("read ruleset: %w", err)
	}
	r := Default()
	overrides := r.Positions
	r.Positions = nil
	if err := json.Unmarshal(raw, &r); err != nil {
		return Ruleset{}, fmt.Errorf("parse ruleset %s: %w", path, err)
	}
	merged := make(map[model.Position]PositionRules, len(overrides))
	for pos, pr := range overrides {
		merged[pos] = pr
	}
	for pos, pr := range r.Positions {
		merged[pos] = pr
	}
	r.Positions = merged
	if err := r.Validate(); err != nil {
		return Ruleset{}, fmt.Errorf("ruleset %s: %w", path, err)
	}
	return r, nil
}

func (r Ruleset) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("name is required")
	}
	if r.FullMinutes <= 0 {
		return fmt.Errorf("full_minutes must be positive")
	}
	if r.SavesPerPoint <= 0 {
		return fmt.Errorf("saves_per_point must be positive")
	}
	if r.ConcededPerPenalty <= 0 {
		return fmt.Errorf("conceded_per_penalty must be positive")
	}
	for _, pos := range model.Positions {
		if _, ok := r.Positions[pos]; !ok {
			return fmt.Errorf("missing rules for %s", pos)
		}
	}
	return nil
}
