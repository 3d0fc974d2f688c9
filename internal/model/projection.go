package model

import "fmt"

// Stats holds expected per-fixture quantities. Values are expectations, not counts.
type Stats struct {
	Minutes     float64 `json:"minutes"`
	Goals       float64 `json:"goals"`
	Assists     float64 `json:"assists"`
	CleanSheets float64 `json:"clean_sheets"`
	Conceded    float64 `json:"conceded"`
	Saves       float64 `json:"saves"`
	Bonus       float64 `json:"bonus"`
	YellowCards float64 `json:"yellow_cards"`
}

type Projection struct {
	PlayerID       int            `json:"player_id"`
	Round          int            `json:"round"`
	Player         Player         `json:"player"`
	Fixture        FixtureContext `json:"fixture"`
	Stats          Stats          `json:"stats"`
	ExpectedPoints float64        `json:"expected_points"`
}

// Role is a squad member's place in the lineup.
type Role int

const (
	Starter Role = iota + 1
	Bench
)

func (r Role) String() string {
	switch r {
	case Starter:
		return "starter"
	case Bench:
		return "bench"
	default:
		return "unknown"
	}
}

func (r Role) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func (r *Role) UnmarshalText(b []byte) error {
	switch string(b) {
	case "starter":
		*r = Starter
	case "bench":
		*r = Bench
	default:
		return fmt.Errorf("invalid role %q", b)
	}
	return nil
}

type Squad struct {
	Round     int          `json:"round"`
	Players   []Projection `json:"players"`
	TotalCost int          `json:"total_cost"`
}

type Lineup struct {
	Round          int          `json:"round"`
	Starters       []Projection `json:"starters"`
	Bench          []Projection `json:"bench"` // substitution order, keeper first
	Captain        int          `json:"captain"`
	ViceCaptain    int          `json:"vice_captain"`
	ExpectedPoints float64      `json:"expected_points"`
}

type Pick struct {
	Projection    Projection `json:"projection"`
	Role          Role       `json:"role"`
	Slot          int        `json:"slot"` // 1-11 starters, 12-15 bench
	IsCaptain     bool       `json:"is_captain"`
	IsViceCaptain bool       `json:"is_vice_captain"`
}

// Multiplier is the factor applied to a pick's points when totalling the lineup.
func (p Pick) Multiplier() int {
	switch {
	case p.Role != Starter:
		return 0
	case p.IsCaptain:
		return 2
	default:
		return 1
	}
}

// Picks flattens the lineup into slot order.
func (l Lineup) Picks() []Pick {
	out := make([]Pick, 0, len(l.Starters)+len(l.Bench))
	for i, p := range l.Starters {
		out = append(out, Pick{
			Projection:    p,
			Role:          Starter,
			Slot:          i + 1,
			IsCaptain:     p.PlayerID == l.Captain,
			IsViceCaptain: p.PlayerID == l.ViceCaptain,
		})
	}
	for i, p := range l.Bench {
		out = append(out, Pick{
			Projection: p,
			Role:       Bench,
			Slot:       len(l.Starters) + i + 1,
		})
	}
	return out
}
