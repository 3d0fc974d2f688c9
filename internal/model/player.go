package model

import (
	"fmt"
	"strings"
)

// Position is the FPL element_type. Only the four codes below are valid.
type Position int

const (
	Goalkeeper Position = 1
	Defender   Position = 2
	Midfielder Position = 3
	Forward    Position = 4
)

// Positions lists every position in element_type order.
var Positions = []Position{Goalkeeper, Defender, Midfielder, Forward}

func ParsePosition(code int) (Position, error) {
	p := Position(code)
	if !p.Valid() {
		return 0, fmt.Errorf("invalid position code %d", code)
	}
	return p, nil
}

func ParsePositionLabel(label string) (Position, error) {
	switch strings.ToUpper(strings.TrimSpace(label)) {
	case "GK", "GKP":
		return Goalkeeper, nil
	case "DEF":
		return Defender, nil
	case "MID":
		return Midfielder, nil
	case "FWD":
		return Forward, nil
	}
	return 0, fmt.Errorf("invalid position label %q", label)
}

func (p Position) Valid() bool {
	return p >= Goalkeeper && p <= Forward
}

func (p Position) String() string {
	switch p {
	case Goalkeeper:
		return "GK"
	case Defender:
		return "DEF"
	case Midfielder:
		return "MID"
	case Forward:
		return "FWD"
	default:
		return fmt.Sprintf("Position(%d)", int(p))
	}
}

func (p Position) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Position) UnmarshalText(b []byte) error {
	v, err := ParsePositionLabel(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// Status mirrors the single-letter availability code FPL publishes per element.
type Status string

const (
	Available   Status = "a"
	Doubtful    Status = "d"
	Injured     Status = "i"
	Suspended   Status = "s"
	Unavailable Status = "u"
	NotInSquad  Status = "n"
)

func ParseStatus(code string) (Status, error) {
	s := Status(strings.ToLower(strings.TrimSpace(code)))
	switch s {
	case Available, Doubtful, Injured, Suspended, Unavailable, NotInSquad:
		return s, nil
	}
	return "", fmt.Errorf("invalid status code %q", code)
}

// Selectable reports whether a player with this status can be projected.
func (s Status) Selectable() bool {
	return s == Available || s == Doubtful
}

type Team struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	ShortName string `json:"short_name"`
}

type Player struct {
	ID       int      `json:"id"`
	Name     string   `json:"name"`
	Team     int      `json:"team"`
	Position Position `json:"position"`
	Cost     int      `json:"cost"` // tenths of a million
	Status   Status   `json:"status"`
}

// Price is the player's cost in millions.
func (p Player) Price() float64 {
	return float64(p.Cost) / 10
}
