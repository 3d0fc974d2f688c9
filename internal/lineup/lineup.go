// Package lineup chooses the starting eleven, bench order and captaincy from a squad.
package lineup

import (
	"fmt"
	"sort"

	"github.com/aatrey56/fpl-squad-planner/internal/model"
)

const (
	MinDefenders  = 3
	MinForwards   = 1
	benchOutfield = 3
)

// ahead orders by expected points descending, then player id ascending.
func ahead(a, b model.Projection) bool {
	if a.ExpectedPoints != b.ExpectedPoints {
		return a.ExpectedPoints > b.ExpectedPoints
	}
	return a.PlayerID < b.PlayerID
}

// Select starts the better keeper and benches the three weakest outfield players the formation
// allows. Outfield players are considered weakest first; on equal points the lower id is benched
// first. Captain and vice are the two best starters, lower id first on equal points.
func Select(sq model.Squad) (model.Lineup, error) {
	var keepers, outfield []model.Projection
	for _, p := range sq.Players {
		if p.Player.Position == model.Goalkeeper {
			keepers = append(keepers, p)
		} else {
			outfield = append(outfield, p)
		}
	}
	if len(keepers) != 2 {
		return model.Lineup{}, fmt.Errorf("squad has %d goalkeepers, want 2", len(keepers))
	}
	if len(outfield) != 13 {
		return model.Lineup{}, fmt.Errorf("squad has %d outfield players, want 13", len(outfield))
	}

	sort.Slice(keepers, func(i, j int) bool { return ahead(keepers[i], keepers[j]) })
	bench := []model.Projection{keepers[1]}

	// Weakest first: ascending points, lower id first on ties.
	sort.Slice(outfield, func(i, j int) bool {
		if outfield[i].ExpectedPoints != outfield[j].ExpectedPoints {
			return outfield[i].ExpectedPoints < outfield[j].ExpectedPoints
		}
		return outfield[i].PlayerID < outfield[j].PlayerID
	})
	defenders, forwards := 0, 0
	for _, p := range outfield {
		switch p.Player.Position {
		case model.Defender:
			defenders++
		case model.Forward:
			forwards++
		}
	}

	remaining := make([]model.Projection, 0, len(outfield))
	for _, p := range outfield {
		if len(bench) == 1+benchOutfield {
			remaining = append(remaining, p)
			continue
		}
		d, f := defenders, forwards
		switch p.Player.Position {
		case model.Defender:
			d--
		case model.Forward:
			f--
		}
		if d < MinDefenders || f < MinForwards {
			remaining = append(remaining, p)
			continue
		}
		defenders, forwards = d, f
		bench = append(bench, p)
	}
	if len(bench) != 1+benchOutfield {
		return model.Lineup{}, fmt.Errorf("cannot bench %d outfield players and keep %d DEF and %d FWD", benchOutfield, MinDefenders, MinForwards)
	}

	starters := append([]model.Projection{keepers[0]}, remaining...)
	ranked := make([]model.Projection, len(starters))
	copy(ranked, starters)
	sort.Slice(ranked, func(i, j int) bool { return ahead(ranked[i], ranked[j]) })
	captain, vice := ranked[0], ranked[1]

	sort.Slice(starters, func(i, j int) bool {
		if starters[i].Player.Position != starters[j].Player.Position {
			return starters[i].Player.Position < starters[j].Player.Position
		}
		return ahead(starters[i], starters[j])
	})

	total := 0.0
	for _, p := range starters {
		total += p.ExpectedPoints
	}
	total += captain.ExpectedPoints

	return model.Lineup{
		Round:          sq.Round,
		Starters:       starters,
		Bench:          bench,
		Captain:        captain.PlayerID,
		ViceCaptain:    vice.PlayerID,
		ExpectedPoints: total,
	}, nil
}
