package squad

import "github.com/aatrey56/fpl-squad-planner/internal/model"

// better is a strict total order: more points, then cheaper, then lower id.
func better(a, b model.Projection) bool {
	if a.ExpectedPoints != b.ExpectedPoints {
		return a.ExpectedPoints > b.ExpectedPoints
	}
	if a.Player.Cost != b.Player.Cost {
		return a.Player.Cost < b.Player.Cost
	}
	return a.PlayerID < b.PlayerID
}

// dominates reports whether a can always replace b: same position, no more expensive, at least
// as many points, and ahead of b in the total order.
func dominates(a, b model.Projection) bool {
	return a.Player.Position == b.Player.Position &&
		a.Player.Cost <= b.Player.Cost &&
		a.ExpectedPoints >= b.ExpectedPoints &&
		better(a, b)
}

// prune drops players that can never be needed in an optimal squad. A player is dropped when
// dominators come from at least quota+Size/MaxPerTeam distinct clubs: in any squad holding the
// player at least one of those clubs has neither a picked dominator nor a full quota, so a
// swap loses nothing. Input order is preserved.
func prune(cands []model.Projection, r Rules) []model.Projection {
	fullTeams := r.Size
	if r.MaxPerTeam > 0 {
		fullTeams = r.Size / r.MaxPerTeam
	}
	out := make([]model.Projection, 0, len(cands))
	for _, p := range cands {
		need := r.Quota[p.Player.Position] + fullTeams
		teams := make(map[int]struct{})
		for _, q := range cands {
			if q.PlayerID != p.PlayerID && dominates(q, p) {
				teams[q.Player.Team] = struct{}{}
				if len(teams) >= need {
					break
				}
			}
		}
		if len(teams) >= need {
			continue
		}
		out = append(out, p)
	}
	return out
}
