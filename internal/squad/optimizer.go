// Package squad picks the 15-player squad with the highest expected points under FPL's
// budget, composition and per-club limits.
package squad

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"github.com/aatrey56/fpl-squad-planner/internal/model"
	"github.com/aatrey56/fpl-squad-planner/internal/solver"
)

var (
	ErrInfeasible = errors.New("no feasible squad")
	ErrTimeout    = errors.New("squad optimisation timed out")
)

// DefaultBudget is £100.0m in tenths.
const DefaultBudget = 1000

type Rules struct {
	Size       int
	Quota      map[model.Position]int
	MaxPerTeam int
}

func DefaultRules() Rules {
	return Rules{
		Size: 15,
		Quota: map[model.Position]int{
			model.Goalkeeper: 2,
			model.Defender:   5,
			model.Midfielder: 5,
			model.Forward:    3,
		},
		MaxPerTeam: 3,
	}
}

type Optimizer struct {
	Solver solver.Solver
	Rules  Rules
	Log    zerolog.Logger
}

func New(s solver.Solver, log zerolog.Logger) *Optimizer {
	return &Optimizer{
		Solver: s,
		Rules:  DefaultRules(),
		Log:    log.With().Str("component", "squad").Logger(),
	}
}

// Optimize returns the best squad for budget (tenths of a million). It never returns a partial
// squad: every failure is ErrInfeasible or ErrTimeout.
func (o *Optimizer) Optimize(ctx context.Context, projections []model.Projection, budget int) (model.Squad, error) {
	cands, err := candidates(projections)
	if err != nil {
		return model.Squad{}, err
	}
	for _, pos := range model.Positions {
		need := o.Rules.Quota[pos]
		have := 0
		for _, c := range cands {
			if c.Player.Position == pos {
				have++
			}
		}
		if have < need {
			return model.Squad{}, fmt.Errorf("%w: needs %d %s, %d candidates", ErrInfeasible, need, pos, have)
		}
	}

	if floor := cheapestSquad(cands, o.Rules); floor > budget {
		return model.Squad{}, fmt.Errorf("%w: budget %d below cheapest valid squad %d", ErrInfeasible, budget, floor)
	}

	pool := prune(cands, o.Rules)
	o.Log.Debug().
		Int("projections", len(projections)).
		Int("candidates", len(cands)).
		Int("pool", len(pool)).
		Msg("candidate pool built")

	p := o.problem(pool, budget)
	sol, err := o.Solver.Solve(ctx, p)
	switch {
	case err == nil:
	case errors.Is(err, solver.ErrInfeasible):
		return model.Squad{}, fmt.Errorf("%w: %v", ErrInfeasible, err)
	case errors.Is(err, solver.ErrTimeout):
		return model.Squad{}, fmt.Errorf("%w: %v", ErrTimeout, err)
	default:
		return model.Squad{}, fmt.Errorf("solve squad: %w", err)
	}

	picked := make([]model.Projection, 0, o.Rules.Size)
	for _, i := range sol.Selected() {
		picked = append(picked, pool[i])
	}
	sq := model.Squad{Players: picked}
	for _, p := range picked {
		sq.TotalCost += p.Player.Cost
	}
	if len(picked) > 0 {
		sq.Round = picked[0].Round
	}
	if err := o.Rules.Check(sq, budget); err != nil {
		return model.Squad{}, fmt.Errorf("%w: solver returned invalid squad: %v", ErrInfeasible, err)
	}

	o.Log.Info().
		Int("round", sq.Round).
		Int("cost", sq.TotalCost).
		Float64("expected_points", sol.Objective).
		Int("nodes", sol.Nodes).
		Msg("squad selected")
	return sq, nil
}

// Check verifies size, composition, club limits and budget.
func (r Rules) Check(sq model.Squad, budget int) error {
	if len(sq.Players) != r.Size {
		return fmt.Errorf("squad has %d players, want %d", len(sq.Players), r.Size)
	}
	seen := make(map[int]bool, len(sq.Players))
	byPos := make(map[model.Position]int)
	byTeam := make(map[int]int)
	cost := 0
	for _, p := range sq.Players {
		if seen[p.PlayerID] {
			return fmt.Errorf("player %d picked twice", p.PlayerID)
		}
		seen[p.PlayerID] = true
		byPos[p.Player.Position]++
		byTeam[p.Player.Team]++
		cost += p.Player.Cost
	}
	for _, pos := range model.Positions {
		if byPos[pos] != r.Quota[pos] {
			return fmt.Errorf("squad has %d %s, want %d", byPos[pos], pos, r.Quota[pos])
		}
	}
	for team, n := range byTeam {
		if n > r.MaxPerTeam {
			return fmt.Errorf("squad has %d players from team %d, max %d", n, team, r.MaxPerTeam)
		}
	}
	if cost > budget {
		return fmt.Errorf("squad costs %d, budget %d", cost, budget)
	}
	return nil
}

func (o *Optimizer) problem(pool []model.Projection, budget int) solver.Problem {
	n := len(pool)
	p := solver.Problem{Objective: make([]float64, n), Maximize: true}

	cost := make([]solver.Term, n)
	size := make([]solver.Term, n)
	byPos := make(map[model.Position][]solver.Term)
	byTeam := make(map[int][]solver.Term)
	for i, c := range pool {
		p.Objective[i] = c.ExpectedPoints
		cost[i] = solver.Term{Var: i, Coeff: float64(c.Player.Cost)}
		size[i] = solver.Term{Var: i, Coeff: 1}
		byPos[c.Player.Position] = append(byPos[c.Player.Position], solver.Term{Var: i, Coeff: 1})
		byTeam[c.Player.Team] = append(byTeam[c.Player.Team], solver.Term{Var: i, Coeff: 1})
	}

	p.Constraints = append(p.Constraints,
		solver.Constraint{Name: "budget", Terms: cost, Sense: solver.LessEq, RHS: float64(budget)},
		solver.Constraint{Name: "squad size", Terms: size, Sense: solver.Equal, RHS: float64(o.Rules.Size)},
	)
	for _, pos := range model.Positions {
		p.Constraints = append(p.Constraints, solver.Constraint{
			Name:  pos.String(),
			Terms: byPos[pos],
			Sense: solver.Equal,
			RHS:   float64(o.Rules.Quota[pos]),
		})
	}
	teams := make([]int, 0, len(byTeam))
	for team, terms := range byTeam {
		if len(terms) > o.Rules.MaxPerTeam {
			teams = append(teams, team)
		}
	}
	sort.Ints(teams)
	for _, team := range teams {
		p.Constraints = append(p.Constraints, solver.Constraint{
			Name:  fmt.Sprintf("team %d", team),
			Terms: byTeam[team],
			Sense: solver.LessEq,
			RHS:   float64(o.Rules.MaxPerTeam),
		})
	}
	return p
}

// cheapestSquad is the cost of the cheapest players filling each quota, ignoring club limits.
func cheapestSquad(cands []model.Projection, r Rules) int {
	costs := make(map[model.Position][]int)
	for _, c := range cands {
		costs[c.Player.Position] = append(costs[c.Player.Position], c.Player.Cost)
	}
	total := 0
	for _, pos := range model.Positions {
		cs := costs[pos]
		sort.Ints(cs)
		for i := 0; i < r.Quota[pos] && i < len(cs); i++ {
			total += cs[i]
		}
	}
	return total
}

// candidates keeps projections with positive expected points, ordered by player id.
func candidates(projections []model.Projection) ([]model.Projection, error) {
	out := make([]model.Projection, 0, len(projections))
	seen := make(map[int]bool, len(projections))
	for _, p := range projections {
		if seen[p.PlayerID] {
			return nil, fmt.Errorf("duplicate projection for player %d", p.PlayerID)
		}
		seen[p.PlayerID] = true
		if !p.Player.Position.Valid() {
			return nil, fmt.Errorf("player %d has invalid position %d", p.PlayerID, int(p.Player.Position))
		}
		if p.ExpectedPoints <= 0 {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PlayerID < out[j].PlayerID })
	return out, nil
}
