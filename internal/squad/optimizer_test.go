package squad

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aatrey56/fpl-squad-planner/internal/model"
	"github.com/aatrey56/fpl-squad-planner/internal/solver"
)

func proj(id, team int, pos model.Position, cost int, ep float64) model.Projection {
	return model.Projection{
		PlayerID:       id,
		Round:          12,
		Player:         model.Player{ID: id, Team: team, Position: pos, Cost: cost, Status: model.Available},
		ExpectedPoints: ep,
	}
}

func newOptimizer() *Optimizer {
	return New(solver.NewBranchAndBound(zerolog.Nop()), zerolog.Nop())
}

// basePool returns 3 GK, 6 DEF, 6 MID, 4 FWD, each on its own club, all cost 50.
// Within each position the expected points fall as the id rises.
func basePool() []model.Projection {
	var out []model.Projection
	id, team := 1, 1
	add := func(pos model.Position, n int, top float64) {
		for i := 0; i < n; i++ {
			out = append(out, proj(id, team, pos, 50, top-float64(i)))
			id++
			team++
		}
	}
	add(model.Goalkeeper, 3, 5)
	add(model.Defender, 6, 6)
	add(model.Midfielder, 6, 8)
	add(model.Forward, 4, 7)
	return out
}

func ids(sq model.Squad) []int {
	out := make([]int, 0, len(sq.Players))
	for _, p := range sq.Players {
		out = append(out, p.PlayerID)
	}
	return out
}

func TestOptimizePicksBestPerPosition(t *testing.T) {
	o := newOptimizer()
	sq, err := o.Optimize(context.Background(), basePool(), DefaultBudget)
	require.NoError(t, err)

	require.NoError(t, o.Rules.Check(sq, DefaultBudget))
	// GK 1,2; DEF 4-8; MID 10-14; FWD 16-18.
	assert.Equal(t, []int{1, 2, 4, 5, 6, 7, 8, 10, 11, 12, 13, 14, 16, 17, 18}, ids(sq))
	assert.Equal(t, 750, sq.TotalCost)
	assert.Equal(t, 12, sq.Round)
}

func TestOptimizeRespectsClubLimit(t *testing.T) {
	pool := basePool()
	// Move the top four midfielders (ids 10-13) to club 99.
	for i := range pool {
		if pool[i].PlayerID >= 10 && pool[i].PlayerID <= 13 {
			pool[i].Player.Team = 99
		}
	}
	o := newOptimizer()
	sq, err := o.Optimize(context.Background(), pool, DefaultBudget)
	require.NoError(t, err)
	require.NoError(t, o.Rules.Check(sq, DefaultBudget))

	assert.NotContains(t, ids(sq), 13, "fourth club-99 midfielder must be dropped")
	assert.Contains(t, ids(sq), 15)
}

func TestOptimizeRespectsBudget(t *testing.T) {
	pool := basePool()
	// Make the best forward expensive: 14 players at 50 + 120 exceeds 800 by 20.
	for i := range pool {
		if pool[i].PlayerID == 16 {
			pool[i].Player.Cost = 120
		}
	}
	o := newOptimizer()
	sq, err := o.Optimize(context.Background(), pool, 800)
	require.NoError(t, err)
	require.NoError(t, o.Rules.Check(sq, 800))
	assert.NotContains(t, ids(sq), 16)
	assert.Contains(t, ids(sq), 19)
	assert.LessOrEqual(t, sq.TotalCost, 800)
}

func TestOptimizeInfeasible(t *testing.T) {
	tests := []struct {
		name   string
		pool   func() []model.Projection
		budget int
		substr string
	}{
		{
			name: "too few keepers",
			pool: func() []model.Projection {
				var out []model.Projection
				for _, p := range basePool() {
					if p.Player.Position == model.Goalkeeper && p.PlayerID != 1 {
						continue
					}
					out = append(out, p)
				}
				return out
			},
			budget: DefaultBudget,
			substr: "GK",
		},
		{
			name: "zero-point keepers do not count",
			pool: func() []model.Projection {
				out := basePool()
				for i := range out {
					if out[i].PlayerID == 2 || out[i].PlayerID == 3 {
						out[i].ExpectedPoints = 0
					}
				}
				return out
			},
			budget: DefaultBudget,
			substr: "GK",
		},
		{
			name:   "budget too small",
			pool:   basePool,
			budget: 700,
			substr: "budget",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			sq, err := newOptimizer().Optimize(context.Background(), tc.pool(), tc.budget)
			require.ErrorIs(t, err, ErrInfeasible)
			assert.Contains(t, err.Error(), tc.substr)
			assert.Empty(t, sq.Players)
		})
	}
}

func TestOptimizeTimeout(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newOptimizer().Optimize(ctx, basePool(), DefaultBudget)
	require.ErrorIs(t, err, ErrTimeout)
}

func TestOptimizeRejectsDuplicates(t *testing.T) {
	pool := append(basePool(), proj(1, 1, model.Goalkeeper, 50, 5))
	_, err := newOptimizer().Optimize(context.Background(), pool, DefaultBudget)
	require.Error(t, err)
}

type badSolver struct{}

func (badSolver) Solve(ctx context.Context, p solver.Problem) (solver.Solution, error) {
	v := make([]bool, len(p.Objective))
	v[0] = true
	return solver.Solution{Values: v}, nil
}

func TestOptimizeValidatesSolverOutput(t *testing.T) {
	o := New(badSolver{}, zerolog.Nop())
	sq, err := o.Optimize(context.Background(), basePool(), DefaultBudget)
	require.ErrorIs(t, err, ErrInfeasible)
	assert.Empty(t, sq.Players)
}

func TestPruneDropsDominated(t *testing.T) {
	r := DefaultRules()
	var pool []model.Projection
	// Ten better, cheaper forwards on ten clubs, then the target.
	for i := 1; i <= 10; i++ {
		pool = append(pool, proj(i, i, model.Forward, 50, 6))
	}
	pool = append(pool, proj(11, 11, model.Forward, 60, 5))
	// A cheap but weak forward is never dominated on cost.
	pool = append(pool, proj(12, 12, model.Forward, 40, 1))

	kept := prune(pool, r)
	keptIDs := make([]int, 0, len(kept))
	for _, p := range kept {
		keptIDs = append(keptIDs, p.PlayerID)
	}
	assert.NotContains(t, keptIDs, 11)
	assert.Contains(t, keptIDs, 12)
	assert.Contains(t, keptIDs, 1)
}

func TestPruneKeepsWhenClubsConcentrated(t *testing.T) {
	r := DefaultRules()
	var pool []model.Projection
	// Ten dominators but only on two clubs: not enough to guarantee a swap.
	for i := 1; i <= 10; i++ {
		pool = append(pool, proj(i, 1+i%2, model.Forward, 50, 6))
	}
	pool = append(pool, proj(11, 11, model.Forward, 60, 5))
	kept := prune(pool, r)
	assert.Len(t, kept, 11)
}

// seededPool spreads players over clubs at random; points track cost with noise, as they do in a
// real season.
func seededPool(seed int64, counts map[model.Position]int, clubs int) []model.Projection {
	rng := rand.New(rand.NewSource(seed))
	var out []model.Projection
	id := 1
	for _, pos := range model.Positions {
		for i := 0; i < counts[pos]; i++ {
			cost := 40 + rng.Intn(100)
			ep := float64(cost)/25 + rng.Float64()*2 - 0.5
			out = append(out, proj(id, 1+rng.Intn(clubs), pos, cost, ep))
			id++
		}
	}
	return out
}

func TestOptimizeFullSizePool(t *testing.T) {
	pool := seededPool(1, map[model.Position]int{
		model.Goalkeeper: 50,
		model.Defender:   170,
		model.Midfielder: 200,
		model.Forward:    80,
	}, 20)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()
	o := newOptimizer()
	start := time.Now()
	sq, err := o.Optimize(ctx, pool, DefaultBudget)
	require.NoError(t, err, "after %s", time.Since(start))
	require.NoError(t, o.Rules.Check(sq, DefaultBudget))
	assertNoImprovingSwap(t, o.Rules, sq, pool, DefaultBudget)
}

// smallPool is feasible by construction: the first quota players of each position sit on clubs
// that never exceed the cap, and the budget covers them.
func smallPool(rng *rand.Rand) ([]model.Projection, int) {
	counts := map[model.Position]int{model.Goalkeeper: 4, model.Defender: 10, model.Midfielder: 10, model.Forward: 6}
	offset := map[model.Position]int{model.Goalkeeper: 0, model.Defender: 2, model.Midfielder: 7, model.Forward: 3}
	quota := DefaultRules().Quota

	var out []model.Projection
	id, reference := 1, 0
	for _, pos := range model.Positions {
		for k := 0; k < counts[pos]; k++ {
			cost := 40 + rng.Intn(60)
			ep := 0.5 + rng.Float64()*8
			out = append(out, proj(id, (k+offset[pos])%10+1, pos, cost, ep))
			if k < quota[pos] {
				reference += cost
			}
			id++
		}
	}
	return out, reference + rng.Intn(150)
}

func TestOptimizeRandomPoolsProduceValidSquads(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	o := newOptimizer()
	for trial := 0; trial < 30; trial++ {
		pool, budget := smallPool(rng)
		sq, err := o.Optimize(context.Background(), pool, budget)
		require.NoError(t, err, "trial %d", trial)
		require.NoError(t, o.Rules.Check(sq, budget), "trial %d", trial)
		assert.Len(t, sq.Players, 15, "trial %d", trial)
		assertNoImprovingSwap(t, o.Rules, sq, pool, budget)
	}
}

// assertNoImprovingSwap checks that no single same-position exchange with an unpicked player
// stays legal and scores more.
func assertNoImprovingSwap(t *testing.T, r Rules, sq model.Squad, pool []model.Projection, budget int) {
	t.Helper()
	picked := make(map[int]bool, len(sq.Players))
	clubs := make(map[int]int)
	for _, p := range sq.Players {
		picked[p.PlayerID] = true
		clubs[p.Player.Team]++
	}
	for _, out := range sq.Players {
		for _, in := range pool {
			if picked[in.PlayerID] || in.Player.Position != out.Player.Position {
				continue
			}
			if sq.TotalCost-out.Player.Cost+in.Player.Cost > budget {
				continue
			}
			if in.Player.Team != out.Player.Team && clubs[in.Player.Team] >= r.MaxPerTeam {
				continue
			}
			assert.LessOrEqual(t, in.ExpectedPoints, out.ExpectedPoints+1e-9,
				"swapping %d for %d improves the squad", out.PlayerID, in.PlayerID)
		}
	}
}
