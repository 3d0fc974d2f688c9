package solver

import (
	"container/heap"
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/rs/zerolog"
)

const DefaultTolerance = 1e-9

// BranchAndBound is an exact 0/1 solver. Each node's bound comes from the LP relaxation. The search
// dives depth first until it holds a feasible assignment, then expands the open node with the lowest
// bound. Variables whose reduced cost already closes the gap to the incumbent are fixed in the
// subtree. The search stops when ctx is done.
type BranchAndBound struct {
	Tolerance float64
	MaxNodes  int // 0 means unlimited
	Log       zerolog.Logger
}

func NewBranchAndBound(log zerolog.Logger) *BranchAndBound {
	return &BranchAndBound{
		Tolerance: DefaultTolerance,
		Log:       log.With().Str("component", "solver").Logger(),
	}
}

func (s *BranchAndBound) tol() float64 {
	if s.Tolerance > 0 {
		return s.Tolerance
	}
	return DefaultTolerance
}

// node is an open subproblem. bound is its parent's relaxation value in minimisation form.
type node struct {
	fix   []int8
	bound float64
	seq   int
}

// openNodes is a min-heap on bound; earlier nodes win ties.
type openNodes []*node

func (q openNodes) Len() int { return len(q) }
func (q openNodes) Less(i, j int) bool {
	if q[i].bound != q[j].bound {
		return q[i].bound < q[j].bound
	}
	return q[i].seq < q[j].seq
}
func (q openNodes) Swap(i, j int) { q[i], q[j] = q[j], q[i] }
func (q *openNodes) Push(x any)   { *q = append(*q, x.(*node)) }
func (q *openNodes) Pop() any {
	old := *q
	nd := old[len(old)-1]
	*q = old[:len(old)-1]
	return nd
}

func (s *BranchAndBound) Solve(ctx context.Context, p Problem) (Solution, error) {
	if err := p.Validate(); err != nil {
		return Solution{}, err
	}
	tol := s.tol()
	if err := presolve(p, tol); err != nil {
		return Solution{}, err
	}

	n := len(p.Objective)
	cost := make([]float64, n)
	for i, v := range p.Objective {
		if p.Maximize {
			cost[i] = -v
		} else {
			cost[i] = v
		}
	}

	root := make([]int8, n)
	for i := range root {
		root[i] = free
	}

	var (
		best    []bool
		bestVal = math.Inf(1)
		nodes   int
		fixed   int
		seq     int
		open    openNodes
	)
	// Integrality and pruning use a looser tolerance than the simplex itself.
	intTol := math.Max(tol, 1e-6)

	newNode := func(fix []int8, bound float64) *node {
		seq++
		return &node{fix: fix, bound: bound, seq: seq}
	}
	// branch opens both children of fix on variable v. Until an incumbent exists the preferred
	// child is returned for the dive; afterwards both go on the heap.
	branch := func(fix []int8, v int, bound float64, preferOne bool) *node {
		zero := make([]int8, n)
		copy(zero, fix)
		zero[v] = fixed0
		one := make([]int8, n)
		copy(one, fix)
		one[v] = fixed1
		first, second := newNode(zero, bound), newNode(one, bound)
		if preferOne {
			first, second = second, first
		}
		heap.Push(&open, second)
		if best == nil {
			return first
		}
		heap.Push(&open, first)
		return nil
	}

	dive := newNode(root, math.Inf(-1))
	for dive != nil || open.Len() > 0 {
		if err := ctx.Err(); err != nil {
			return Solution{}, fmt.Errorf("%w after %d nodes: %v", ErrTimeout, nodes, err)
		}
		if s.MaxNodes > 0 && nodes >= s.MaxNodes {
			return Solution{}, fmt.Errorf("%w: node limit %d reached", ErrTimeout, s.MaxNodes)
		}

		nd := dive
		dive = nil
		if nd == nil {
			nd = heap.Pop(&open).(*node)
		}
		if best != nil && nd.bound >= bestVal-intTol {
			continue
		}
		nodes++

		r, err := relax(cost, p.Constraints, nd.fix, tol)
		switch {
		case errors.Is(err, errNodeInfeasible):
			continue
		case errors.Is(err, errRelaxFailed):
			// No bound for this node: split it and keep the parent's bound.
			s.Log.Debug().Int("node", nodes).Msg("relaxation failed, branching without bound")
			if v := firstFree(nd.fix); v >= 0 {
				dive = branch(nd.fix, v, nd.bound, true)
			}
			continue
		case err != nil:
			return Solution{}, err
		}
		if best != nil && r.value >= bestVal-intTol {
			continue
		}

		v := mostFractional(r.x, nd.fix, intTol)
		if v < 0 {
			values := make([]bool, n)
			for i, x := range r.x {
				values[i] = x > 0.5
			}
			if feasible(p.Constraints, values, intTol) {
				val := objective(cost, values)
				if best == nil || val < bestVal-intTol {
					best, bestVal = values, val
					s.Log.Debug().Int("node", nodes).Float64("objective", signed(val, p.Maximize)).Msg("new incumbent")
				}
				continue
			}
			// Rounding broke a constraint: keep splitting instead of dropping the node.
			if v = mostFractional(r.x, nd.fix, 0); v < 0 {
				v = firstFree(nd.fix)
			}
			if v < 0 {
				continue
			}
		}

		fix := nd.fix
		if best != nil {
			var k int
			fix, k = tighten(fix, r, bestVal-intTol)
			fixed += k
		}
		dive = branch(fix, v, r.value, r.x[v] >= 0.5)
	}

	if best == nil {
		return Solution{}, fmt.Errorf("%w: no assignment satisfies every constraint", ErrInfeasible)
	}
	s.Log.Debug().
		Int("nodes", nodes).
		Int("reduced_cost_fixings", fixed).
		Float64("objective", signed(bestVal, p.Maximize)).
		Msg("solved")
	return Solution{
		Values:    best,
		Objective: Evaluate(p, best),
		Nodes:     nodes,
	}, nil
}

// tighten fixes every free variable whose move off its relaxed bound would lift the bound to
// limit or beyond. No assignment in the subtree that beats the incumbent can move it.
func tighten(fix []int8, r relaxation, limit float64) ([]int8, int) {
	out := make([]int8, len(fix))
	copy(out, fix)
	k := 0
	for i, f := range fix {
		if f != free || r.reduced[i] <= 0 || r.value+r.reduced[i] < limit {
			continue
		}
		if r.x[i] > 0.5 {
			out[i] = fixed1
		} else {
			out[i] = fixed0
		}
		k++
	}
	return out, k
}

// Evaluate returns the objective of values in the problem's own sense.
func Evaluate(p Problem, values []bool) float64 {
	total := 0.0
	for i, v := range values {
		if v {
			total += p.Objective[i]
		}
	}
	return total
}

// mostFractional returns the free variable farthest from integral beyond tol, or -1.
func mostFractional(x []float64, fix []int8, tol float64) int {
	idx := -1
	best := tol
	for i, v := range x {
		if fix[i] != free {
			continue
		}
		f := math.Abs(v - math.Round(v))
		if f > best {
			best, idx = f, i
		}
	}
	return idx
}

func firstFree(fix []int8) int {
	for i, f := range fix {
		if f == free {
			return i
		}
	}
	return -1
}

func feasible(cons []Constraint, values []bool, tol float64) bool {
	for _, c := range cons {
		if !c.Satisfied(values, tol) {
			return false
		}
	}
	return true
}

func objective(cost []float64, values []bool) float64 {
	total := 0.0
	for i, v := range values {
		if v {
			total += cost[i]
		}
	}
	return total
}

func signed(v float64, maximize bool) float64 {
	if maximize {
		return -v
	}
	return v
}
