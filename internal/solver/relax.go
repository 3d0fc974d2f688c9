package solver

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

var (
	errNodeInfeasible = errors.New("relaxation infeasible")
	// errRelaxFailed means the relaxation gave no usable bound; the node is still branched.
	errRelaxFailed = errors.New("relaxation did not converge")
)

const (
	free   int8 = -1
	fixed0 int8 = 0
	fixed1 int8 = 1
)

const (
	// Consecutive degenerate pivots tolerated before switching to Bland's rule.
	degenerateLimit = 50
	// Pivot budget per relaxation, scaled by the tableau size.
	iterationFactor = 50
)

// relaxation is the LP bound of one branch-and-bound node in minimisation form.
type relaxation struct {
	value float64
	x     []float64 // one entry per problem variable
	// reduced is how much the bound rises per unit a nonbasic free variable moves off its current
	// bound. Zero for basic and fixed variables.
	reduced []float64
}

type row struct {
	coeffs []float64 // indexed by position in the free list
	sense  Sense
	rhs    float64
}

// relax solves the LP relaxation with the given variable fixings. cost is already in
// minimisation form. Free variables keep their [0,1] bounds implicitly, so the tableau has one row
// per constraint only.
func relax(cost []float64, cons []Constraint, fix []int8, tol float64) (relaxation, error) {
	n := len(cost)
	freeIdx := make([]int, 0, n)
	col := make([]int, n)
	constant := 0.0
	for i := 0; i < n; i++ {
		col[i] = -1
		switch fix[i] {
		case free:
			col[i] = len(freeIdx)
			freeIdx = append(freeIdx, i)
		case fixed1:
			constant += cost[i]
		}
	}
	nf := len(freeIdx)

	rows := make([]row, 0, len(cons))
	for _, c := range cons {
		r := row{coeffs: make([]float64, nf), sense: c.Sense, rhs: c.RHS}
		lo, hi := 0.0, 0.0
		for _, t := range c.Terms {
			switch fix[t.Var] {
			case fixed1:
				r.rhs -= t.Coeff
			case free:
				r.coeffs[col[t.Var]] += t.Coeff
			}
		}
		for _, v := range r.coeffs {
			if v < 0 {
				lo += v
			} else {
				hi += v
			}
		}
		// Rows no setting of the free variables can meet, or that every setting meets.
		switch c.Sense {
		case LessEq:
			if lo > r.rhs+tol {
				return relaxation{}, errNodeInfeasible
			}
			if hi <= r.rhs+tol {
				continue
			}
		case GreaterEq:
			if hi < r.rhs-tol {
				return relaxation{}, errNodeInfeasible
			}
			if lo >= r.rhs-tol {
				continue
			}
		case Equal:
			if lo > r.rhs+tol || hi < r.rhs-tol {
				return relaxation{}, errNodeInfeasible
			}
			if hi-lo <= tol {
				continue
			}
		}
		rows = append(rows, r)
	}

	x := make([]float64, n)
	for i := 0; i < n; i++ {
		if fix[i] == fixed1 {
			x[i] = 1
		}
	}
	reduced := make([]float64, n)

	c := make([]float64, nf)
	for j, i := range freeIdx {
		c[j] = cost[i]
	}
	if len(rows) == 0 {
		// Each free variable takes whichever bound is cheaper.
		value := constant
		for j, i := range freeIdx {
			if c[j] < 0 {
				x[i] = 1
				value += c[j]
			}
			reduced[i] = math.Abs(c[j])
		}
		return relaxation{value: value, x: x, reduced: reduced}, nil
	}

	sx, d, err := newSimplex(rows, nf, tol).solve(c)
	if err != nil {
		return relaxation{}, err
	}
	value := constant
	for j, i := range freeIdx {
		x[i] = sx[j]
		value += c[j] * sx[j]
		reduced[i] = d[j]
	}
	return relaxation{value: value, x: x, reduced: reduced}, nil
}

// simplex is a dense bounded-variable tableau: structural columns live in [0,1], slack and
// artificial columns in [0,inf). Nonbasic columns sit at one of their bounds.
type simplex struct {
	m, n    int // rows, structural columns
	slacks  int
	t       *mat.Dense // B^-1 A, m x (n+slacks+m)
	beta    []float64  // value of the basic column in each row
	basis   []int
	rowOf   []int // row of a basic column, -1 when nonbasic
	upper   []float64
	atUpper []bool
	d       []float64 // reduced costs
	rows    []row
	rhs     []float64 // sign-normalised right-hand sides
	tol     float64
	bland   bool
	degen   int
}

func newSimplex(rows []row, n int, tol float64) *simplex {
	m := len(rows)
	slacks := 0
	for _, r := range rows {
		if r.sense != Equal {
			slacks++
		}
	}
	cols := n + slacks + m
	s := &simplex{
		m:       m,
		n:       n,
		slacks:  slacks,
		t:       mat.NewDense(m, cols, nil),
		beta:    make([]float64, m),
		basis:   make([]int, m),
		rowOf:   make([]int, cols),
		upper:   make([]float64, cols),
		atUpper: make([]bool, cols),
		d:       make([]float64, cols),
		rows:    rows,
		rhs:     make([]float64, m),
		tol:     tol,
	}
	for j := range s.rowOf {
		s.rowOf[j] = -1
		if j < n {
			s.upper[j] = 1
		} else {
			s.upper[j] = math.Inf(1)
		}
	}

	slack, art := n, n+slacks
	for i, r := range rows {
		sign := 1.0
		if r.rhs < 0 {
			sign = -1
		}
		for j, v := range r.coeffs {
			if v != 0 {
				s.t.Set(i, j, sign*v)
			}
		}
		switch r.sense {
		case LessEq:
			s.t.Set(i, slack, sign)
			slack++
		case GreaterEq:
			s.t.Set(i, slack, -sign)
			slack++
		}
		s.t.Set(i, art+i, 1)
		s.rhs[i] = sign * r.rhs
		s.beta[i] = s.rhs[i]
		s.basis[i] = art + i
		s.rowOf[art+i] = i
	}
	return s
}

// solve runs both phases and returns the structural values and the reduced cost of moving each
// nonbasic structural column off its bound.
func (s *simplex) solve(c []float64) ([]float64, []float64, error) {
	cols := s.n + s.slacks + s.m
	enterable := s.n + s.slacks

	phase1 := make([]float64, cols)
	for j := enterable; j < cols; j++ {
		phase1[j] = 1
	}
	if err := s.iterate(phase1, enterable); err != nil {
		return nil, nil, err
	}
	scale := 1.0
	for _, b := range s.rhs {
		scale = math.Max(scale, math.Abs(b))
	}
	feasTol := 1e-7 * scale
	infeas := 0.0
	for i, j := range s.basis {
		if j >= enterable {
			infeas += s.beta[i]
		}
	}
	if infeas > feasTol {
		return nil, nil, errNodeInfeasible
	}
	// Artificials still basic sit at zero and must stay there.
	for j := enterable; j < cols; j++ {
		s.upper[j] = 0
		if r := s.rowOf[j]; r >= 0 {
			s.beta[r] = 0
		}
	}

	phase2 := make([]float64, cols)
	copy(phase2, c)
	if err := s.iterate(phase2, enterable); err != nil {
		return nil, nil, err
	}

	x := make([]float64, s.n)
	red := make([]float64, s.n)
	for j := 0; j < s.n; j++ {
		switch {
		case s.rowOf[j] >= 0:
			x[j] = clamp01(s.beta[s.rowOf[j]])
		case s.atUpper[j]:
			x[j] = 1
			red[j] = math.Max(0, -s.d[j])
		default:
			red[j] = math.Max(0, s.d[j])
		}
	}
	if !s.satisfies(x, feasTol) {
		return nil, nil, errRelaxFailed
	}
	return x, red, nil
}

// satisfies checks x against the original rows.
func (s *simplex) satisfies(x []float64, tol float64) bool {
	for _, r := range s.rows {
		if !senseHolds(r.sense, floats.Dot(r.coeffs, x), r.rhs, tol) {
			return false
		}
	}
	return true
}

func (s *simplex) iterate(c []float64, enterable int) error {
	s.price(c)
	s.bland, s.degen = false, 0
	limit := iterationFactor * (s.m + enterable)
	for it := 0; it < limit; it++ {
		j, dir := s.entering(enterable)
		if j < 0 {
			return nil
		}
		if err := s.step(j, dir); err != nil {
			return err
		}
	}
	return errRelaxFailed
}

// price recomputes reduced costs for cost vector c under the current basis.
func (s *simplex) price(c []float64) {
	copy(s.d, c)
	for i, j := range s.basis {
		if cb := c[j]; cb != 0 {
			floats.AddScaled(s.d, -cb, s.t.RawRowView(i))
		}
	}
}

// entering picks an improving nonbasic column and the direction it moves in: the largest
// reduced cost, or the lowest index once Bland's rule is on.
func (s *simplex) entering(enterable int) (int, float64) {
	best, bestJ, bestDir := s.tol, -1, 0.0
	for j := 0; j < enterable; j++ {
		if s.rowOf[j] >= 0 {
			continue
		}
		dj := s.d[j]
		var dir float64
		switch {
		case !s.atUpper[j] && dj < -s.tol:
			dir = 1
		case s.atUpper[j] && dj > s.tol:
			dir = -1
		default:
			continue
		}
		if s.bland {
			return j, dir
		}
		if a := math.Abs(dj); a > best {
			best, bestJ, bestDir = a, j, dir
		}
	}
	return bestJ, bestDir
}

// step moves column j in direction dir until it reaches its other bound or a basic column hits
// one of its bounds, then updates the basis.
func (s *simplex) step(j int, dir float64) error {
	theta := s.upper[j]
	leave, toUpper := -1, false
	pivotAbs := 0.0
	for i := 0; i < s.m; i++ {
		a := dir * s.t.At(i, j)
		var lim float64
		up := false
		switch {
		case a > s.tol:
			lim = s.beta[i] / a
		case a < -s.tol:
			u := s.upper[s.basis[i]]
			if math.IsInf(u, 1) {
				continue
			}
			lim = (u - s.beta[i]) / -a
			up = true
		default:
			continue
		}
		lim = math.Max(lim, 0)

		take := lim < theta-s.tol
		if !take && leave >= 0 && lim <= theta+s.tol {
			if s.bland {
				take = s.basis[i] < s.basis[leave]
			} else {
				take = math.Abs(a) > pivotAbs
			}
		}
		if take {
			theta = math.Min(theta, lim)
			leave, toUpper, pivotAbs = i, up, math.Abs(a)
		}
	}
	if math.IsInf(theta, 1) {
		return errRelaxFailed
	}

	if theta <= s.tol {
		s.degen++
		if s.degen > degenerateLimit {
			s.bland = true
		}
	} else {
		s.degen = 0
	}

	if theta > 0 {
		for i := 0; i < s.m; i++ {
			s.beta[i] -= dir * theta * s.t.At(i, j)
		}
	}
	if leave < 0 {
		s.atUpper[j] = !s.atUpper[j]
		return nil
	}

	enterVal := theta
	if dir < 0 {
		enterVal = s.upper[j] - theta
	}
	out := s.basis[leave]
	s.rowOf[out] = -1
	s.atUpper[out] = toUpper
	s.basis[leave] = j
	s.rowOf[j] = leave
	s.atUpper[j] = false
	s.beta[leave] = enterVal
	s.pivot(leave, j)
	return nil
}

func (s *simplex) pivot(r, j int) {
	prow := s.t.RawRowView(r)
	floats.Scale(1/prow[j], prow)
	prow[j] = 1
	for i := 0; i < s.m; i++ {
		if i == r {
			continue
		}
		ri := s.t.RawRowView(i)
		if f := ri[j]; f != 0 {
			floats.AddScaled(ri, -f, prow)
			ri[j] = 0
		}
	}
	if f := s.d[j]; f != 0 {
		floats.AddScaled(s.d, -f, prow)
		s.d[j] = 0
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
