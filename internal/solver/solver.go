// Package solver defines a narrow interface for 0/1 linear selection problems and an exact
// branch-and-bound implementation over LP relaxations.
package solver

import (
	"context"
	"errors"
	"fmt"
	"math"
)

var (
	ErrInfeasible = errors.New("problem is infeasible")
	ErrTimeout    = errors.New("solver did not finish")
)

type Sense int

const (
	LessEq Sense = iota + 1
	Equal
	GreaterEq
)

func (s Sense) String() string {
	switch s {
	case LessEq:
		return "<="
	case Equal:
		return "=="
	case GreaterEq:
		return ">="
	default:
		return "?"
	}
}

type Term struct {
	Var   int
	Coeff float64
}

type Constraint struct {
	Name  string
	Terms []Term
	Sense Sense
	RHS   float64
}

// Problem selects a 0/1 value for each objective entry subject to linear constraints.
type Problem struct {
	Objective   []float64
	Constraints []Constraint
	Maximize    bool
}

type Solution struct {
	Values    []bool
	Objective float64
	Nodes     int
}

// Selected returns the indices of variables set to 1, ascending.
func (s Solution) Selected() []int {
	out := make([]int, 0)
	for i, v := range s.Values {
		if v {
			out = append(out, i)
		}
	}
	return out
}

type Solver interface {
	Solve(ctx context.Context, p Problem) (Solution, error)
}

// Validate checks the problem is well formed.
func (p Problem) Validate() error {
	n := len(p.Objective)
	if n == 0 {
		return fmt.Errorf("problem has no variables")
	}
	for i, c := range p.Objective {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return fmt.Errorf("objective[%d] is not finite", i)
		}
	}
	for _, c := range p.Constraints {
		switch c.Sense {
		case LessEq, Equal, GreaterEq:
		default:
			return fmt.Errorf("constraint %q: unknown sense %d", c.Name, c.Sense)
		}
		if math.IsNaN(c.RHS) || math.IsInf(c.RHS, 0) {
			return fmt.Errorf("constraint %q: rhs is not finite", c.Name)
		}
		for _, t := range c.Terms {
			if t.Var < 0 || t.Var >= n {
				return fmt.Errorf("constraint %q: variable %d out of range", c.Name, t.Var)
			}
			if math.IsNaN(t.Coeff) || math.IsInf(t.Coeff, 0) {
				return fmt.Errorf("constraint %q: coefficient for %d is not finite", c.Name, t.Var)
			}
		}
	}
	return nil
}

// Satisfied reports whether values meet the constraint within tol.
func (c Constraint) Satisfied(values []bool, tol float64) bool {
	lhs := 0.0
	for _, t := range c.Terms {
		if values[t.Var] {
			lhs += t.Coeff
		}
	}
	return senseHolds(c.Sense, lhs, c.RHS, tol)
}

// bounds returns the smallest and largest left-hand side any 0/1 assignment can reach.
func (c Constraint) bounds() (lo, hi float64) {
	for _, t := range c.Terms {
		if t.Coeff < 0 {
			lo += t.Coeff
		} else {
			hi += t.Coeff
		}
	}
	return lo, hi
}

func senseHolds(s Sense, lhs, rhs, tol float64) bool {
	switch s {
	case LessEq:
		return lhs <= rhs+tol
	case GreaterEq:
		return lhs >= rhs-tol
	default:
		return math.Abs(lhs-rhs) <= tol
	}
}

// presolve rejects constraints that no 0/1 assignment can satisfy on their own.
func presolve(p Problem, tol float64) error {
	for _, c := range p.Constraints {
		lo, hi := c.bounds()
		switch c.Sense {
		case LessEq:
			if lo > c.RHS+tol {
				return fmt.Errorf("%w: %s needs at most %g, minimum reachable %g", ErrInfeasible, c.Name, c.RHS, lo)
			}
		case GreaterEq:
			if hi < c.RHS-tol {
				return fmt.Errorf("%w: %s needs at least %g, maximum reachable %g", ErrInfeasible, c.Name, c.RHS, hi)
			}
		case Equal:
			if lo > c.RHS+tol || hi < c.RHS-tol {
				return fmt.Errorf("%w: %s needs exactly %g, reachable range [%g, %g]", ErrInfeasible, c.Name, c.RHS, lo, hi)
			}
		}
	}
	return nil
}
