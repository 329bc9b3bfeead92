// Package solver defines the interface between assembled optimization
// problems and the backends that solve them, along with the solution
// representation handed back to reporting.
package solver

import (
	"context"

	"github.com/amir013/opf/internal/pkg/opfmodel"
)

// Status is the termination condition reported by a backend.
type Status int

const (
	// Unsolved means no solve has completed for the problem.
	Unsolved Status = iota
	// Optimal means the backend proved optimality.
	Optimal
	// Infeasible means no point satisfies the constraints.
	Infeasible
	// Unbounded means the objective can decrease without limit.
	Unbounded
	// Interrupted means the solve stopped early (time limit,
	// cancellation) without a verdict.
	Interrupted
	// Failed means the backend errored out.
	Failed
)

func (s Status) String() string {
	switch s {
	case Unsolved:
		return "unsolved"
	case Optimal:
		return "optimal"
	case Infeasible:
		return "infeasible"
	case Unbounded:
		return "unbounded"
	case Interrupted:
		return "interrupted"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// Value is an optional solved value. The zero Value is the explicit
// "unsolved" sentinel, distinct from a solved zero.
type Value struct {
	val    float64
	solved bool
}

// NewValue wraps a solved value.
func NewValue(v float64) Value {
	return Value{val: v, solved: true}
}

// Get returns the value and whether the solver produced one.
func (v Value) Get() (float64, bool) {
	return v.val, v.solved
}

// Solution maps each problem column to its solved value, plus the
// objective at the solution. Values the backend did not return stay at
// the unsolved sentinel.
type Solution struct {
	Status Status
	Values []Value
	Cost   Value
}

// Value returns the solved value for column i.
func (s Solution) Value(i int) (float64, bool) {
	if i < 0 || i >= len(s.Values) {
		return 0, false
	}
	return s.Values[i].Get()
}

// Solver is a backend capable of solving assembled problems. A
// backend must not mutate the problem; the instance stays valid and
// re-solvable after any outcome.
type Solver interface {
	Solve(ctx context.Context, p *opfmodel.Problem) (Solution, error)
}
