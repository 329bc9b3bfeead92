// Package highslp solves linear (and convex quadratic) power flow
// problems locally through the HiGHS solver.
package highslp

import (
	"context"
	"errors"
	"time"

	"github.com/amir013/opf/internal/pkg/opfmodel"
	"github.com/amir013/opf/internal/pkg/solver"
	"github.com/bartolsthoorn/gohighs/highs"
)

// ErrNonlinear is returned for problems carrying nonlinear balance
// constraints; those are out of reach for an LP/QP backend.
var ErrNonlinear = errors.New("problem has nonlinear balance constraints")

// Backend runs HiGHS in-process.
type Backend struct{}

// New returns a HiGHS-backed solver.
func New() Backend {
	return Backend{}
}

// Translate maps an assembled problem onto the HiGHS model layout:
// one column per variable (fixed variables become equal bounds), the
// linear objective in ColCosts with quadratic terms on the Hessian
// diagonal, and one equality row per balance equation.
func Translate(p *opfmodel.Problem) (highs.Model, error) {
	if p.Balance != nil {
		return highs.Model{}, ErrNonlinear
	}

	m := highs.Model{
		Offset:   p.Obj.Constant,
		ColCosts: make([]float64, len(p.Vars)),
		ColLower: make([]float64, len(p.Vars)),
		ColUpper: make([]float64, len(p.Vars)),
	}

	for i, v := range p.Vars {
		if v.Fixed {
			m.ColLower[i] = v.Value
			m.ColUpper[i] = v.Value
			continue
		}
		m.ColLower[i] = v.Lower
		m.ColUpper[i] = v.Upper
	}

	for _, t := range p.Obj.Terms {
		m.ColCosts[t.Var] += t.Lin
		if t.Quad != 0 {
			// HiGHS expects 0.5·x'Qx, so a·x² maps to Q_ii = 2a.
			m.Hessian = append(m.Hessian, highs.Nonzero{Row: t.Var, Col: t.Var, Val: 2 * t.Quad})
		}
	}

	for _, row := range p.Linear {
		m.AddEqRow(row.Coeffs, row.RHS)
	}

	return m, nil
}

// Solve translates and runs the problem, mapping the HiGHS termination
// status and primal values back onto the solution layout. Columns come
// back solved only when HiGHS reports a usable primal point.
func (b Backend) Solve(ctx context.Context, p *opfmodel.Problem) (solver.Solution, error) {
	if err := ctx.Err(); err != nil {
		return solver.Solution{}, err
	}

	m, err := Translate(p)
	if err != nil {
		return solver.Solution{}, err
	}

	opts := []highs.SolveOption{highs.WithOutput(false)}
	if deadline, ok := ctx.Deadline(); ok {
		opts = append(opts, highs.WithTimeLimit(time.Until(deadline).Seconds()))
	}

	sol, err := m.Solve(opts...)
	if err != nil {
		return solver.Solution{Status: solver.Failed}, err
	}

	out := solver.Solution{
		Status: mapStatus(sol),
		Values: make([]solver.Value, len(p.Vars)),
	}
	if sol.HasSolution() && len(sol.ColValues) == len(p.Vars) {
		for i, v := range sol.ColValues {
			out.Values[i] = solver.NewValue(v)
		}
		out.Cost = solver.NewValue(sol.Objective)
	}
	return out, nil
}

func mapStatus(sol *highs.Solution) solver.Status {
	switch {
	case sol.IsOptimal():
		return solver.Optimal
	case sol.IsInfeasible():
		return solver.Infeasible
	case sol.IsUnbounded():
		return solver.Unbounded
	case sol.IsTimeLimit():
		return solver.Interrupted
	}
	return solver.Failed
}
