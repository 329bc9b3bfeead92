// Package opfmodel assembles optimal power flow problems as plain data
// structures: a variable table with bounds and fixings, a quadratic
// cost objective, linear equality rows, and (for the AC formulation)
// the nodal power balance data. The package never invokes a solver;
// backends translate the Problem into whatever interface they drive.
package opfmodel

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// VarKind identifies the physical quantity a decision variable stands
// for.
type VarKind int

const (
	// RealPower is generator real power output Pg.
	RealPower VarKind = iota
	// ReactivePower is generator reactive power output Qg.
	ReactivePower
	// VoltageMag is bus voltage magnitude |V|.
	VoltageMag
	// VoltageAng is bus voltage angle theta, in radians.
	VoltageAng
)

func (k VarKind) String() string {
	switch k {
	case RealPower:
		return "Pg"
	case ReactivePower:
		return "Qg"
	case VoltageMag:
		return "V"
	case VoltageAng:
		return "theta"
	}
	return "unknown"
}

// Variable is one decision variable of the problem. A fixed variable
// must take exactly Value in any accepted solution; its box bounds are
// retained but vacuous.
type Variable struct {
	Name  string
	Kind  VarKind
	Bus   int
	Lower float64
	Upper float64
	Fixed bool
	Value float64
}

// QuadTerm contributes Quad*x² + Lin*x to the objective for variable
// index Var.
type QuadTerm struct {
	Var  int
	Quad float64
	Lin  float64
}

// Objective is a minimized quadratic cost function.
type Objective struct {
	Terms    []QuadTerm
	Constant float64
}

// Eval computes the objective value at point x.
func (o Objective) Eval(x []float64) float64 {
	v := o.Constant
	for _, t := range o.Terms {
		v += t.Quad*x[t.Var]*x[t.Var] + t.Lin*x[t.Var]
	}
	return v
}

// IsLinear reports whether every objective term is free of a quadratic
// coefficient.
func (o Objective) IsLinear() bool {
	for _, t := range o.Terms {
		if t.Quad != 0 {
			return false
		}
	}
	return true
}

// LinearRow is a dense equality constraint: Coeffs·x = RHS.
type LinearRow struct {
	Name   string
	Coeffs []float64
	RHS    float64
}

// Residual returns Coeffs·x - RHS at point x.
func (r LinearRow) Residual(x []float64) float64 {
	var v float64
	for i, c := range r.Coeffs {
		v += c * x[i]
	}
	return v - r.RHS
}

// Balance carries the data of the nonlinear AC nodal power balance
// constraints: the admittance matrices and the load vectors. The
// constraint set is one real and one reactive balance equation per
// bus, evaluated through the Problem residual methods.
type Balance struct {
	G     *mat.SymDense
	B     *mat.SymDense
	Pload []float64
	Qload []float64
}

// Problem is a fully assembled optimization problem instance. Each
// build produces an independent value; instances are never shared or
// mutated after construction.
type Problem struct {
	Name    string
	Buses   int
	Vars    []Variable
	Obj     Objective
	Linear  []LinearRow
	Balance *Balance

	index map[VarKind][]int
}

// IsLinear reports whether the problem is a pure linear program.
func (p *Problem) IsLinear() bool {
	return p.Balance == nil && p.Obj.IsLinear()
}

// VarIndex returns the column index of the variable of the given kind
// at the given bus, or -1 if the problem has no such family.
func (p *Problem) VarIndex(kind VarKind, bus int) int {
	cols, ok := p.index[kind]
	if !ok || bus < 0 || bus >= len(cols) {
		return -1
	}
	return cols[bus]
}

// VerifyFixed checks that a candidate solution honors every fixed
// variable. values reports the solved value for a column and whether
// the solver produced one; columns with no value are not checked here.
// A fixed variable outside tol of its pinned value is a contract
// violation regardless of which solver produced it.
func (p *Problem) VerifyFixed(values func(i int) (float64, bool), tol float64) error {
	for i, v := range p.Vars {
		if !v.Fixed {
			continue
		}
		x, ok := values(i)
		if !ok {
			continue
		}
		if math.Abs(x-v.Value) > tol {
			return fmt.Errorf("fixed variable %s = %g, solver returned %g", v.Name, v.Value, x)
		}
	}
	return nil
}

// RealBalanceResidual evaluates the real power balance at bus i for a
// candidate point x:
//
//	Pg[i] - Pload[i] - Σ_k V[i]·V[k]·(G[i,k]·cos(Δθ) + B[i,k]·sin(Δθ))
//
// For a DC problem the flow term degenerates to Σ_k B[i,k]·(θi-θk)
// through the linear rows instead; calling this on a problem without
// balance data panics.
func (p *Problem) RealBalanceResidual(i int, x []float64) float64 {
	b := p.Balance
	var flow float64
	vi := x[p.VarIndex(VoltageMag, i)]
	ti := x[p.VarIndex(VoltageAng, i)]
	for k := 0; k < p.Buses; k++ {
		vk := x[p.VarIndex(VoltageMag, k)]
		tk := x[p.VarIndex(VoltageAng, k)]
		d := ti - tk
		flow += vi * vk * (b.G.At(i, k)*math.Cos(d) + b.B.At(i, k)*math.Sin(d))
	}
	return x[p.VarIndex(RealPower, i)] - b.Pload[i] - flow
}

// ReactiveBalanceResidual evaluates the reactive power balance at bus
// i for a candidate point x:
//
//	Qg[i] - Qload[i] - Σ_k V[i]·V[k]·(G[i,k]·sin(Δθ) - B[i,k]·cos(Δθ))
func (p *Problem) ReactiveBalanceResidual(i int, x []float64) float64 {
	b := p.Balance
	var flow float64
	vi := x[p.VarIndex(VoltageMag, i)]
	ti := x[p.VarIndex(VoltageAng, i)]
	for k := 0; k < p.Buses; k++ {
		vk := x[p.VarIndex(VoltageMag, k)]
		tk := x[p.VarIndex(VoltageAng, k)]
		d := ti - tk
		flow += vi * vk * (b.G.At(i, k)*math.Sin(d) - b.B.At(i, k)*math.Cos(d))
	}
	return x[p.VarIndex(ReactivePower, i)] - b.Qload[i] - flow
}
