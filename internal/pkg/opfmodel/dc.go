package opfmodel

import (
	"fmt"
	"math"

	"github.com/amir013/opf/internal/pkg/admittance"
	"github.com/amir013/opf/internal/pkg/network"
)

// BuildDC assembles the linearized DC optimal power flow problem for
// the given network, deriving the admittance matrices from the line
// table.
func BuildDC(net network.Network) (*Problem, error) {
	adm, err := admittance.Build(net.Lines, len(net.Buses))
	if err != nil {
		return nil, err
	}
	return BuildDCWithAdmittance(net, adm)
}

// BuildDCWithAdmittance assembles the DC problem against precomputed
// admittance matrices.
//
// The DC approximation takes |V| = 1 everywhere, sin(Δθ) ≈ Δθ and
// neglects losses, which reduces each nodal balance to the linear
// equality
//
//	Pg[i] - Pload[i] = Σ_k B[i,k]·(θi - θk)
//
// and the cost to its linear term b·Pg (the quadratic a and constant c
// coefficients drop out of the standard DC formulation). The result is
// a linear program over the Pg and theta families.
func BuildDCWithAdmittance(net network.Network, adm admittance.Matrices) (*Problem, error) {
	if err := net.Validate(); err != nil {
		return nil, err
	}
	n := len(net.Buses)
	if adm.Order() != n {
		return nil, fmt.Errorf("admittance order %d does not match %d buses", adm.Order(), n)
	}

	p := &Problem{
		Name:  "DC_OPF",
		Buses: n,
		Vars:  make([]Variable, 0, 2*n),
		index: make(map[VarKind][]int),
	}

	pgCols := make([]int, n)
	for i, b := range net.Buses {
		pgCols[i] = len(p.Vars)
		v := Variable{
			Name:  fmt.Sprintf("%s[%d]", RealPower, i),
			Kind:  RealPower,
			Bus:   i,
			Lower: b.PGmin,
			Upper: b.PGmax,
		}
		if !net.IsGenerator(i) {
			v.Fixed = true
		}
		p.Vars = append(p.Vars, v)
	}
	p.index[RealPower] = pgCols

	thCols := make([]int, n)
	for i := 0; i < n; i++ {
		thCols[i] = len(p.Vars)
		v := Variable{
			Name:  fmt.Sprintf("%s[%d]", VoltageAng, i),
			Kind:  VoltageAng,
			Bus:   i,
			Lower: -math.Pi,
			Upper: math.Pi,
		}
		if i == net.Slack {
			v.Fixed = true
		}
		p.Vars = append(p.Vars, v)
	}
	p.index[VoltageAng] = thCols

	for _, i := range net.Generators() {
		p.Obj.Terms = append(p.Obj.Terms, QuadTerm{
			Var: p.VarIndex(RealPower, i),
			Lin: net.Buses[i].CostB,
		})
	}

	// One balance row per bus: Pg[i] + Σ_{k≠i} B[i,k]·(θk - θi) = Pload[i].
	for i := 0; i < n; i++ {
		row := LinearRow{
			Name:   fmt.Sprintf("p_balance[%d]", i),
			Coeffs: make([]float64, len(p.Vars)),
			RHS:    net.Buses[i].Pload,
		}
		row.Coeffs[pgCols[i]] = 1
		for k := 0; k < n; k++ {
			if k == i {
				continue
			}
			bik := adm.B.At(i, k)
			row.Coeffs[thCols[k]] += bik
			row.Coeffs[thCols[i]] -= bik
		}
		p.Linear = append(p.Linear, row)
	}

	return p, nil
}
