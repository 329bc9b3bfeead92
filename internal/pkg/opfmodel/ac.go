package opfmodel

import (
	"fmt"
	"math"

	"github.com/amir013/opf/internal/pkg/admittance"
	"github.com/amir013/opf/internal/pkg/network"
)

// BuildAC assembles the full nonlinear AC optimal power flow problem
// for the given network, deriving the admittance matrices from the
// line table.
func BuildAC(net network.Network) (*Problem, error) {
	adm, err := admittance.Build(net.Lines, len(net.Buses))
	if err != nil {
		return nil, err
	}
	return BuildACWithAdmittance(net, adm)
}

// BuildACWithAdmittance assembles the AC problem against precomputed
// admittance matrices (as when the network data ships with the
// matrices instead of line impedances).
//
// Variable families, indexed by bus: Pg, Qg, V, theta. The slack bus
// voltage is pinned at nameplate with angle zero; non-generator buses
// have Pg and Qg pinned at zero. The objective is the quadratic
// generation cost summed over generator buses, minimized. The real and
// reactive nodal balance equations are carried as Balance data and
// evaluated through the Problem residual methods.
func BuildACWithAdmittance(net network.Network, adm admittance.Matrices) (*Problem, error) {
	if err := net.Validate(); err != nil {
		return nil, err
	}
	n := len(net.Buses)
	if adm.Order() != n {
		return nil, fmt.Errorf("admittance order %d does not match %d buses", adm.Order(), n)
	}

	p := &Problem{
		Name:  "AC_OPF",
		Buses: n,
		Vars:  make([]Variable, 0, 4*n),
		index: make(map[VarKind][]int),
	}

	for _, kind := range []VarKind{RealPower, ReactivePower, VoltageMag, VoltageAng} {
		cols := make([]int, n)
		for i := 0; i < n; i++ {
			cols[i] = len(p.Vars)
			p.Vars = append(p.Vars, newACVariable(net, kind, i))
		}
		p.index[kind] = cols
	}

	for _, i := range net.Generators() {
		b := net.Buses[i]
		p.Obj.Terms = append(p.Obj.Terms, QuadTerm{
			Var:  p.VarIndex(RealPower, i),
			Quad: b.CostA,
			Lin:  b.CostB,
		})
		p.Obj.Constant += b.CostC
	}

	pload := make([]float64, n)
	qload := make([]float64, n)
	for i, b := range net.Buses {
		pload[i] = b.Pload
		qload[i] = b.Qload
	}
	p.Balance = &Balance{G: adm.G, B: adm.B, Pload: pload, Qload: qload}

	return p, nil
}

func newACVariable(net network.Network, kind VarKind, i int) Variable {
	b := net.Buses[i]
	v := Variable{
		Name: fmt.Sprintf("%s[%d]", kind, i),
		Kind: kind,
		Bus:  i,
	}
	switch kind {
	case RealPower:
		v.Lower, v.Upper = b.PGmin, b.PGmax
		if !net.IsGenerator(i) {
			v.Fixed = true
			v.Value = 0
		}
	case ReactivePower:
		v.Lower, v.Upper = b.QGmin, b.QGmax
		if !net.IsGenerator(i) {
			v.Fixed = true
			v.Value = 0
		}
	case VoltageMag:
		v.Lower, v.Upper = b.Vmin, b.Vmax
		if i == net.Slack {
			v.Fixed = true
			v.Value = net.SlackVoltage()
		}
	case VoltageAng:
		// The angle bound applies to every bus; on the slack it is
		// vacuous under the fixing but harmless.
		v.Lower, v.Upper = -math.Pi, math.Pi
		if i == net.Slack {
			v.Fixed = true
			v.Value = 0
		}
	}
	return v
}
