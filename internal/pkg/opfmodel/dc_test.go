package opfmodel

import (
	"math"
	"testing"

	"github.com/amir013/opf/internal/pkg/admittance"
	"github.com/amir013/opf/internal/pkg/network"
	"gotest.tools/v3/assert"
)

func TestBuildDCVariables(t *testing.T) {
	net := network.IEEE5()
	p, err := BuildDC(net)
	assert.NilError(t, err)

	assert.Equal(t, p.Name, "DC_OPF")
	assert.Equal(t, len(p.Vars), 10)
	assert.Assert(t, p.Balance == nil)
	assert.Assert(t, p.IsLinear())

	// No voltage magnitude family in the DC formulation.
	assert.Equal(t, p.VarIndex(VoltageMag, 0), -1)
	assert.Equal(t, p.VarIndex(ReactivePower, 0), -1)

	slackTheta := p.Vars[p.VarIndex(VoltageAng, 0)]
	assert.Assert(t, slackTheta.Fixed)
	assert.Equal(t, slackTheta.Value, 0.0)

	for _, i := range []int{3, 4} {
		pg := p.Vars[p.VarIndex(RealPower, i)]
		assert.Assert(t, pg.Fixed)
		assert.Equal(t, pg.Value, 0.0)
	}
}

func TestBuildDCObjectiveIsLinearBCost(t *testing.T) {
	net := network.IEEE5()
	p, err := BuildDC(net)
	assert.NilError(t, err)

	// The a and c coefficients drop out under the DC approximation.
	assert.Equal(t, len(p.Obj.Terms), 3)
	assert.Equal(t, p.Obj.Constant, 0.0)
	for _, term := range p.Obj.Terms {
		assert.Equal(t, term.Quad, 0.0)
	}

	x := make([]float64, len(p.Vars))
	x[p.VarIndex(RealPower, 0)] = 1.65
	assert.Assert(t, math.Abs(p.Obj.Eval(x)-23.1) < 1e-12)
}

func TestBuildDCBalanceRows(t *testing.T) {
	net := network.IEEE5()
	adm, err := admittance.Build(net.Lines, len(net.Buses))
	assert.NilError(t, err)

	p, err := BuildDCWithAdmittance(net, adm)
	assert.NilError(t, err)
	assert.Equal(t, len(p.Linear), 5)

	for i, row := range p.Linear {
		assert.Equal(t, row.RHS, net.Buses[i].Pload)
		assert.Equal(t, row.Coeffs[p.VarIndex(RealPower, i)], 1.0)

		// Off-diagonal theta coefficients mirror the susceptance row;
		// the diagonal balances them so the row sums to zero over the
		// angle family.
		var sum float64
		for k := 0; k < 5; k++ {
			c := row.Coeffs[p.VarIndex(VoltageAng, k)]
			sum += c
			if k != i {
				assert.Equal(t, c, adm.B.At(i, k))
			}
		}
		assert.Assert(t, math.Abs(sum) < 1e-12)
	}
}

// Summing every balance row eliminates the angle terms, leaving total
// generation equal to total load: the lossless-network identity.
func TestBuildDCRowsImplyLosslessBalance(t *testing.T) {
	net := network.IEEE5()
	p, err := BuildDC(net)
	assert.NilError(t, err)

	total := make([]float64, len(p.Vars))
	var rhs float64
	for _, row := range p.Linear {
		for j, c := range row.Coeffs {
			total[j] += c
		}
		rhs += row.RHS
	}

	for i := 0; i < 5; i++ {
		assert.Equal(t, total[p.VarIndex(RealPower, i)], 1.0)
		assert.Assert(t, math.Abs(total[p.VarIndex(VoltageAng, i)]) < 1e-12)
	}
	assert.Assert(t, math.Abs(rhs-net.TotalLoad()) < 1e-12)
}

// With no lines each row degenerates to Pg[i] = Pload[i]; a loaded bus
// without a generator then has no feasible point.
func TestBuildDCNoLines(t *testing.T) {
	net := network.IEEE5()
	net.Lines = nil

	p, err := BuildDC(net)
	assert.NilError(t, err)

	for i, row := range p.Linear {
		for j, c := range row.Coeffs {
			if j == p.VarIndex(RealPower, i) {
				assert.Equal(t, c, 1.0)
			} else {
				assert.Equal(t, c, 0.0)
			}
		}
	}

	// Bus 3 carries load but its generation is pinned at zero.
	row := p.Linear[3]
	pg := p.Vars[p.VarIndex(RealPower, 3)]
	assert.Assert(t, pg.Fixed)
	assert.Assert(t, row.RHS > 0)
}

func TestBuildDCRejectsZeroImpedance(t *testing.T) {
	net := network.IEEE5()
	net.Lines[2].R = 0
	net.Lines[2].X = 0
	_, err := BuildDC(net)
	assert.ErrorContains(t, err, "zero impedance")
}
