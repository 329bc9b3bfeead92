package admittance

import (
	"errors"
	"math"
	"testing"

	"github.com/amir013/opf/internal/pkg/network"
	"gotest.tools/v3/assert"
)

func TestSingleLine(t *testing.T) {
	// r=0.02, x=0.06: z² = 0.004, g = 5.0, b = -15.0.
	lines := []network.Line{{From: 0, To: 1, R: 0.02, X: 0.06}}
	m, err := Build(lines, 2)
	assert.NilError(t, err)

	assert.Equal(t, m.G.At(0, 0), 5.0)
	assert.Equal(t, m.G.At(1, 1), 5.0)
	assert.Equal(t, m.G.At(0, 1), -5.0)
	assert.Equal(t, m.B.At(0, 0), -15.0)
	assert.Equal(t, m.B.At(1, 1), -15.0)
	assert.Equal(t, m.B.At(0, 1), 15.0)
}

func TestSymmetry(t *testing.T) {
	net := network.IEEE5()
	m, err := Build(net.Lines, len(net.Buses))
	assert.NilError(t, err)

	for i := 0; i < 5; i++ {
		for j := 0; j < 5; j++ {
			assert.Equal(t, m.G.At(i, j), m.G.At(j, i))
			assert.Equal(t, m.B.At(i, j), m.B.At(j, i))
		}
	}
}

func TestDiagonalIsIncidentSum(t *testing.T) {
	net := network.IEEE5()
	m, err := Build(net.Lines, len(net.Buses))
	assert.NilError(t, err)

	for i := 0; i < 5; i++ {
		var sum float64
		for _, l := range net.Lines {
			if l.From != i && l.To != i {
				continue
			}
			sum += l.R / (l.R*l.R + l.X*l.X)
		}
		assert.Assert(t, math.Abs(m.G.At(i, i)-sum) < 1e-12)
	}
}

func TestRebuildIsIdentical(t *testing.T) {
	net := network.IEEE5()
	first, err := Build(net.Lines, len(net.Buses))
	assert.NilError(t, err)
	second, err := Build(net.Lines, len(net.Buses))
	assert.NilError(t, err)

	for i := 0; i < 5; i++ {
		for j := 0; j < 5; j++ {
			assert.Equal(t, first.G.At(i, j), second.G.At(i, j))
			assert.Equal(t, first.B.At(i, j), second.B.At(i, j))
		}
	}
}

func TestNoLinesGivesZeroMatrices(t *testing.T) {
	m, err := Build(nil, 3)
	assert.NilError(t, err)

	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			assert.Equal(t, m.G.At(i, j), 0.0)
			assert.Equal(t, m.B.At(i, j), 0.0)
		}
	}
}

func TestParallelLinesAccumulate(t *testing.T) {
	lines := []network.Line{
		{From: 0, To: 1, R: 0.02, X: 0.06},
		{From: 0, To: 1, R: 0.02, X: 0.06},
	}
	m, err := Build(lines, 2)
	assert.NilError(t, err)

	assert.Equal(t, m.G.At(0, 0), 10.0)
	assert.Equal(t, m.G.At(0, 1), -10.0)
	assert.Equal(t, m.B.At(0, 1), 30.0)
}

func TestZeroImpedanceRejected(t *testing.T) {
	lines := []network.Line{{From: 0, To: 1}}
	_, err := Build(lines, 2)
	assert.Assert(t, errors.Is(err, ErrZeroImpedance))
}

func TestOutOfRangeBusRejected(t *testing.T) {
	lines := []network.Line{{From: 0, To: 2, R: 0.01, X: 0.01}}
	_, err := Build(lines, 2)
	assert.ErrorContains(t, err, "outside")
}

func TestSelfLoopRejected(t *testing.T) {
	lines := []network.Line{{From: 1, To: 1, R: 0.01, X: 0.01}}
	_, err := Build(lines, 2)
	assert.ErrorContains(t, err, "itself")
}

func TestFromDense(t *testing.T) {
	g := [][]float64{{5, -5}, {-5, 5}}
	b := [][]float64{{-15, 15}, {15, -15}}
	m, err := FromDense(g, b)
	assert.NilError(t, err)
	assert.Equal(t, m.Order(), 2)
	assert.Equal(t, m.G.At(0, 1), -5.0)
	assert.Equal(t, m.B.At(1, 0), 15.0)
}

func TestFromDenseRejectsAsymmetric(t *testing.T) {
	g := [][]float64{{5, -5}, {-4, 5}}
	b := [][]float64{{-15, 15}, {15, -15}}
	_, err := FromDense(g, b)
	assert.ErrorContains(t, err, "asymmetric")
}
