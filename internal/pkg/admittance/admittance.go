// Package admittance derives the nodal conductance (G) and susceptance
// (B) matrices of a transmission network from its branch impedances.
package admittance

import (
	"errors"
	"fmt"

	"github.com/amir013/opf/internal/pkg/network"
	"gonum.org/v1/gonum/mat"
)

// ErrZeroImpedance marks a line with r = x = 0, which has no physical
// meaning and would divide by zero in the admittance conversion.
var ErrZeroImpedance = errors.New("line has zero impedance")

// Matrices holds the real and imaginary parts of the bus admittance
// matrix. Both are symmetric by construction and immutable once built.
type Matrices struct {
	G *mat.SymDense
	B *mat.SymDense
}

// Build converts the line list into nodal admittance matrices over
// nBuses buses. Each series impedance r+jx contributes g = r/(r²+x²)
// and b = -x/(r²+x²): added on the two incident diagonal entries,
// subtracted on the off-diagonal pair. Parallel lines between the same
// bus pair accumulate into a single equivalent branch.
func Build(lines []network.Line, nBuses int) (Matrices, error) {
	g := mat.NewSymDense(nBuses, nil)
	b := mat.NewSymDense(nBuses, nil)

	for k, l := range lines {
		if l.From == l.To {
			return Matrices{}, fmt.Errorf("line %d connects bus %d to itself", k, l.From)
		}
		if l.From < 0 || l.From >= nBuses || l.To < 0 || l.To >= nBuses {
			return Matrices{}, fmt.Errorf("line %d references bus outside [0,%d)", k, nBuses)
		}
		zSq := l.R*l.R + l.X*l.X
		if zSq == 0 {
			return Matrices{}, fmt.Errorf("line %d (%d,%d): %w", k, l.From, l.To, ErrZeroImpedance)
		}
		gl := l.R / zSq
		bl := -l.X / zSq

		i, j := l.From, l.To
		g.SetSym(i, i, g.At(i, i)+gl)
		g.SetSym(j, j, g.At(j, j)+gl)
		g.SetSym(i, j, g.At(i, j)-gl)

		b.SetSym(i, i, b.At(i, i)+bl)
		b.SetSym(j, j, b.At(j, j)+bl)
		b.SetSym(i, j, b.At(i, j)-bl)
	}

	return Matrices{G: g, B: b}, nil
}

// FromDense validates a precomputed admittance pair (as loaded from a
// data file) and wraps it as Matrices. Both inputs must be square,
// of equal order, and symmetric.
func FromDense(g, b [][]float64) (Matrices, error) {
	n := len(g)
	if len(b) != n {
		return Matrices{}, fmt.Errorf("G is %dx%d but B has %d rows", n, n, len(b))
	}
	gs := mat.NewSymDense(n, nil)
	bs := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		if len(g[i]) != n || len(b[i]) != n {
			return Matrices{}, fmt.Errorf("admittance row %d is not of length %d", i, n)
		}
		for j := i; j < n; j++ {
			if g[i][j] != g[j][i] {
				return Matrices{}, fmt.Errorf("G is asymmetric at (%d,%d)", i, j)
			}
			if b[i][j] != b[j][i] {
				return Matrices{}, fmt.Errorf("B is asymmetric at (%d,%d)", i, j)
			}
			gs.SetSym(i, j, g[i][j])
			bs.SetSym(i, j, b[i][j])
		}
	}
	return Matrices{G: gs, B: bs}, nil
}

// Order returns the number of buses the matrices are built over.
func (m Matrices) Order() int {
	if m.G == nil {
		return 0
	}
	r, _ := m.G.Dims()
	return r
}
