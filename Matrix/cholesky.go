package matrix

import (
	"math"

	"github.com/Mega-Ryan/IBME/fault"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

var ErrNotPositiveDefinite = errors.New("matrix: not positive definite")

// Dense lifts m to a real matrix with centred entries.
func (m Matrix) Dense() *mat.Dense {
	c := m.Centered()
	data := make([]float64, len(c))
	for i, v := range c {
		data[i] = float64(v)
	}
	if m.rows == 0 || m.cols == 0 {
		return &mat.Dense{}
	}
	return mat.NewDense(m.rows, m.cols, data)
}

// Cholesky returns the lower-triangular L with L·Lᵗ = s. s must be square,
// symmetric and positive definite.
func Cholesky(s mat.Matrix) (*mat.TriDense, error) {
	r, c := s.Dims()
	if r != c {
		return nil, fault.Wrapf("matrix.Cholesky", fault.Usage, ErrDimension, "%dx%d is not square", r, c)
	}
	sym := mat.NewSymDense(r, nil)
	for i := 0; i < r; i++ {
		for j := i; j < r; j++ {
			a, b := s.At(i, j), s.At(j, i)
			if math.Abs(a-b) > 1e-9*math.Max(1, math.Abs(a)) {
				return nil, fault.Usagef("matrix.Cholesky", "entry (%d,%d) is not symmetric", i, j)
			}
			sym.SetSym(i, j, a)
		}
	}
	var ch mat.Cholesky
	if ok := ch.Factorize(sym); !ok {
		return nil, fault.Wrap("matrix.Cholesky", fault.Usage, ErrNotPositiveDefinite)
	}
	var l mat.TriDense
	ch.LTo(&l)
	return &l, nil
}
