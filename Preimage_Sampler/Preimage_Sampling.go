package Preimage_Sampler

import (
	"github.com/Mega-Ryan/IBME/Matrix"
	"github.com/Mega-Ryan/IBME/fault"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
	"v.io/x/lib/vlog"
)

var ErrNotImplemented = errors.New("preimage: exact-variance sampler not implemented")

// SupportsExactPreimage reports whether PreimageExact is available.
func (s *Sampler) SupportsExactPreimage() bool { return false }

// PreimageWithoutVariance returns x = [R; I]·G⁻¹(u), so that A·x ≡ u.
// The output distribution depends on R; only A·x = u is guaranteed.
func (s *Sampler) PreimageWithoutVariance(a, r, u matrix.Matrix) (matrix.Matrix, error) {
	const op = "preimage.PreimageWithoutVariance"
	if a.Cols() != r.Rows()+r.Cols() {
		return matrix.Matrix{}, fault.Wrapf(op, fault.Usage, matrix.ErrDimension,
			"A is %dx%d but R is %dx%d", a.Rows(), a.Cols(), r.Rows(), r.Cols())
	}
	if err := checkColumn(op, u, a.Rows()); err != nil {
		return matrix.Matrix{}, err
	}
	z, err := s.GadgetInverse(u)
	if err != nil {
		return matrix.Matrix{}, err
	}
	rz, err := r.Mul(z)
	if err != nil {
		return matrix.Matrix{}, err
	}
	return matrix.VConcat(rz, z)
}

// PreimageExact would add the perturbation drawn from s²I − R·Rᵗ. It always
// fails; use PreimageWithoutVariance.
func (s *Sampler) PreimageExact(a, r, u matrix.Matrix) (matrix.Matrix, error) {
	return matrix.Matrix{}, fault.Wrapf("preimage.PreimageExact", fault.NotImplemented, ErrNotImplemented,
		"A %dx%d", a.Rows(), a.Cols())
}

// ExactFeasible reports whether s²I − R·Rᵗ is positive definite, the
// condition under which the exact sampler's perturbation exists.
func ExactFeasible(r matrix.Matrix, s float64) (bool, error) {
	rd := r.Dense()
	rows, _ := rd.Dims()
	var cov mat.Dense
	cov.Mul(rd, rd.T())
	for i := 0; i < rows; i++ {
		for j := 0; j < rows; j++ {
			v := -cov.At(i, j)
			if i == j {
				v += s * s
			}
			cov.Set(i, j, v)
		}
	}
	if _, err := matrix.Cholesky(&cov); err != nil {
		if errors.Is(err, matrix.ErrNotPositiveDefinite) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// DelegateTrapdoor extends the trapdoor (A, R) to A′ = [A | A1]. Column j of
// R′ is a preimage of column j of G − A1 under A, so A′·[R′; I] = G.
// stddev is the width a variance-corrected delegation would use; the
// variance-free path draws nothing and ignores it.
func (s *Sampler) DelegateTrapdoor(a, r, a1 matrix.Matrix, stddev float64) (Trapdoor, error) {
	const op = "preimage.DelegateTrapdoor"
	aPrime, err := matrix.HConcat(a, a1)
	if err != nil {
		return Trapdoor{}, err
	}
	target, err := s.zq.Gadget(a.Rows()).Sub(a1)
	if err != nil {
		return Trapdoor{}, fault.Wrapf(op, fault.Usage, err, "A1 must be %dx%d", a.Rows(), a.Rows()*s.zq.K())
	}
	var rPrime matrix.Matrix
	for j := 0; j < target.Cols(); j++ {
		col, _ := target.Col(j)
		x, err := s.PreimageWithoutVariance(a, r, col)
		if err != nil {
			return Trapdoor{}, errors.Wrapf(err, "column %d", j)
		}
		if j == 0 {
			rPrime = x
			continue
		}
		if rPrime, err = matrix.HConcat(rPrime, x); err != nil {
			return Trapdoor{}, err
		}
	}
	vlog.VI(2).Infof("DelegateTrapdoor: A′ %dx%d, R′ %dx%d (stddev %.3f)", aPrime.Rows(), aPrime.Cols(), rPrime.Rows(), rPrime.Cols(), stddev)
	return Trapdoor{A: aPrime, R: rPrime}, nil
}

// SampleLeft samples e with [A | M1]·e ≡ u using only A's trapdoor: e2 is a
// Gaussian vector of height M1.Cols() and e1 a preimage of u − M1·e2.
func (s *Sampler) SampleLeft(a, m1, r, u matrix.Matrix) (matrix.Matrix, error) {
	if m1.Rows() != a.Rows() {
		return matrix.Matrix{}, fault.Wrapf("preimage.SampleLeft", fault.Usage, matrix.ErrDimension,
			"A has %d rows, M1 has %d", a.Rows(), m1.Rows())
	}
	e2, err := s.zq.Gaussian(m1.Cols(), 1, s.stddev)
	if err != nil {
		return matrix.Matrix{}, err
	}
	me2, err := m1.Mul(e2)
	if err != nil {
		return matrix.Matrix{}, err
	}
	y, err := u.Sub(me2)
	if err != nil {
		return matrix.Matrix{}, err
	}
	e1, err := s.PreimageWithoutVariance(a, r, y)
	if err != nil {
		return matrix.Matrix{}, err
	}
	return matrix.VConcat(e1, e2)
}
