package Preimage_Sampler

import (
	"github.com/Mega-Ryan/IBME/Matrix"
	"github.com/Mega-Ryan/IBME/fault"
)

// baseDigits decomposes v (which may be negative) into k little-endian
// base-t digits, each in [0,base).
func baseDigits(v int64, base int64, k int) []int64 {
	digits := make([]int64, k)
	temp := v
	for i := 0; i < k; i++ {
		r := temp % base
		if r < 0 {
			r += base
		}
		digits[i] = r
		temp = (temp - r) / base
	}
	return digits
}

// gadgetRow returns g = (1, 2, …, 2^(k−1)) as a 1×k matrix.
func gadgetRow(zq *matrix.Zq) matrix.Matrix {
	return zq.Gadget(1)
}

// checkColumn rejects anything but an n×1 vector.
func checkColumn(op string, u matrix.Matrix, n int) error {
	if u.Cols() != 1 || u.Rows() != n {
		return fault.Wrapf(op, fault.Usage, matrix.ErrDimension, "target is %dx%d, want %dx1", u.Rows(), u.Cols(), n)
	}
	return nil
}

// stack returns [R; I] for an r×c trapdoor R.
func stack(zq *matrix.Zq, r matrix.Matrix) (matrix.Matrix, error) {
	return matrix.VConcat(r, zq.Identity(r.Cols()))
}
