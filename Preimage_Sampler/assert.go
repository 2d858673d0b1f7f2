package Preimage_Sampler

import (
	"github.com/Mega-Ryan/IBME/Matrix"
	"github.com/Mega-Ryan/IBME/fault"
	"v.io/x/lib/vlog"
)

// Verify checks F·x ≡ u (mod q). A mismatch means a sampler or parameter
// bug and is reported as an invariant fault.
func Verify(op string, f, x, u matrix.Matrix) error {
	got, err := f.Mul(x)
	if err != nil {
		return err
	}
	if !got.Equal(u) {
		vlog.Errorf("%s: F·x does not match the target (%dx%d)", op, u.Rows(), u.Cols())
		return fault.Invariantf(op, "F·x != u for F %dx%d", f.Rows(), f.Cols())
	}
	return nil
}
