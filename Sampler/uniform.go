package sampler

import (
	"math"

	"github.com/pkg/errors"
)

// ErrZeroModulus is the arithmetic error raised for a zero modulus.
var ErrZeroModulus = errors.New("sampler: zero modulus")

// ErrNegative is returned for negative moduli or standard deviations.
var ErrNegative = errors.New("sampler: negative parameter")

// Unbounded is the modulus used by the unbounded samplers.
const Unbounded = int64(math.MaxInt64)

// Uniform draws integers uniformly from [0, modulus).
type Uniform struct {
	src     *Source
	modulus int64
}

// NewUniform returns a sampler over [0, modulus). A zero modulus is rejected
// with ErrZeroModulus; use NewUnboundedUniform to sample the whole int64 range.
func NewUniform(src *Source, modulus int64) (*Uniform, error) {
	switch {
	case modulus == 0:
		return nil, errors.WithStack(ErrZeroModulus)
	case modulus < 0:
		return nil, errors.Wrapf(ErrNegative, "modulus %d", modulus)
	}
	return &Uniform{src: src, modulus: modulus}, nil
}

// NewUnboundedUniform returns a sampler over [0, MaxInt64).
func NewUnboundedUniform(src *Source) *Uniform {
	return &Uniform{src: src, modulus: Unbounded}
}

func (u *Uniform) Modulus() int64 { return u.modulus }

func (u *Uniform) Sample() int64 {
	return int64(u.src.Below(uint64(u.modulus)))
}
