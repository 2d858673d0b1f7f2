// Package Preimage_Sampler implements MP12 gadget trapdoors: trapdoor
// generation, gadget inversion through a precomputed oracle, variance-free
// preimage sampling, trapdoor delegation and SampleLeft.
package Preimage_Sampler

import (
	"sync"

	"github.com/Mega-Ryan/IBME/Matrix"
	"github.com/Mega-Ryan/IBME/fault"
	"v.io/x/lib/vlog"
)

// Trapdoor holds the public matrix A = [B | G − B·R] and its secret R.
// For a delegated trapdoor A = [A0 | A1] and R satisfies A·[R; I] = G.
type Trapdoor struct {
	A matrix.Matrix
	R matrix.Matrix
}

type Option func(*Sampler)

// WithOracleCoverage controls whether residues the Gaussian draws did not
// reach are added to the oracle. It defaults to true.
func WithOracleCoverage(on bool) Option {
	return func(s *Sampler) { s.cover = on }
}

// Sampler is the trapdoor sampler of one scheme instance. Its oracle is
// built once and shared read-only afterwards.
type Sampler struct {
	zq     *matrix.Zq
	stddev float64
	cover  bool

	mu     sync.Mutex
	oracle *Oracle
}

// NewSampler fixes the Gaussian width and builds the oracle for zq.Q().
func NewSampler(zq *matrix.Zq, stddev float64, opts ...Option) (*Sampler, error) {
	s := &Sampler{zq: zq, stddev: stddev, cover: true}
	for _, o := range opts {
		o(s)
	}
	if err := s.GenerateOracle(zq.Q(), stddev); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Sampler) Stddev() float64 { return s.stddev }

func (s *Sampler) Zq() *matrix.Zq { return s.zq }

// GenerateOracle builds the gadget oracle. A second call with the same
// arguments is a no-op; any other arguments fail with ErrOracleConflict.
func (s *Sampler) GenerateOracle(q int64, stddev float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.oracle != nil {
		if int64(s.oracle.q) == q && s.oracle.stddev == stddev {
			return nil
		}
		return fault.Wrapf("preimage.GenerateOracle", fault.Usage, ErrOracleConflict,
			"built for q=%d stddev=%g, asked for q=%d stddev=%g", s.oracle.q, s.oracle.stddev, q, stddev)
	}
	if q != s.zq.Q() {
		return fault.Wrapf("preimage.GenerateOracle", fault.Usage, ErrOracleConflict,
			"context modulus is %d, asked for %d", s.zq.Q(), q)
	}
	o, err := buildOracle(s.zq, stddev, s.cover)
	if err != nil {
		return fault.Wrap("preimage.GenerateOracle", fault.Usage, err)
	}
	s.oracle = o
	vlog.VI(1).Infof("oracle built: q=%d k=%d columns=%d", q, o.k, o.Len())
	return nil
}

// Oracle returns the built oracle.
func (s *Sampler) Oracle() (*Oracle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.oracle == nil {
		return nil, fault.Wrap("preimage.Oracle", fault.Usage, ErrNoOracle)
	}
	return s.oracle, nil
}

// TrapGen returns A = [B | G − B·R] with B uniform n×nk and R a Gaussian
// nk×nk matrix. Full rank of A is not checked.
func (s *Sampler) TrapGen(n int) (Trapdoor, error) {
	if n <= 0 {
		return Trapdoor{}, fault.Usagef("preimage.TrapGen", "n = %d", n)
	}
	m := n * s.zq.K()
	b := s.zq.Uniform(n, m)
	r, err := s.zq.Gaussian(m, m, s.stddev)
	if err != nil {
		return Trapdoor{}, err
	}
	br, err := b.Mul(r)
	if err != nil {
		return Trapdoor{}, err
	}
	gbr, err := s.zq.Gadget(n).Sub(br)
	if err != nil {
		return Trapdoor{}, err
	}
	a, err := matrix.HConcat(b, gbr)
	if err != nil {
		return Trapdoor{}, err
	}
	vlog.VI(2).Infof("TrapGen: A is %dx%d", a.Rows(), a.Cols())
	return Trapdoor{A: a, R: r}, nil
}

// GadgetInverse returns a short z with G·z ≡ u for a column u of height n.
// Each entry of u is looked up in the oracle independently.
func (s *Sampler) GadgetInverse(u matrix.Matrix) (matrix.Matrix, error) {
	if u.Cols() != 1 {
		return matrix.Matrix{}, fault.Wrapf("preimage.GadgetInverse", fault.Usage, matrix.ErrDimension, "target is %dx%d", u.Rows(), u.Cols())
	}
	o, err := s.Oracle()
	if err != nil {
		return matrix.Matrix{}, err
	}
	k := s.zq.K()
	z := make([]int64, 0, u.Rows()*k)
	for i := 0; i < u.Rows(); i++ {
		v, _ := u.Get(i, 0)
		x, err := o.Lookup(v)
		if err != nil {
			return matrix.Matrix{}, err
		}
		z = append(z, x...)
	}
	return s.zq.Column(z...), nil
}
