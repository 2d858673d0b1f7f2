// Package matrix implements exact linear algebra over Z_q.
//
// All matrices of a scheme instance are created through a Zq context that
// fixes the modulus q, the gadget width k = ⌈log2 q⌉ and the randomness source.
// Every stored entry lies in [0, q).
package matrix

import (
	"math/bits"
	"sync"

	"github.com/Mega-Ryan/IBME/Sampler"
	"github.com/Mega-Ryan/IBME/fault"
	"github.com/pkg/errors"
)

// MaxModulus bounds q so that the product of two residues fits in an int64.
const MaxModulus = int64(1) << 31

var (
	ErrIndex     = errors.New("matrix: index out of range")
	ErrDimension = errors.New("matrix: dimension mismatch")
	ErrModulus   = errors.New("matrix: invalid modulus")
)

// Zq is the arithmetic context shared by all matrices of one scheme instance.
type Zq struct {
	q       int64
	k       int
	src     *sampler.Source
	uniform *sampler.Uniform

	mu        sync.Mutex
	gaussians map[float64]*sampler.Gaussian
}

// NewZq fixes the modulus. q must lie in [2, MaxModulus).
func NewZq(q int64, src *sampler.Source) (*Zq, error) {
	if q < 2 || q >= MaxModulus {
		return nil, fault.Wrapf("matrix.NewZq", fault.Usage, ErrModulus, "q = %d", q)
	}
	u, err := sampler.NewUniform(src, q)
	if err != nil {
		return nil, fault.Wrap("matrix.NewZq", fault.Usage, err)
	}
	return &Zq{
		q:         q,
		k:         bits.Len64(uint64(q - 1)),
		src:       src,
		uniform:   u,
		gaussians: make(map[float64]*sampler.Gaussian),
	}, nil
}

// Q returns the modulus.
func (z *Zq) Q() int64 { return z.q }

// K returns the gadget width ⌈log2 q⌉.
func (z *Zq) K() int { return z.k }

func (z *Zq) Source() *sampler.Source { return z.src }

// Reduce maps any int64 into [0, q), including negative values.
func (z *Zq) Reduce(v int64) int64 {
	return ((v % z.q) + z.q) % z.q
}

// Centered lifts a residue to (−q/2, q/2].
func (z *Zq) Centered(v int64) int64 {
	v = z.Reduce(v)
	if v > z.q/2 {
		return v - z.q
	}
	return v
}

// New returns the rows×cols zero matrix.
func (z *Zq) New(rows, cols int) Matrix {
	return Matrix{rows: rows, cols: cols, q: z.q, data: make([]int64, rows*cols)}
}

// FromRows builds a matrix from row slices, reducing every entry.
func (z *Zq) FromRows(rows [][]int64) (Matrix, error) {
	if len(rows) == 0 {
		return z.New(0, 0), nil
	}
	m := z.New(len(rows), len(rows[0]))
	for i, row := range rows {
		if len(row) != m.cols {
			return Matrix{}, fault.Wrapf("matrix.FromRows", fault.Usage, ErrDimension,
				"row %d has %d entries, want %d", i, len(row), m.cols)
		}
		for j, v := range row {
			m.data[i*m.cols+j] = z.Reduce(v)
		}
	}
	return m, nil
}

// Column builds a column vector from values.
func (z *Zq) Column(values ...int64) Matrix {
	m := z.New(len(values), 1)
	for i, v := range values {
		m.data[i] = z.Reduce(v)
	}
	return m
}

// Identity returns the n×n identity.
func (z *Zq) Identity(n int) Matrix {
	m := z.New(n, n)
	for i := 0; i < n; i++ {
		m.data[i*n+i] = 1
	}
	return m
}

// Gadget returns G = I_n ⊗ (1, 2, …, 2^(k−1)), an n×nk matrix with
// G[i, j] = 2^(j mod k) when i == j div k.
func (z *Zq) Gadget(n int) Matrix {
	k := z.k
	m := z.New(n, n*k)
	for i := 0; i < n; i++ {
		for kk := 0; kk < k; kk++ {
			m.data[i*m.cols+i*k+kk] = z.Reduce(int64(1) << kk)
		}
	}
	return m
}

// Uniform returns a matrix with entries drawn uniformly from Z_q.
func (z *Zq) Uniform(rows, cols int) Matrix {
	m := z.New(rows, cols)
	for i := range m.data {
		m.data[i] = z.uniform.Sample()
	}
	return m
}

// Gaussian returns a matrix with entries drawn from D_{Z,stddev} folded mod q.
// Samplers are cached per width so the CDF is built once.
func (z *Zq) Gaussian(rows, cols int, stddev float64) (Matrix, error) {
	g, err := z.gaussian(stddev)
	if err != nil {
		return Matrix{}, err
	}
	m := z.New(rows, cols)
	for i := range m.data {
		m.data[i] = g.Sample()
	}
	return m, nil
}

func (z *Zq) gaussian(stddev float64) (*sampler.Gaussian, error) {
	z.mu.Lock()
	defer z.mu.Unlock()
	if g, ok := z.gaussians[stddev]; ok {
		return g, nil
	}
	g, err := sampler.NewGaussian(z.src, stddev, z.q)
	if err != nil {
		return nil, fault.Wrap("matrix.Gaussian", fault.Usage, err)
	}
	z.gaussians[stddev] = g
	return g, nil
}

// Sign returns a matrix with entries uniformly ±1.
func (z *Zq) Sign(rows, cols int) Matrix {
	m := z.New(rows, cols)
	for i := range m.data {
		m.data[i] = z.Reduce(z.src.Sign())
	}
	return m
}
