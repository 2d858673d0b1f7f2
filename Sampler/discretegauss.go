// Discrete Gaussian sampling over Z, following Palisade's generator:
// Peikert inversion sampling from a precomputed CDF for small widths and
// Karney's exact rejection sampler ("Sampling exactly from the normal
// distribution", 2013) for large ones.

package sampler

import (
	"math"
	"sort"

	"github.com/pkg/errors"
)

const (
	karneyThreshold = 300.0 // σ above which we use Karney's sampler
	acc             = 5e-32 // tail-mass accuracy for the inversion CDF
)

// Gaussian samples D_{Z,σ} centred at zero and folds the result into
// [0, modulus). The fold adds the modulus to negative draws; it is a Gaussian
// over Z reduced mod q, not a centred Gaussian over Z_q.
type Gaussian struct {
	src     *Source
	sigma   float64
	modulus int64
	peikert bool
	a       float64   // mass at zero
	cdf     []float64 // cumulative one-sided mass for x = 1..M
}

// NewGaussian builds a sampler of width stddev folded into [0, modulus).
// The CDF is computed once here.
func NewGaussian(src *Source, stddev float64, modulus int64) (*Gaussian, error) {
	switch {
	case modulus == 0:
		return nil, errors.WithStack(ErrZeroModulus)
	case modulus < 0:
		return nil, errors.Wrapf(ErrNegative, "modulus %d", modulus)
	case stddev < 0 || math.IsNaN(stddev):
		return nil, errors.Wrapf(ErrNegative, "standard deviation %v", stddev)
	case math.Log2(stddev) > 59:
		return nil, errors.Errorf("sampler: standard deviation %v exceeds 59 bits", stddev)
	}
	g := &Gaussian{src: src, sigma: stddev, modulus: modulus, peikert: stddev < karneyThreshold}
	if g.peikert {
		g.initialize()
	}
	return g, nil
}

// NewUnboundedGaussian folds negative draws by adding MaxInt64.
func NewUnboundedGaussian(src *Source, stddev float64) (*Gaussian, error) {
	return NewGaussian(src, stddev, Unbounded)
}

// initialize precomputes the CDF for inversion sampling (Peikert '10).
func (g *Gaussian) initialize() {
	variance := g.sigma * g.sigma
	M := g.Radius()
	sum := 1.0
	for x := 1; x <= M; x++ {
		sum += 2 * math.Exp(-float64(x*x)/(2*variance))
	}
	g.a = 1 / sum
	g.cdf = make([]float64, M)
	for x := 1; x <= M; x++ {
		p := g.a * math.Exp(-float64(x*x)/(2*variance))
		if x == 1 {
			g.cdf[0] = p
		} else {
			g.cdf[x-1] = g.cdf[x-2] + p
		}
	}
}

// Radius is the truncation radius ⌈σ·√(−2·ln acc)⌉ of the inversion table.
func (g *Gaussian) Radius() int {
	return int(math.Ceil(g.sigma * math.Sqrt(-2*math.Log(acc))))
}

func (g *Gaussian) Stddev() float64 { return g.sigma }

func (g *Gaussian) Modulus() int64 { return g.modulus }

// SampleInt draws one integer from D_{Z,σ} before folding.
func (g *Gaussian) SampleInt() int64 {
	if !g.peikert {
		return karney(g.src, g.sigma)
	}
	u := g.src.Float64() - 0.5
	if math.Abs(u) <= g.a/2 {
		return 0
	}
	target := math.Abs(u) - g.a/2
	idx := sort.SearchFloat64s(g.cdf, target)
	if idx == len(g.cdf) {
		// the truncated tail (< acc) lands on the radius
		idx = len(g.cdf) - 1
	}
	sample := int64(idx + 1)
	if u < 0 {
		sample = -sample
	}
	return sample
}

// Sample draws one integer and folds it into [0, modulus).
func (g *Gaussian) Sample() int64 {
	v := g.SampleInt() % g.modulus
	if v < 0 {
		v += g.modulus
	}
	return v
}

// karney implements Algorithm D of Karney '13 centred at zero.
func karney(src *Source, sigma float64) int64 {
	for {
		k := algoG(src)
		if !algoP(src, k*(k-1)) {
			continue
		}
		s := src.Sign()
		di0 := sigma * float64(k)
		i0 := math.Ceil(di0)
		x0 := (i0 - di0) / sigma
		j := int64(src.Below(uint64(math.Ceil(sigma))))
		x := x0 + float64(j)/sigma
		if !(x < 1) || (x == 0 && s < 0 && k == 0) {
			continue
		}
		passed := true
		for i := 0; i < k+1; i++ {
			if !algoB(src, k, x) {
				passed = false
				break
			}
		}
		if !passed {
			continue
		}
		return s * (int64(i0) + j)
	}
}

// algoH returns true with probability exp(-1/2).
func algoH(src *Source) bool {
	hA := src.Float64()
	if !(hA < 0.5) {
		return true
	}
	for {
		hB := src.Float64()
		if !(hB < hA) {
			return false
		}
		hA = src.Float64()
		if !(hA < hB) {
			return true
		}
	}
}

// algoG counts consecutive successes of H.
func algoG(src *Source) int {
	n := 0
	for algoH(src) {
		n++
	}
	return n
}

func algoP(src *Source, n int) bool {
	for i := 0; i < n; i++ {
		if !algoH(src) {
			return false
		}
	}
	return true
}

// algoB returns true with probability exp(-x(2k+x)/(2k+2)).
func algoB(src *Source, k int, x float64) bool {
	y := x
	m := float64(2*k + 2)
	n := 0
	for {
		z := src.Float64()
		if !(z < y) {
			break
		}
		r := src.Float64()
		if !(r < (float64(2*k)+x)/m) {
			break
		}
		y = z
		n++
	}
	return n%2 == 0
}
