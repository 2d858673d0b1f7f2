package sampler

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/stat"
)

func newTestSource(t *testing.T, seed string) *Source {
	t.Helper()
	src, err := NewSource([]byte(seed))
	if err != nil {
		t.Fatalf("NewSource: %v", err)
	}
	return src
}

func TestSourceIsReproducible(t *testing.T) {
	a := newTestSource(t, "seed")
	b := newTestSource(t, "seed")
	for i := 0; i < 64; i++ {
		if x, y := a.Uint64(), b.Uint64(); x != y {
			t.Fatalf("draw %d: %d != %d", i, x, y)
		}
	}
}

func TestUniformRange(t *testing.T) {
	src := newTestSource(t, "uniform")
	const q = 97
	u, err := NewUniform(src, q)
	if err != nil {
		t.Fatal(err)
	}
	seen := make(map[int64]bool)
	for i := 0; i < 20000; i++ {
		v := u.Sample()
		if v < 0 || v >= q {
			t.Fatalf("sample %d out of [0,%d)", v, q)
		}
		seen[v] = true
	}
	if len(seen) != q {
		t.Fatalf("saw %d distinct values, want %d", len(seen), q)
	}
}

func TestZeroModulus(t *testing.T) {
	src := newTestSource(t, "zero")
	if _, err := NewUniform(src, 0); !errors.Is(err, ErrZeroModulus) {
		t.Fatalf("NewUniform(0) err = %v, want ErrZeroModulus", err)
	}
	if _, err := NewGaussian(src, 3, 0); !errors.Is(err, ErrZeroModulus) {
		t.Fatalf("NewGaussian(0) err = %v, want ErrZeroModulus", err)
	}
	if u := NewUnboundedUniform(src); u.Modulus() != Unbounded {
		t.Fatalf("unbounded modulus = %d", u.Modulus())
	}
}

func TestGaussianMomentsAndTail(t *testing.T) {
	src := newTestSource(t, "gauss")
	const sigma = 3.2
	g, err := NewGaussian(src, sigma, 97)
	if err != nil {
		t.Fatal(err)
	}
	radius := int64(g.Radius())
	xs := make([]float64, 50000)
	for i := range xs {
		v := g.SampleInt()
		if v > radius || v < -radius {
			t.Fatalf("sample %d beyond radius %d", v, radius)
		}
		xs[i] = float64(v)
	}
	mean, variance := stat.MeanVariance(xs, nil)
	if math.Abs(mean) > 0.1 {
		t.Fatalf("mean = %.4f, want ≈ 0", mean)
	}
	if math.Abs(math.Sqrt(variance)-sigma) > 0.15 {
		t.Fatalf("stddev = %.4f, want ≈ %.2f", math.Sqrt(variance), sigma)
	}
}

func TestGaussianFold(t *testing.T) {
	src := newTestSource(t, "fold")
	const q = 97
	g, err := NewGaussian(src, 2, q)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 5000; i++ {
		v := g.Sample()
		if v < 0 || v >= q {
			t.Fatalf("folded sample %d out of range", v)
		}
		if v > 20 && v < q-20 {
			t.Fatalf("folded sample %d is not short", v)
		}
	}
}

func TestGaussianTinyWidthIsZero(t *testing.T) {
	src := newTestSource(t, "tiny")
	g, err := NewGaussian(src, 1e-6, 97)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 1000; i++ {
		if v := g.Sample(); v != 0 {
			t.Fatalf("sample %d, want 0", v)
		}
	}
}

func TestKarneyBranch(t *testing.T) {
	src := newTestSource(t, "karney")
	g, err := NewUnboundedGaussian(src, 400)
	if err != nil {
		t.Fatal(err)
	}
	xs := make([]float64, 20000)
	for i := range xs {
		xs[i] = float64(g.SampleInt())
	}
	mean, variance := stat.MeanVariance(xs, nil)
	if math.Abs(mean) > 15 {
		t.Fatalf("mean = %.2f, want ≈ 0", mean)
	}
	if sd := math.Sqrt(variance); math.Abs(sd-400) > 20 {
		t.Fatalf("stddev = %.2f, want ≈ 400", sd)
	}
}
