package matrix

import (
	"errors"
	"testing"

	"github.com/Mega-Ryan/IBME/Sampler"
	"github.com/Mega-Ryan/IBME/fault"
	"gonum.org/v1/gonum/mat"
)

func newTestZq(t *testing.T, q int64) *Zq {
	t.Helper()
	src, err := sampler.NewSource([]byte("matrix-test"))
	if err != nil {
		t.Fatal(err)
	}
	z, err := NewZq(q, src)
	if err != nil {
		t.Fatal(err)
	}
	return z
}

func TestNewZqRejectsModulus(t *testing.T) {
	src, _ := sampler.NewSource(nil)
	for _, q := range []int64{0, 1, -5, MaxModulus} {
		if _, err := NewZq(q, src); !errors.Is(err, ErrModulus) {
			t.Fatalf("q=%d: err = %v", q, err)
		}
	}
}

func TestGadgetWidth(t *testing.T) {
	for _, tc := range []struct {
		q int64
		k int
	}{{2, 1}, {97, 7}, {128, 7}, {129, 8}, {3329, 12}} {
		if k := newTestZq(t, tc.q).K(); k != tc.k {
			t.Fatalf("q=%d: k=%d want %d", tc.q, k, tc.k)
		}
	}
}

func TestReduceNegative(t *testing.T) {
	z := newTestZq(t, 97)
	a, _ := z.FromRows([][]int64{{-1, -97, -98, 200}})
	want := []int64{96, 0, 96, 6}
	for j, w := range want {
		if v, _ := a.Get(0, j); v != w {
			t.Fatalf("entry %d = %d want %d", j, v, w)
		}
	}
	b := z.Column(5)
	c := z.Column(9)
	d, err := b.Sub(c)
	if err != nil {
		t.Fatal(err)
	}
	if v, _ := d.Get(0, 0); v != 93 {
		t.Fatalf("5-9 mod 97 = %d", v)
	}
}

func TestMulAgainstNaive(t *testing.T) {
	z := newTestZq(t, 3329)
	a := z.Uniform(4, 7)
	b := z.Uniform(7, 3)
	p, err := a.Mul(b)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 4; i++ {
		for j := 0; j < 3; j++ {
			var s int64
			for k := 0; k < 7; k++ {
				s += a.at(i, k) * b.at(k, j)
			}
			if p.at(i, j) != s%3329 {
				t.Fatalf("(%d,%d) = %d want %d", i, j, p.at(i, j), s%3329)
			}
		}
	}
	if !p.Equal(mustMul(t, a, b)) {
		t.Fatal("Mul not deterministic")
	}
}

func mustMul(t *testing.T, a, b Matrix) Matrix {
	t.Helper()
	p, err := a.Mul(b)
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func TestDimensionErrors(t *testing.T) {
	z := newTestZq(t, 97)
	a := z.New(2, 3)
	b := z.New(3, 2)
	if _, err := a.Add(b); !errors.Is(err, ErrDimension) {
		t.Fatalf("Add: %v", err)
	}
	if _, err := a.Mul(a); !errors.Is(err, ErrDimension) {
		t.Fatalf("Mul: %v", err)
	}
	if _, err := HConcat(a, b); !errors.Is(err, ErrDimension) {
		t.Fatalf("HConcat: %v", err)
	}
	if _, err := VConcat(a, b); !errors.Is(err, ErrDimension) {
		t.Fatalf("VConcat: %v", err)
	}
	if !fault.Is(mustErr(a.Add(b)), fault.Usage) {
		t.Fatal("dimension error is not a usage fault")
	}
	other := newTestZq(t, 101).New(2, 3)
	if _, err := a.Add(other); !errors.Is(err, ErrModulus) {
		t.Fatalf("mixed modulus: %v", err)
	}
}

func mustErr(_ Matrix, err error) error { return err }

func TestScale(t *testing.T) {
	z := newTestZq(t, 97)
	a := z.Column(0, 1, 96, 50)
	b := a.Scale(49)
	want := z.Column(0, 49, 48, 25)
	if !b.Equal(want) {
		t.Fatalf("got %v want %v", b.Values(), want.Values())
	}
	if !a.Equal(z.Column(0, 1, 96, 50)) {
		t.Fatal("Scale modified its operand")
	}
	if !a.Scale(-1).Equal(z.Column(0, -1, -96, -50)) {
		t.Fatal("negative scalar not reduced")
	}
}

func TestCloneIsIndependent(t *testing.T) {
	z := newTestZq(t, 97)
	a := z.Identity(2)
	b := a.Clone()
	if err := b.Set(0, 1, 5); err != nil {
		t.Fatal(err)
	}
	if v, _ := a.Get(0, 1); v != 0 {
		t.Fatalf("write to clone reached original: %d", v)
	}
	c, _ := a.Add(z.New(2, 2))
	_ = c.Set(1, 1, 7)
	if v, _ := a.Get(1, 1); v != 1 {
		t.Fatalf("write to sum reached operand: %d", v)
	}
}

func TestIndexErrors(t *testing.T) {
	z := newTestZq(t, 97)
	a := z.New(2, 2)
	if _, err := a.Get(2, 0); !errors.Is(err, ErrIndex) {
		t.Fatalf("Get: %v", err)
	}
	if err := a.Set(0, -1, 1); !errors.Is(err, ErrIndex) {
		t.Fatalf("Set: %v", err)
	}
	if err := a.SwapColumns(0, 5); !errors.Is(err, ErrIndex) {
		t.Fatalf("SwapColumns: %v", err)
	}
	if _, err := a.RowRange(1, 3); !errors.Is(err, ErrIndex) {
		t.Fatalf("RowRange: %v", err)
	}
}

func TestConcatAndSlices(t *testing.T) {
	z := newTestZq(t, 97)
	a := z.Uniform(3, 2)
	b := z.Uniform(3, 4)
	h, err := HConcat(a, b)
	if err != nil {
		t.Fatal(err)
	}
	if h.Rows() != 3 || h.Cols() != 6 {
		t.Fatalf("HConcat shape %dx%d", h.Rows(), h.Cols())
	}
	for i := 0; i < 3; i++ {
		if h.at(i, 1) != a.at(i, 1) || h.at(i, 5) != b.at(i, 3) {
			t.Fatalf("HConcat row %d mixed up", i)
		}
	}
	v, err := VConcat(a, z.Uniform(5, 2))
	if err != nil {
		t.Fatal(err)
	}
	top, _ := v.RowRange(0, 3)
	if !top.Equal(a) {
		t.Fatal("RowRange(0,3) of [a;x] != a")
	}
	col, _ := b.Col(2)
	for i := 0; i < 3; i++ {
		if col.at(i, 0) != b.at(i, 2) {
			t.Fatal("Col mismatch")
		}
	}
}

func TestTransposeInvolution(t *testing.T) {
	z := newTestZq(t, 97)
	a := z.Uniform(3, 5)
	if !a.Transpose().Transpose().Equal(a) {
		t.Fatal("Aᵗᵗ != A")
	}
	b := z.Uniform(5, 2)
	ab := mustMul(t, a, b).Transpose()
	ba := mustMul(t, b.Transpose(), a.Transpose())
	if !ab.Equal(ba) {
		t.Fatal("(AB)ᵗ != BᵗAᵗ")
	}
}

func TestGadgetStructure(t *testing.T) {
	z := newTestZq(t, 97)
	g := z.Gadget(3)
	if g.Rows() != 3 || g.Cols() != 21 {
		t.Fatalf("shape %dx%d", g.Rows(), g.Cols())
	}
	for i := 0; i < 3; i++ {
		for j := 0; j < 21; j++ {
			want := int64(0)
			if j/7 == i {
				want = int64(1) << (j % 7)
			}
			if g.at(i, j) != want {
				t.Fatalf("G[%d,%d] = %d want %d", i, j, g.at(i, j), want)
			}
		}
	}
	if g.Rank() != 3 {
		t.Fatalf("rank(G) = %d", g.Rank())
	}
}

func TestRank(t *testing.T) {
	z := newTestZq(t, 97)
	a, _ := z.FromRows([][]int64{{1, 2, 3}, {2, 4, 6}, {0, 1, 1}})
	if r := a.Rank(); r != 2 {
		t.Fatalf("rank = %d want 2", r)
	}
	if r := z.Identity(4).Rank(); r != 4 {
		t.Fatalf("rank(I4) = %d", r)
	}
}

func TestSignAndGaussianEntries(t *testing.T) {
	z := newTestZq(t, 97)
	s := z.Sign(10, 10)
	for _, v := range s.Centered() {
		if v != 1 && v != -1 {
			t.Fatalf("sign entry %d", v)
		}
	}
	g, err := z.Gaussian(8, 8, 2)
	if err != nil {
		t.Fatal(err)
	}
	if g.MaxNorm() > 40 {
		t.Fatalf("gaussian norm %d", g.MaxNorm())
	}
}

func TestCholesky(t *testing.T) {
	s := mat.NewDense(2, 2, []float64{4, 2, 2, 3})
	l, err := Cholesky(s)
	if err != nil {
		t.Fatal(err)
	}
	var back mat.Dense
	back.Mul(l, l.T())
	if !mat.EqualApprox(&back, s, 1e-9) {
		t.Fatalf("LLᵗ = %v", mat.Formatted(&back))
	}
	if _, err := Cholesky(mat.NewDense(2, 2, []float64{1, 2, 2, 1})); !errors.Is(err, ErrNotPositiveDefinite) {
		t.Fatalf("indefinite: %v", err)
	}
	if _, err := Cholesky(mat.NewDense(2, 2, []float64{1, 2, 0, 1})); err == nil {
		t.Fatal("asymmetric input accepted")
	}
}
