package matrix

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/Mega-Ryan/IBME/fault"
)

// Matrix is a dense rows×cols matrix over Z_q stored in row-major order.
// Arithmetic always returns a fresh matrix and never modifies its operands.
// A plain assignment shares storage, and Set and SwapColumns write in place,
// so only call them on a matrix you built or cloned yourself.
type Matrix struct {
	rows, cols int
	q          int64
	data       []int64
}

func (m Matrix) Rows() int { return m.rows }

func (m Matrix) Cols() int { return m.cols }

func (m Matrix) Modulus() int64 { return m.q }

func (m Matrix) reduce(v int64) int64 {
	return ((v % m.q) + m.q) % m.q
}

func (m Matrix) at(r, c int) int64 { return m.data[r*m.cols+c] }

// Get returns entry (r, c).
func (m Matrix) Get(r, c int) (int64, error) {
	if r < 0 || r >= m.rows || c < 0 || c >= m.cols {
		return 0, fault.Wrapf("matrix.Get", fault.Usage, ErrIndex, "(%d,%d) in %dx%d", r, c, m.rows, m.cols)
	}
	return m.at(r, c), nil
}

// Set stores v mod q at (r, c).
func (m Matrix) Set(r, c int, v int64) error {
	if r < 0 || r >= m.rows || c < 0 || c >= m.cols {
		return fault.Wrapf("matrix.Set", fault.Usage, ErrIndex, "(%d,%d) in %dx%d", r, c, m.rows, m.cols)
	}
	m.data[r*m.cols+c] = m.reduce(v)
	return nil
}

// Clone returns a deep copy.
func (m Matrix) Clone() Matrix {
	out := m
	out.data = append([]int64(nil), m.data...)
	return out
}

func (m Matrix) empty() Matrix {
	return Matrix{rows: m.rows, cols: m.cols, q: m.q, data: make([]int64, len(m.data))}
}

func (m Matrix) sameShape(op string, o Matrix) error {
	if m.q != o.q {
		return fault.Wrapf(op, fault.Usage, ErrModulus, "q = %d and %d", m.q, o.q)
	}
	if m.rows != o.rows || m.cols != o.cols {
		return fault.Wrapf(op, fault.Usage, ErrDimension, "%dx%d and %dx%d", m.rows, m.cols, o.rows, o.cols)
	}
	return nil
}

// Add returns m + o mod q.
func (m Matrix) Add(o Matrix) (Matrix, error) {
	if err := m.sameShape("matrix.Add", o); err != nil {
		return Matrix{}, err
	}
	out := m.empty()
	for i := range m.data {
		out.data[i] = m.reduce(m.data[i] + o.data[i])
	}
	return out, nil
}

// Sub returns m − o mod q.
func (m Matrix) Sub(o Matrix) (Matrix, error) {
	if err := m.sameShape("matrix.Sub", o); err != nil {
		return Matrix{}, err
	}
	out := m.empty()
	for i := range m.data {
		out.data[i] = m.reduce(m.data[i] - o.data[i])
	}
	return out, nil
}

// Mul returns the product m·o mod q.
func (m Matrix) Mul(o Matrix) (Matrix, error) {
	if m.q != o.q {
		return Matrix{}, fault.Wrapf("matrix.Mul", fault.Usage, ErrModulus, "q = %d and %d", m.q, o.q)
	}
	if m.cols != o.rows {
		return Matrix{}, fault.Wrapf("matrix.Mul", fault.Usage, ErrDimension,
			"%dx%d * %dx%d", m.rows, m.cols, o.rows, o.cols)
	}
	out := Matrix{rows: m.rows, cols: o.cols, q: m.q, data: make([]int64, m.rows*o.cols)}
	for i := 0; i < m.rows; i++ {
		row := m.data[i*m.cols : (i+1)*m.cols]
		dst := out.data[i*o.cols : (i+1)*o.cols]
		for k, a := range row {
			if a == 0 {
				continue
			}
			src := o.data[k*o.cols : (k+1)*o.cols]
			for j, b := range src {
				dst[j] = (dst[j] + a*b) % m.q
			}
		}
	}
	return out, nil
}

// Scale returns v·m mod q.
func (m Matrix) Scale(v int64) Matrix {
	out := m.empty()
	v = m.reduce(v)
	for i, a := range m.data {
		out.data[i] = (a * v) % m.q
	}
	return out
}

// Equal reports whether m and o have the same shape, modulus and entries.
func (m Matrix) Equal(o Matrix) bool {
	if m.rows != o.rows || m.cols != o.cols || m.q != o.q {
		return false
	}
	for i := range m.data {
		if m.data[i] != o.data[i] {
			return false
		}
	}
	return true
}

// Transpose returns mᵗ.
func (m Matrix) Transpose() Matrix {
	out := Matrix{rows: m.cols, cols: m.rows, q: m.q, data: make([]int64, len(m.data))}
	for i := 0; i < m.rows; i++ {
		for j := 0; j < m.cols; j++ {
			out.data[j*out.cols+i] = m.at(i, j)
		}
	}
	return out
}

// SwapColumns exchanges columns c1 and c2 in place.
func (m Matrix) SwapColumns(c1, c2 int) error {
	if c1 < 0 || c1 >= m.cols || c2 < 0 || c2 >= m.cols {
		return fault.Wrapf("matrix.SwapColumns", fault.Usage, ErrIndex, "columns %d,%d of %d", c1, c2, m.cols)
	}
	for i := 0; i < m.rows; i++ {
		r := m.data[i*m.cols : (i+1)*m.cols]
		r[c1], r[c2] = r[c2], r[c1]
	}
	return nil
}

// Col returns column c as a rows×1 matrix.
func (m Matrix) Col(c int) (Matrix, error) {
	if c < 0 || c >= m.cols {
		return Matrix{}, fault.Wrapf("matrix.Col", fault.Usage, ErrIndex, "column %d of %d", c, m.cols)
	}
	out := Matrix{rows: m.rows, cols: 1, q: m.q, data: make([]int64, m.rows)}
	for i := 0; i < m.rows; i++ {
		out.data[i] = m.at(i, c)
	}
	return out, nil
}

// RowRange returns rows [from, to) as a new matrix.
func (m Matrix) RowRange(from, to int) (Matrix, error) {
	if from < 0 || to > m.rows || from > to {
		return Matrix{}, fault.Wrapf("matrix.RowRange", fault.Usage, ErrIndex, "rows [%d,%d) of %d", from, to, m.rows)
	}
	return Matrix{
		rows: to - from,
		cols: m.cols,
		q:    m.q,
		data: append([]int64(nil), m.data[from*m.cols:to*m.cols]...),
	}, nil
}

// HConcat returns [a | b].
func HConcat(a, b Matrix) (Matrix, error) {
	if a.rows != b.rows {
		return Matrix{}, fault.Wrapf("matrix.HConcat", fault.Usage, ErrDimension, "row counts %d and %d", a.rows, b.rows)
	}
	if a.q != b.q {
		return Matrix{}, fault.Wrapf("matrix.HConcat", fault.Usage, ErrModulus, "q = %d and %d", a.q, b.q)
	}
	out := Matrix{rows: a.rows, cols: a.cols + b.cols, q: a.q, data: make([]int64, a.rows*(a.cols+b.cols))}
	for i := 0; i < a.rows; i++ {
		copy(out.data[i*out.cols:], a.data[i*a.cols:(i+1)*a.cols])
		copy(out.data[i*out.cols+a.cols:], b.data[i*b.cols:(i+1)*b.cols])
	}
	return out, nil
}

// VConcat returns [a; b].
func VConcat(a, b Matrix) (Matrix, error) {
	if a.cols != b.cols {
		return Matrix{}, fault.Wrapf("matrix.VConcat", fault.Usage, ErrDimension, "column counts %d and %d", a.cols, b.cols)
	}
	if a.q != b.q {
		return Matrix{}, fault.Wrapf("matrix.VConcat", fault.Usage, ErrModulus, "q = %d and %d", a.q, b.q)
	}
	out := Matrix{rows: a.rows + b.rows, cols: a.cols, q: a.q}
	out.data = append(append(make([]int64, 0, len(a.data)+len(b.data)), a.data...), b.data...)
	return out, nil
}

// HConcatAll concatenates blocks left to right.
func HConcatAll(first Matrix, rest ...Matrix) (Matrix, error) {
	out := first
	for _, b := range rest {
		var err error
		if out, err = HConcat(out, b); err != nil {
			return Matrix{}, err
		}
	}
	return out, nil
}

// VConcatAll stacks blocks top to bottom.
func VConcatAll(first Matrix, rest ...Matrix) (Matrix, error) {
	out := first
	for _, b := range rest {
		var err error
		if out, err = VConcat(out, b); err != nil {
			return Matrix{}, err
		}
	}
	return out, nil
}

// Values returns a copy of the entries in row-major order.
func (m Matrix) Values() []int64 {
	return append([]int64(nil), m.data...)
}

// Centered returns the entries lifted to (−q/2, q/2], row-major.
func (m Matrix) Centered() []int64 {
	out := make([]int64, len(m.data))
	for i, v := range m.data {
		if v > m.q/2 {
			v -= m.q
		}
		out[i] = v
	}
	return out
}

// MaxNorm is the infinity norm of the centred lift.
func (m Matrix) MaxNorm() int64 {
	var max int64
	for _, v := range m.Centered() {
		if v < 0 {
			v = -v
		}
		if v > max {
			max = v
		}
	}
	return max
}

// Rank computes the rank over Z_q by Gaussian elimination. Pivots must be
// units mod q; for prime q this is the field rank.
func (m Matrix) Rank() int {
	t := m.Clone()
	q := big.NewInt(m.q)
	rank := 0
	for c := 0; c < t.cols && rank < t.rows; c++ {
		pivot := -1
		var inv *big.Int
		for r := rank; r < t.rows; r++ {
			if v := t.at(r, c); v != 0 {
				if inv = new(big.Int).ModInverse(big.NewInt(v), q); inv != nil {
					pivot = r
					break
				}
			}
		}
		if pivot < 0 {
			continue
		}
		if pivot != rank {
			for j := 0; j < t.cols; j++ {
				t.data[pivot*t.cols+j], t.data[rank*t.cols+j] = t.data[rank*t.cols+j], t.data[pivot*t.cols+j]
			}
		}
		iv := inv.Int64()
		for j := 0; j < t.cols; j++ {
			t.data[rank*t.cols+j] = (t.data[rank*t.cols+j] * iv) % m.q
		}
		for r := 0; r < t.rows; r++ {
			if r == rank {
				continue
			}
			f := t.at(r, c)
			if f == 0 {
				continue
			}
			for j := 0; j < t.cols; j++ {
				t.data[r*t.cols+j] = t.reduce(t.data[r*t.cols+j] - f*t.data[rank*t.cols+j])
			}
		}
		rank++
	}
	return rank
}

func (m Matrix) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%dx%d mod %d\n", m.rows, m.cols, m.q)
	for i := 0; i < m.rows; i++ {
		for j := 0; j < m.cols; j++ {
			fmt.Fprintf(&b, "%d ", m.at(i, j))
		}
		b.WriteByte('\n')
	}
	return b.String()
}
