package Preimage_Sampler

import (
	"sort"

	"github.com/Mega-Ryan/IBME/Matrix"
	"github.com/Mega-Ryan/IBME/Sampler"
	"github.com/Mega-Ryan/IBME/fault"
	"github.com/pkg/errors"
	"v.io/x/lib/vlog"
)

var (
	ErrNoPreimage     = errors.New("preimage: no such gadget preimage")
	ErrOracleConflict = errors.New("preimage: oracle already built for other parameters")
	ErrNoOracle       = errors.New("preimage: oracle not built")
)

// Oracle is the sorted table of short gadget preimages. Column c holds a
// k-entry vector x_c and its syndrome g·x_c mod q; columns are sorted by
// syndrome. The table is read-only once built.
type Oracle struct {
	q, k      int
	stddev    float64
	values    []int64
	preimages [][]int64
	src       *sampler.Source
}

type oracleColumns Oracle

func (o *oracleColumns) Len() int           { return len(o.values) }
func (o *oracleColumns) Less(i, j int) bool { return o.values[i] < o.values[j] }
func (o *oracleColumns) Swap(i, j int) {
	o.values[i], o.values[j] = o.values[j], o.values[i]
	o.preimages[i], o.preimages[j] = o.preimages[j], o.preimages[i]
}

// buildOracle draws q·k columns of k Gaussian entries. With cover set, every
// residue the draws missed gets its binary decomposition as a column.
func buildOracle(zq *matrix.Zq, stddev float64, cover bool) (*Oracle, error) {
	q, k := int(zq.Q()), zq.K()
	x, err := zq.Gaussian(k, q*k, stddev)
	if err != nil {
		return nil, err
	}
	g := gadgetRow(zq)
	u, err := g.Mul(x)
	if err != nil {
		return nil, err
	}
	o := &Oracle{
		q:         q,
		k:         k,
		stddev:    stddev,
		values:    make([]int64, 0, q*k),
		preimages: make([][]int64, 0, q*k),
		src:       zq.Source(),
	}
	seen := make([]bool, q)
	xt := x.Transpose()
	for c := 0; c < q*k; c++ {
		v, _ := u.Get(0, c)
		col, _ := xt.RowRange(c, c+1)
		o.values = append(o.values, v)
		o.preimages = append(o.preimages, col.Centered())
		seen[v] = true
	}
	missing := 0
	for v := range seen {
		if seen[v] {
			continue
		}
		missing++
		if cover {
			o.values = append(o.values, int64(v))
			o.preimages = append(o.preimages, baseDigits(int64(v), 2, k))
		}
	}
	if missing > 0 {
		vlog.VI(1).Infof("oracle: %d of %d residues unreached by q=%d stddev=%.3f draws (covered=%v)", missing, q, q, stddev, cover)
	}
	sort.Stable((*oracleColumns)(o))
	return o, nil
}

func (o *Oracle) Len() int { return len(o.values) }

// Contains reports whether u has at least one preimage in the table.
func (o *Oracle) Contains(u int64) bool {
	i := sort.Search(len(o.values), func(i int) bool { return o.values[i] >= u })
	return i < len(o.values) && o.values[i] == u
}

// Lookup returns a preimage of u, chosen uniformly among all columns whose
// syndrome equals u. Entries are centred integers.
func (o *Oracle) Lookup(u int64) ([]int64, error) {
	lo := sort.Search(len(o.values), func(i int) bool { return o.values[i] >= u })
	if lo == len(o.values) || o.values[lo] != u {
		return nil, fault.Wrapf("preimage.Oracle.Lookup", fault.Usage, ErrNoPreimage, "u = %d", u)
	}
	hi := sort.Search(len(o.values), func(i int) bool { return o.values[i] > u })
	pick := lo
	if hi-lo > 1 {
		pick += o.src.Intn(hi - lo)
	}
	return o.preimages[pick], nil
}

// Table returns the oracle as a (k+1)×cols matrix whose row 0 holds the
// sorted syndromes.
func (o *Oracle) Table(zq *matrix.Zq) matrix.Matrix {
	t := zq.New(o.k+1, len(o.values))
	for c, v := range o.values {
		_ = t.Set(0, c, v)
		for r, x := range o.preimages[c] {
			_ = t.Set(r+1, c, x)
		}
	}
	return t
}
