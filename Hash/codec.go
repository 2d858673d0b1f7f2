package hash

import (
	"strings"

	"github.com/Mega-Ryan/IBME/fault"
	"github.com/bits-and-blooms/bitset"
	"github.com/pkg/errors"
)

var (
	ErrBitWidth = errors.New("hash: bit string has the wrong width")
	ErrBitChar  = errors.New("hash: bit string contains a character other than 0 or 1")
)

// Bits is a fixed-width bit string. Index 0 is the leftmost (most
// significant) bit.
type Bits struct {
	set   *bitset.BitSet
	width uint
}

// NewBits returns width zero bits.
func NewBits(width uint) Bits {
	return Bits{set: bitset.New(width), width: width}
}

// ParseBits reads a string of '0' and '1'.
func ParseBits(s string) (Bits, error) {
	b := NewBits(uint(len(s)))
	for i, c := range s {
		switch c {
		case '1':
			b.set.Set(uint(i))
		case '0':
		default:
			return Bits{}, fault.Wrapf("hash.ParseBits", fault.Usage, ErrBitChar, "%q at %d", c, i)
		}
	}
	return b, nil
}

func (b Bits) Len() int { return int(b.width) }

func (b Bits) Bit(i int) bool {
	return b.set != nil && b.set.Test(uint(i))
}

func (b Bits) SetBit(i int, v bool) {
	b.set.SetTo(uint(i), v)
}

// Append returns b followed by o.
func (b Bits) Append(o Bits) Bits {
	out := NewBits(b.width + o.width)
	for i := 0; i < int(b.width); i++ {
		if b.Bit(i) {
			out.set.Set(uint(i))
		}
	}
	for i := 0; i < int(o.width); i++ {
		if o.Bit(i) {
			out.set.Set(b.width + uint(i))
		}
	}
	return out
}

// Slice returns bits [from, to).
func (b Bits) Slice(from, to int) (Bits, error) {
	if from < 0 || to > int(b.width) || from > to {
		return Bits{}, fault.Wrapf("hash.Bits.Slice", fault.Usage, ErrBitWidth, "[%d,%d) of %d", from, to, b.width)
	}
	out := NewBits(uint(to - from))
	for i := from; i < to; i++ {
		if b.Bit(i) {
			out.set.Set(uint(i - from))
		}
	}
	return out, nil
}

func (b Bits) Equal(o Bits) bool {
	if b.width != o.width {
		return false
	}
	for i := 0; i < int(b.width); i++ {
		if b.Bit(i) != o.Bit(i) {
			return false
		}
	}
	return true
}

func (b Bits) String() string {
	var sb strings.Builder
	sb.Grow(int(b.width))
	for i := 0; i < int(b.width); i++ {
		if b.Bit(i) {
			sb.WriteByte('1')
		} else {
			sb.WriteByte('0')
		}
	}
	return sb.String()
}

// Codec converts residues mod q to k-bit strings, most significant bit first.
type Codec struct {
	q int64
	k int
}

func NewCodec(q int64, k int) Codec { return Codec{q: q, k: k} }

func (c Codec) Width() int { return c.k }

// Encode writes v mod q as a k-bit string.
func (c Codec) Encode(v int64) Bits {
	v = ((v % c.q) + c.q) % c.q
	b := NewBits(uint(c.k))
	for i := 0; i < c.k; i++ {
		if v>>(c.k-1-i)&1 == 1 {
			b.set.Set(uint(i))
		}
	}
	return b
}

// Decode is the inverse of Encode. It rejects strings that are not exactly
// k bits wide. Values at or above q are reduced.
func (c Codec) Decode(b Bits) (int64, error) {
	if b.Len() != c.k {
		return 0, fault.Wrapf("hash.Codec.Decode", fault.Usage, ErrBitWidth, "got %d bits, want %d", b.Len(), c.k)
	}
	var v int64
	for i := 0; i < c.k; i++ {
		v <<= 1
		if b.Bit(i) {
			v |= 1
		}
	}
	return v % c.q, nil
}

// EncodeAll concatenates the encodings of values.
func (c Codec) EncodeAll(values []int64) Bits {
	out := NewBits(uint(len(values) * c.k))
	for j, v := range values {
		v = ((v % c.q) + c.q) % c.q
		for i := 0; i < c.k; i++ {
			if v>>(c.k-1-i)&1 == 1 {
				out.set.Set(uint(j*c.k + i))
			}
		}
	}
	return out
}

// DecodeAll splits b into k-bit chunks. len(b) must be a multiple of k.
func (c Codec) DecodeAll(b Bits) ([]int64, error) {
	if b.Len()%c.k != 0 {
		return nil, fault.Wrapf("hash.Codec.DecodeAll", fault.Usage, ErrBitWidth, "%d bits is not a multiple of %d", b.Len(), c.k)
	}
	out := make([]int64, b.Len()/c.k)
	for i := range out {
		chunk, err := b.Slice(i*c.k, (i+1)*c.k)
		if err != nil {
			return nil, err
		}
		if out[i], err = c.Decode(chunk); err != nil {
			return nil, err
		}
	}
	return out, nil
}
