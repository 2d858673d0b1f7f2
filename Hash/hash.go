// Package hash derives public matrices from identities, epochs and messages,
// and converts residues to and from fixed-width bit strings.
package hash

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	"github.com/Mega-Ryan/IBME/Matrix"
	"github.com/Mega-Ryan/IBME/fault"
	gnarkhash "github.com/consensys/gnark-crypto/field/hash"
	"github.com/pkg/errors"
	"golang.org/x/crypto/sha3"
)

// Names accepted by New.
const (
	SHA256   = "sha256"
	XMD      = "xmd"
	SHAKE256 = "shake256"
)

// Domain labels. Inputs hashed under different labels never collide even
// when their byte strings are equal.
const (
	LabelSender   = "sender"
	LabelReceiver = "receiver"
	LabelEpoch    = "epoch"
	LabelMessage  = "message"
)

// xmdMaxLen is the largest output expand_message_xmd allows with SHA-256.
const xmdMaxLen = 255 * 32

var ErrUnknownHash = errors.New("hash: unknown hash function")

type expandFunc func(label string, input []byte, n int) ([]byte, error)

// Hasher maps byte strings to matrices over Z_q. The same (label, input,
// rows, cols) always yields the same matrix.
type Hasher struct {
	zq     *matrix.Zq
	name   string
	expand expandFunc
}

// New returns the hasher registered under name. An empty name selects SHA256.
func New(name string, zq *matrix.Zq) (*Hasher, error) {
	h := &Hasher{zq: zq, name: name}
	switch name {
	case SHA256, "":
		h.name, h.expand = SHA256, expandSHA256
	case XMD:
		h.expand = expandXMD
	case SHAKE256:
		h.expand = expandShake
	default:
		return nil, fault.Wrapf("hash.New", fault.Usage, ErrUnknownHash, "%q", name)
	}
	return h, nil
}

func (h *Hasher) Name() string { return h.name }

// Matrix fills a rows×cols matrix with 8 little-endian bytes per entry
// reduced mod q.
func (h *Hasher) Matrix(label string, input []byte, rows, cols int) (matrix.Matrix, error) {
	if rows <= 0 || cols <= 0 {
		return matrix.Matrix{}, fault.Wrapf("hash.Matrix", fault.Usage, matrix.ErrDimension, "%dx%d", rows, cols)
	}
	buf, err := h.expand(label, input, rows*cols*8)
	if err != nil {
		return matrix.Matrix{}, fault.Wrap("hash.Matrix", fault.Invariant, err)
	}
	q := uint64(h.zq.Q())
	entries := make([][]int64, rows)
	for i := range entries {
		entries[i] = make([]int64, cols)
		for j := range entries[i] {
			off := (i*cols + j) * 8
			entries[i][j] = int64(binary.LittleEndian.Uint64(buf[off:off+8]) % q)
		}
	}
	return h.zq.FromRows(entries)
}

// Int hashes the decimal form of v, the way identities and epochs are hashed.
func (h *Hasher) Int(label string, v, rows, cols int) (matrix.Matrix, error) {
	return h.Matrix(label, []byte(fmt.Sprintf("%d", v)), rows, cols)
}

func labelled(label string, input []byte) []byte {
	out := make([]byte, 0, len(label)+1+len(input))
	out = append(out, label...)
	out = append(out, 0)
	return append(out, input...)
}

// expandSHA256 re-hashes its own digest until n bytes are produced.
func expandSHA256(label string, input []byte, n int) ([]byte, error) {
	out := make([]byte, 0, n+sha256.Size)
	digest := sha256.Sum256(labelled(label, input))
	for len(out) < n {
		out = append(out, digest[:]...)
		digest = sha256.Sum256(digest[:])
	}
	return out[:n], nil
}

// expandXMD runs RFC 9380 expand_message_xmd in blocks, each with its own DST.
func expandXMD(label string, input []byte, n int) ([]byte, error) {
	out := make([]byte, 0, n)
	for block := 0; len(out) < n; block++ {
		size := n - len(out)
		if size > xmdMaxLen {
			size = xmdMaxLen
		}
		dst := []byte(fmt.Sprintf("IBME-V01-XMD:SHA-256_%s_%d", label, block))
		// ExpandMsgXmd writes a full digest, so ask for at least one and cut.
		b, err := gnarkhash.ExpandMsgXmd(input, dst, max(size, sha256.Size))
		if err != nil {
			return nil, errors.Wrapf(err, "expand block %d", block)
		}
		out = append(out, b[:size]...)
	}
	return out, nil
}

func expandShake(label string, input []byte, n int) ([]byte, error) {
	x := sha3.NewShake256()
	if _, err := x.Write(labelled(label, input)); err != nil {
		return nil, errors.WithStack(err)
	}
	out := make([]byte, n)
	if _, err := x.Read(out); err != nil {
		return nil, errors.WithStack(err)
	}
	return out, nil
}
