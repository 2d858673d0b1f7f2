// Package ibme implements revocable identity-based matchmaking encryption
// over lattice trapdoors. A Scheme owns the public matrices, both master
// trapdoors, the revocation tree with its per-node shares and the
// revocation list; its methods are safe for concurrent use.
package ibme

import (
	"fmt"
	"time"

	"github.com/Mega-Ryan/IBME/Hash"
	"github.com/Mega-Ryan/IBME/Matrix"
	"github.com/Mega-Ryan/IBME/Preimage_Sampler"
	"github.com/Mega-Ryan/IBME/Sampler"
	"github.com/Mega-Ryan/IBME/System"
	"github.com/Mega-Ryan/IBME/Tree"
	"github.com/Mega-Ryan/IBME/fault"
	"github.com/Mega-Ryan/IBME/prof"
	"github.com/pkg/errors"
	"v.io/x/lib/vlog"
)

var (
	ErrRevoked       = errors.New("ibme: no decryption key, receiver revoked")
	ErrSignature     = errors.New("ibme: signature verification failed")
	ErrSameIdentity  = errors.New("ibme: sender and receiver are the same identity")
	ErrIdentityRange = errors.New("ibme: identity outside the user population")
	ErrEpoch         = errors.New("ibme: negative epoch")
	ErrKeyMismatch   = errors.New("ibme: key issued for another identity or epoch")
	ErrCiphertext    = errors.New("ibme: malformed ciphertext")
)

// Scheme is one IB-ME instance.
type Scheme struct {
	params  Parameters.SystemParams
	zq      *matrix.Zq
	sampler *Preimage_Sampler.Sampler
	hasher  *hash.Hasher
	codec   hash.Codec

	a, aPrime      Preimage_Sampler.Trapdoor
	b1, b2, c1, c2 matrix.Matrix
	u              []matrix.Matrix
	uRows          matrix.Matrix // row i is u[i]ᵗ

	tree *tree.Tree
	rl   *tree.RevocationList
}

// Setup builds the oracle, both master trapdoors, the public matrices, the
// N public targets and the revocation tree. A non-empty params.Seed makes
// the whole instance reproducible.
func Setup(params Parameters.SystemParams) (*Scheme, error) {
	defer prof.Track(time.Now(), "Setup")
	if err := params.Validate(); err != nil {
		return nil, err
	}
	var seed []byte
	if params.Seed != "" {
		seed = []byte(params.Seed)
	}
	src, err := sampler.NewSource(seed)
	if err != nil {
		return nil, errors.Wrap(err, "ibme.Setup: randomness source")
	}
	zq, err := matrix.NewZq(params.Modulus, src)
	if err != nil {
		return nil, err
	}
	ps, err := Preimage_Sampler.NewSampler(zq, params.Sigma, Preimage_Sampler.WithOracleCoverage(params.EnsureOracleCoverage))
	if err != nil {
		return nil, err
	}
	h, err := hash.New(params.Hash, zq)
	if err != nil {
		return nil, err
	}
	s := &Scheme{
		params:  params,
		zq:      zq,
		sampler: ps,
		hasher:  h,
		codec:   hash.NewCodec(zq.Q(), zq.K()),
		rl:      tree.NewRevocationList(),
	}
	n, m := params.Rows, params.Cols
	if s.a, err = ps.TrapGen(n); err != nil {
		return nil, err
	}
	if s.aPrime, err = ps.TrapGen(n); err != nil {
		return nil, err
	}
	s.b1 = zq.Uniform(n, 2*m)
	s.b2 = zq.Uniform(n, 2*m)
	s.c1 = zq.Uniform(n, 2*m)
	s.c2 = zq.Uniform(n, 2*m)
	s.uRows = zq.Uniform(params.Targets, n)
	s.u = make([]matrix.Matrix, params.Targets)
	for i := range s.u {
		row, _ := s.uRows.RowRange(i, i+1)
		s.u[i] = row.Transpose()
	}
	if s.tree, err = tree.New(params.Users); err != nil {
		return nil, err
	}
	vlog.Infof("IB-ME setup: users=%d q=%d n=%d m=%d N=%d hash=%s", params.Users, params.Modulus, n, m, params.Targets, h.Name())
	return s, nil
}

func (s *Scheme) Params() Parameters.SystemParams { return s.params }

func (s *Scheme) Zq() *matrix.Zq { return s.zq }

func (s *Scheme) Tree() *tree.Tree { return s.tree }

// RL returns the scheme's revocation list, the one Revoke writes to.
func (s *Scheme) RL() *tree.RevocationList { return s.rl }

// SupportsExactPreimage reports whether keys could be drawn with the
// exact-variance sampler. All keys currently use the variance-free one.
func (s *Scheme) SupportsExactPreimage() bool { return s.sampler.SupportsExactPreimage() }

func (s *Scheme) checkIdentity(op string, id int) error {
	if id < 0 || id >= s.params.Users {
		return fault.Wrapf(op, fault.Usage, ErrIdentityRange, "id %d not in [0,%d)", id, s.params.Users)
	}
	return nil
}

func (s *Scheme) checkEpoch(op string, t int) error {
	if t < 0 {
		return fault.Wrapf(op, fault.Usage, ErrEpoch, "t = %d", t)
	}
	return nil
}

// identityMatrix returns B + H(label, v)·C, the n×2m block bound to a
// receiver identity or an epoch.
func (s *Scheme) identityMatrix(label string, v int, b, c matrix.Matrix) (matrix.Matrix, error) {
	n := s.params.Rows
	h, err := s.hasher.Int(label, v, n, n)
	if err != nil {
		return matrix.Matrix{}, err
	}
	hc, err := h.Mul(c)
	if err != nil {
		return matrix.Matrix{}, err
	}
	return b.Add(hc)
}

func (s *Scheme) receiverMatrix(id int) (matrix.Matrix, error) {
	return s.identityMatrix(hash.LabelReceiver, id, s.b1, s.c1)
}

func (s *Scheme) epochMatrix(t int) (matrix.Matrix, error) {
	return s.identityMatrix(hash.LabelEpoch, t, s.b2, s.c2)
}

// senderHash is H(sender), n×m.
func (s *Scheme) senderHash(id int) (matrix.Matrix, error) {
	return s.hasher.Int(hash.LabelSender, id, s.params.Rows, s.params.Cols)
}

// senderMatrix returns F_sender = [A′ | H(sender)], n×3m.
func (s *Scheme) senderMatrix(id int) (matrix.Matrix, error) {
	h, err := s.senderHash(id)
	if err != nil {
		return matrix.Matrix{}, err
	}
	return matrix.HConcat(s.aPrime.A, h)
}

// messageDigest is H(sender ‖ message ‖ receiver) as an n×1 target.
func (s *Scheme) messageDigest(sender int, msg Message, receiver int) (matrix.Matrix, error) {
	in := []byte(fmt.Sprintf("%d|%s|%d", sender, msg, receiver))
	return s.hasher.Matrix(hash.LabelMessage, in, s.params.Rows, 1)
}
