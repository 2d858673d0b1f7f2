package ibme

import (
	"time"

	"github.com/Mega-Ryan/IBME/Hash"
	"github.com/Mega-Ryan/IBME/Matrix"
	"github.com/Mega-Ryan/IBME/Preimage_Sampler"
	"github.com/Mega-Ryan/IBME/fault"
	"github.com/Mega-Ryan/IBME/measure"
	"github.com/Mega-Ryan/IBME/prof"
	"v.io/x/lib/vlog"
)

// Ciphertext carries one scalar per message or signature bit in C1 (N×1)
// and the shared vector C2 (6m×1).
type Ciphertext struct {
	C1 matrix.Matrix
	C2 matrix.Matrix
}

// half is the encoding of a 1 bit, ⌈q/2⌋.
func (s *Scheme) half() int64 { return (s.zq.Q() + 1) / 2 }

// bitColumn lifts b to a 0/1 column vector.
func (s *Scheme) bitColumn(b hash.Bits) matrix.Matrix {
	v := make([]int64, b.Len())
	for i := range v {
		if b.Bit(i) {
			v[i] = 1
		}
	}
	return s.zq.Column(v...)
}

// Enc signs (sender, msg, receiver) with the sender key and encrypts the
// message and signature bits to receiver at epoch t.
func (s *Scheme) Enc(sk SenderKey, sender, receiver int, msg Message, t int) (Ciphertext, error) {
	const op = "ibme.Enc"
	defer prof.Track(time.Now(), "Enc")
	if sender == receiver {
		return Ciphertext{}, fault.Wrapf(op, fault.Usage, ErrSameIdentity, "id %d", sender)
	}
	if err := s.checkIdentity(op, sender); err != nil {
		return Ciphertext{}, err
	}
	if err := s.checkIdentity(op, receiver); err != nil {
		return Ciphertext{}, err
	}
	if err := s.checkEpoch(op, t); err != nil {
		return Ciphertext{}, err
	}
	if msg.Len() != s.params.MessageLen {
		return Ciphertext{}, fault.Wrapf(op, fault.Usage, hash.ErrBitWidth, "message has %d bits, want %d", msg.Len(), s.params.MessageLen)
	}
	n, m := s.params.Rows, s.params.Cols

	digest, err := s.messageDigest(sender, msg, receiver)
	if err != nil {
		return Ciphertext{}, err
	}
	fs, err := s.senderMatrix(sender)
	if err != nil {
		return Ciphertext{}, err
	}
	sigma, err := s.sampler.PreimageWithoutVariance(fs, sk.R, digest)
	if err != nil {
		return Ciphertext{}, err
	}
	if err := Preimage_Sampler.Verify(op, fs, sigma, digest); err != nil {
		return Ciphertext{}, err
	}
	sigBits := s.codec.EncodeAll(sigma.Values())
	if sigBits.Len() != s.params.SignatureLen {
		return Ciphertext{}, fault.Invariantf(op, "signature is %d bits, want %d", sigBits.Len(), s.params.SignatureLen)
	}
	bits := msg.Bits().Append(sigBits)

	mr, err := s.receiverMatrix(receiver)
	if err != nil {
		return Ciphertext{}, err
	}
	mt, err := s.epochMatrix(t)
	if err != nil {
		return Ciphertext{}, err
	}
	frt, err := matrix.HConcatAll(s.a.A, mr, mt)
	if err != nil {
		return Ciphertext{}, err
	}

	secret := s.zq.Uniform(n, 1)
	r1 := s.zq.Sign(2*m, 2*m)
	r2 := s.zq.Sign(2*m, 2*m)
	x, err := s.zq.Gaussian(s.params.Targets, 1, s.params.NoiseSigma)
	if err != nil {
		return Ciphertext{}, err
	}
	y, err := s.zq.Gaussian(2*m, 1, s.params.NoiseSigma)
	if err != nil {
		return Ciphertext{}, err
	}

	c1, err := s.uRows.Mul(secret)
	if err != nil {
		return Ciphertext{}, err
	}
	if c1, err = c1.Add(x); err != nil {
		return Ciphertext{}, err
	}
	if c1, err = c1.Add(s.bitColumn(bits).Scale(s.half())); err != nil {
		return Ciphertext{}, err
	}

	z1, err := r1.Transpose().Mul(y)
	if err != nil {
		return Ciphertext{}, err
	}
	z2, err := r2.Transpose().Mul(y)
	if err != nil {
		return Ciphertext{}, err
	}
	noise, err := matrix.VConcatAll(y, z1, z2)
	if err != nil {
		return Ciphertext{}, err
	}
	c2, err := frt.Transpose().Mul(secret)
	if err != nil {
		return Ciphertext{}, err
	}
	if c2, err = c2.Add(noise); err != nil {
		return Ciphertext{}, err
	}
	measure.Global.Add("ciphertext", int64(measure.BytesMatrix(c1.Rows()+c2.Rows(), 1, s.zq.Q())))
	vlog.VI(1).Infof("Enc: %d -> %d at epoch %d, %d bits", sender, receiver, t, bits.Len())
	return Ciphertext{C1: c1, C2: c2}, nil
}

// Dec recovers the message and checks the embedded signature against
// (sender, message, receiver). A key for another identity or epoch, or a
// wrong sender, fails with ErrSignature.
func (s *Scheme) Dec(dk DecryptionKey, receiver, sender int, ct Ciphertext) (Message, error) {
	const op = "ibme.Dec"
	defer prof.Track(time.Now(), "Dec")
	if sender == receiver {
		return Message{}, fault.Wrapf(op, fault.Usage, ErrSameIdentity, "id %d", sender)
	}
	if err := s.checkIdentity(op, sender); err != nil {
		return Message{}, err
	}
	if err := s.checkIdentity(op, receiver); err != nil {
		return Message{}, err
	}
	m, nt := s.params.Cols, s.params.Targets
	if ct.C1.Rows() != nt || ct.C1.Cols() != 1 || ct.C2.Rows() != 6*m || ct.C2.Cols() != 1 {
		return Message{}, fault.Wrapf(op, fault.Usage, ErrCiphertext, "c1 %dx%d, c2 %dx%d",
			ct.C1.Rows(), ct.C1.Cols(), ct.C2.Rows(), ct.C2.Cols())
	}
	if len(dk.Pairs) != nt {
		return Message{}, fault.Usagef(op, "decryption key has %d pairs, want %d", len(dk.Pairs), nt)
	}

	c20, _ := ct.C2.RowRange(0, 2*m)
	c21, _ := ct.C2.RowRange(2*m, 4*m)
	c22, _ := ct.C2.RowRange(4*m, 6*m)
	v1, err := matrix.VConcat(c20, c21)
	if err != nil {
		return Message{}, err
	}
	v2, err := matrix.VConcat(c20, c22)
	if err != nil {
		return Message{}, err
	}

	q, half := s.zq.Q(), s.half()
	bits := hash.NewBits(uint(nt))
	for i, p := range dk.Pairs {
		a, err := p.First.Transpose().Mul(v1)
		if err != nil {
			return Message{}, err
		}
		b, err := p.Second.Transpose().Mul(v2)
		if err != nil {
			return Message{}, err
		}
		c, _ := ct.C1.Get(i, 0)
		av, _ := a.Get(0, 0)
		bv, _ := b.Get(0, 0)
		omega := s.zq.Reduce(c - av - bv)
		d := omega - half
		if d < 0 {
			d = -d
		}
		bits.SetBit(i, d < q/4)
	}

	mb, _ := bits.Slice(0, s.params.MessageLen)
	sb, _ := bits.Slice(s.params.MessageLen, nt)
	msg := Message{bits: mb}
	values, err := s.codec.DecodeAll(sb)
	if err != nil {
		return Message{}, err
	}
	sigma := s.zq.Column(values...)

	digest, err := s.messageDigest(sender, msg, receiver)
	if err != nil {
		return Message{}, err
	}
	fs, err := s.senderMatrix(sender)
	if err != nil {
		return Message{}, err
	}
	got, err := fs.Mul(sigma)
	if err != nil {
		return Message{}, err
	}
	if !got.Equal(digest) {
		return Message{}, fault.Wrapf(op, fault.Denied, ErrSignature, "receiver %d, sender %d", receiver, sender)
	}
	return msg, nil
}
