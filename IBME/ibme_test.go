package ibme

import (
	"errors"
	"testing"

	"github.com/Mega-Ryan/IBME/Hash"
	"github.com/Mega-Ryan/IBME/Preimage_Sampler"
	"github.com/Mega-Ryan/IBME/System"
	"github.com/Mega-Ryan/IBME/Tree"
	"github.com/Mega-Ryan/IBME/fault"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	sender   = 2
	receiver = 3
)

func newTestScheme(t *testing.T, seed, hashName string) *Scheme {
	t.Helper()
	p, err := Parameters.Derive(8, 8, 97, 2)
	require.NoError(t, err)
	p.Seed = seed
	p.Hash = hashName
	s, err := Setup(p)
	require.NoError(t, err)
	return s
}

func TestSetupDimensions(t *testing.T) {
	s := newTestScheme(t, "setup", "")
	p := s.Params()
	require.Equal(t, 7, p.K)
	require.Equal(t, 14, p.Cols)
	require.Equal(t, 3*14*7, p.SignatureLen)
	require.Len(t, s.u, p.Targets)
	require.Equal(t, 2*p.Cols, s.a.A.Cols())
	require.Equal(t, 2*p.Cols, s.b1.Cols())
	require.Equal(t, 8, s.Tree().Leaves())
	require.Zero(t, s.RL().Len())
	require.False(t, s.SupportsExactPreimage())
}

func TestRoundTrip(t *testing.T) {
	for _, h := range []string{hash.SHA256, hash.XMD, hash.SHAKE256} {
		t.Run(h, func(t *testing.T) {
			s := newTestScheme(t, "round-trip-"+h, h)
			sk, err := s.SKGen(sender)
			require.NoError(t, err)
			require.Equal(t, 2*s.Params().Cols, sk.R.Rows())

			rk, err := s.RKGen(receiver)
			require.NoError(t, err)
			require.Len(t, rk.Nodes, s.Tree().Depth()+1)

			uk, err := s.KUpdGen(s.RL(), 0)
			require.NoError(t, err)
			require.Len(t, uk.Nodes, 1, "empty RL is covered by the root")

			dk, err := s.DKGen(rk, receiver, uk, 0)
			require.NoError(t, err)
			require.Equal(t, s.Tree().Root(), dk.Node)

			msg, err := s.ParseMessage("10100111")
			require.NoError(t, err)
			ct, err := s.Enc(sk, sender, receiver, msg, 0)
			require.NoError(t, err)
			require.Equal(t, 6*s.Params().Cols, ct.C2.Rows())

			got, err := s.Dec(dk, receiver, sender, ct)
			require.NoError(t, err)
			require.Equal(t, "10100111", got.String())
			require.True(t, got.Equal(msg))
		})
	}
}

func TestRoundTripAllPatterns(t *testing.T) {
	s := newTestScheme(t, "patterns", "")
	sk, err := s.SKGen(0)
	require.NoError(t, err)
	rk, err := s.RKGen(5)
	require.NoError(t, err)
	uk, err := s.KUpdGen(nil, 4)
	require.NoError(t, err)
	dk, err := s.DKGen(rk, 5, uk, 4)
	require.NoError(t, err)
	for _, pattern := range []string{"00000000", "11111111", "1", "01010101"} {
		msg, err := s.ParseMessage(pattern)
		require.NoError(t, err)
		ct, err := s.Enc(sk, 0, 5, msg, 4)
		require.NoError(t, err)
		got, err := s.Dec(dk, 5, 0, ct)
		require.NoError(t, err)
		require.True(t, got.Equal(msg), "pattern %s decrypted to %s", pattern, got)
	}
}

func TestRevokedReceiverGetsNoKey(t *testing.T) {
	s := newTestScheme(t, "revoked", "")
	rk3, err := s.RKGen(receiver)
	require.NoError(t, err)
	rk2, err := s.RKGen(sender)
	require.NoError(t, err)

	require.NoError(t, s.Revoke(receiver, 1))

	uk1, err := s.KUpdGen(s.RL(), 1)
	require.NoError(t, err)
	leaf, _ := s.Tree().Leaf(receiver)
	path, _ := s.Tree().Path(leaf)
	for _, nk := range uk1.Nodes {
		assert.NotContains(t, path, nk.Node)
	}

	_, err = s.DKGen(rk3, receiver, uk1, 1)
	require.True(t, errors.Is(err, ErrRevoked), "err = %v", err)
	require.Equal(t, fault.Denied, fault.KindOf(err))

	// Other users, and the revoked one before its revocation epoch, still decrypt.
	_, err = s.DKGen(rk2, sender, uk1, 1)
	require.NoError(t, err)
	uk0, err := s.KUpdGen(s.RL(), 0)
	require.NoError(t, err)
	_, err = s.DKGen(rk3, receiver, uk0, 0)
	require.NoError(t, err)
}

func TestIdentityMismatchFailsSignature(t *testing.T) {
	s := newTestScheme(t, "mismatch", "")
	sk, err := s.SKGen(sender)
	require.NoError(t, err)
	rk4, err := s.RKGen(receiver + 1)
	require.NoError(t, err)
	rk3, err := s.RKGen(receiver)
	require.NoError(t, err)
	uk, err := s.KUpdGen(s.RL(), 0)
	require.NoError(t, err)
	dk4, err := s.DKGen(rk4, receiver+1, uk, 0)
	require.NoError(t, err)
	dk3, err := s.DKGen(rk3, receiver, uk, 0)
	require.NoError(t, err)

	msg, _ := s.ParseMessage("10100111")
	ct, err := s.Enc(sk, sender, receiver, msg, 0)
	require.NoError(t, err)

	_, err = s.Dec(dk4, receiver+1, sender, ct)
	require.True(t, errors.Is(err, ErrSignature), "wrong receiver: %v", err)
	require.True(t, fault.Is(err, fault.Denied))

	_, err = s.Dec(dk3, receiver, sender+3, ct)
	require.True(t, errors.Is(err, ErrSignature), "wrong sender: %v", err)
}

func TestWrongEpochFailsSignature(t *testing.T) {
	s := newTestScheme(t, "epoch", "")
	sk, _ := s.SKGen(sender)
	rk, _ := s.RKGen(receiver)
	uk0, err := s.KUpdGen(nil, 0)
	require.NoError(t, err)
	dk0, err := s.DKGen(rk, receiver, uk0, 0)
	require.NoError(t, err)
	msg, _ := s.ParseMessage("1101")
	ct, err := s.Enc(sk, sender, receiver, msg, 1)
	require.NoError(t, err)
	_, err = s.Dec(dk0, receiver, sender, ct)
	require.True(t, errors.Is(err, ErrSignature), "err = %v", err)
}

func TestSharesOrderIndependent(t *testing.T) {
	s := newTestScheme(t, "order", "")
	uk, err := s.KUpdGen(nil, 0)
	require.NoError(t, err)
	rk, err := s.RKGen(6)
	require.NoError(t, err)
	dk, err := s.DKGen(rk, 6, uk, 0)
	require.NoError(t, err)
	sk, _ := s.SKGen(1)
	msg, _ := s.ParseMessage("0110")
	ct, err := s.Enc(sk, 1, 6, msg, 0)
	require.NoError(t, err)
	got, err := s.Dec(dk, 6, 1, ct)
	require.NoError(t, err)
	require.True(t, got.Equal(msg))
}

func TestUsageErrors(t *testing.T) {
	s := newTestScheme(t, "usage", "")
	sk, err := s.SKGen(sender)
	require.NoError(t, err)
	msg, _ := s.ParseMessage("1")

	_, err = s.Enc(sk, sender, sender, msg, 0)
	require.True(t, errors.Is(err, ErrSameIdentity))
	require.True(t, fault.Is(err, fault.Usage))
	_, err = s.Dec(DecryptionKey{}, sender, sender, Ciphertext{})
	require.True(t, errors.Is(err, ErrSameIdentity))

	for _, id := range []int{-1, 8} {
		_, err = s.SKGen(id)
		require.True(t, errors.Is(err, ErrIdentityRange), "SKGen(%d)", id)
		_, err = s.RKGen(id)
		require.True(t, errors.Is(err, ErrIdentityRange), "RKGen(%d)", id)
		require.True(t, errors.Is(s.Revoke(id, 0), ErrIdentityRange), "Revoke(%d)", id)
	}
	_, err = s.KUpdGen(s.RL(), -1)
	require.True(t, errors.Is(err, ErrEpoch))
	require.True(t, errors.Is(s.Revoke(1, -2), ErrEpoch))

	_, err = s.ParseMessage("101010101")
	require.True(t, errors.Is(err, hash.ErrBitWidth))
	short, _ := ParseMessage("1", 3)
	_, err = s.Enc(sk, sender, receiver, short, 0)
	require.True(t, errors.Is(err, hash.ErrBitWidth))

	_, err = s.Dec(DecryptionKey{}, receiver, sender, Ciphertext{C1: s.zq.New(1, 1), C2: s.zq.New(1, 1)})
	require.True(t, errors.Is(err, ErrCiphertext))
}

func TestParseMessagePads(t *testing.T) {
	m, err := ParseMessage("10100111", 12)
	require.NoError(t, err)
	require.Equal(t, "000010100111", m.String())
	require.Equal(t, 12, m.Len())
	_, err = ParseMessage("10a", 12)
	require.Error(t, err)
}

func TestRevokeIsIdempotent(t *testing.T) {
	s := newTestScheme(t, "revoke", "")
	require.NoError(t, s.Revoke(1, 2))
	require.NoError(t, s.Revoke(1, 2))
	require.Equal(t, 1, s.RL().Len())
	leaf, _ := s.Tree().Leaf(1)
	require.Equal(t, []tree.Entry{{Node: leaf, Epoch: 2}}, s.RL().Entries())
}

func TestOracleGapFailsKeyGeneration(t *testing.T) {
	s := newTestScheme(t, "coverage-off", "")
	// A width this small only ever draws 0, so every nonzero syndrome is a gap.
	ps, err := Preimage_Sampler.NewSampler(s.Zq(), 1e-6, Preimage_Sampler.WithOracleCoverage(false))
	require.NoError(t, err)
	s.sampler = ps

	_, err = s.SKGen(0)
	require.True(t, errors.Is(err, Preimage_Sampler.ErrNoPreimage), "err = %v", err)
	_, err = s.RKGen(1)
	require.True(t, errors.Is(err, Preimage_Sampler.ErrNoPreimage), "err = %v", err)
}

func TestRevokingEveryoneLeavesNoKeys(t *testing.T) {
	p, err := Parameters.Derive(2, 4, 97, 2)
	require.NoError(t, err)
	p.Seed = "revoke-all"
	s, err := Setup(p)
	require.NoError(t, err)
	rk0, err := s.RKGen(0)
	require.NoError(t, err)
	rk1, err := s.RKGen(1)
	require.NoError(t, err)
	require.NoError(t, s.Revoke(0, 1))
	require.NoError(t, s.Revoke(1, 1))

	uk, err := s.KUpdGen(s.RL(), 1)
	require.NoError(t, err)
	require.Empty(t, uk.Nodes)
	_, err = s.DKGen(rk0, 0, uk, 1)
	require.True(t, errors.Is(err, ErrRevoked), "err = %v", err)
	require.True(t, fault.Is(err, fault.Denied))
	_, err = s.DKGen(rk1, 1, uk, 1)
	require.True(t, errors.Is(err, ErrRevoked), "err = %v", err)

	uk0, err := s.KUpdGen(s.RL(), 0)
	require.NoError(t, err)
	_, err = s.DKGen(rk0, 0, uk0, 0)
	require.NoError(t, err)
}

func TestDKGenRejectsForeignKeys(t *testing.T) {
	s := newTestScheme(t, "foreign-keys", "")
	rk, err := s.RKGen(receiver)
	require.NoError(t, err)
	uk, err := s.KUpdGen(nil, 0)
	require.NoError(t, err)

	_, err = s.DKGen(rk, sender, uk, 0)
	require.True(t, errors.Is(err, ErrKeyMismatch), "err = %v", err)
	require.True(t, fault.Is(err, fault.Usage))

	_, err = s.DKGen(rk, receiver, uk, 1)
	require.True(t, errors.Is(err, ErrKeyMismatch), "err = %v", err)
	require.True(t, fault.Is(err, fault.Usage))
}
