// Package sampler holds the randomness primitives of the scheme: a seedable
// PRNG source, a discrete uniform sampler over Z_q and a discrete Gaussian
// sampler over Z folded into Z_q.
package sampler

import (
	"encoding/binary"
	"math/bits"
	"sync"

	"github.com/pkg/errors"
	"github.com/tuneinsight/lattigo/v4/ring"
	"github.com/tuneinsight/lattigo/v4/utils"
)

// Source is a PRNG shared by every sampler of a scheme instance.
// It is safe for concurrent use.
type Source struct {
	mu   sync.Mutex
	prng utils.PRNG
	buf  [8]byte
}

// NewSource returns a keyed, reproducible source when seed is non-empty and
// a randomly keyed one otherwise.
func NewSource(seed []byte) (*Source, error) {
	var (
		prng utils.PRNG
		err  error
	)
	if len(seed) > 0 {
		prng, err = utils.NewKeyedPRNG(seed)
	} else {
		prng, err = utils.NewPRNG()
	}
	if err != nil {
		return nil, errors.Wrap(err, "cannot initialise PRNG")
	}
	return &Source{prng: prng}, nil
}

// Uint64 returns 64 uniform bits.
func (s *Source) Uint64() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.prng.Read(s.buf[:]); err != nil {
		// the keyed PRNG is an XOF and never fails once constructed
		panic(errors.Wrap(err, "PRNG read"))
	}
	return binary.LittleEndian.Uint64(s.buf[:])
}

// Float64 returns a uniform float in [0, 1) with 53 bits of precision.
func (s *Source) Float64() float64 {
	return float64(s.Uint64()>>11) / (1 << 53)
}

// Below returns a uniform integer in [0, v). v must be positive.
func (s *Source) Below(v uint64) uint64 {
	if v == 1 {
		return 0
	}
	mask := uint64(1)<<bits.Len64(v-1) - 1
	s.mu.Lock()
	defer s.mu.Unlock()
	return ring.RandUniform(s.prng, v, mask)
}

// Intn returns a uniform integer in [0, n). n must be positive.
func (s *Source) Intn(n int) int {
	return int(s.Below(uint64(n)))
}

// Sign returns -1 or 1 with equal probability.
func (s *Source) Sign() int64 {
	if s.Uint64()&1 == 0 {
		return -1
	}
	return 1
}
