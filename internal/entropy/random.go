// Package entropy provides deterministic random sources. Every agent draws
// from its own stream derived from the run seed, so a run replays exactly
// regardless of how agents are scheduled across workers.
package entropy

import (
	"crypto/rand"
	"encoding/binary"
	"math"
	mrand "math/rand"
)

// Source is a seeded random stream. Not safe for concurrent use; give each
// goroutine-owned entity its own.
type Source struct {
	rng *mrand.Rand
}

// NewSource derives an independent stream from a run seed and a stream
// number (typically the agent ID).
func NewSource(seed int64, stream uint64) *Source {
	mixed := splitmix64(uint64(seed) ^ splitmix64(stream+0x9e3779b97f4a7c15))
	return &Source{rng: mrand.New(mrand.NewSource(int64(mixed)))}
}

// Float returns a float64 in [0, 1).
func (s *Source) Float() float64 {
	return s.rng.Float64()
}

// Intn returns an int in [0, n). n must be positive.
func (s *Source) Intn(n int) int {
	return s.rng.Intn(n)
}

// Norm returns a normally distributed value with mean 0 and the given
// standard deviation. A non-positive stddev returns 0 without consuming
// randomness.
func (s *Source) Norm(stddev float64) float64 {
	if stddev <= 0 {
		return 0
	}
	return s.rng.NormFloat64() * stddev
}

// Sample returns min(k, n) distinct indices in [0, n), in draw order.
func (s *Source) Sample(n, k int) []int {
	if k > n {
		k = n
	}
	if k <= 0 {
		return nil
	}
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	// Partial Fisher-Yates.
	for i := 0; i < k; i++ {
		j := i + s.rng.Intn(n-i)
		idx[i], idx[j] = idx[j], idx[i]
	}
	return idx[:k]
}

// RandomSeed returns a non-zero seed from crypto/rand, used when a run is
// configured with seed 0.
func RandomSeed() int64 {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// This should never happen but fall back to a fixed seed.
		return 1
	}
	n := int64(binary.LittleEndian.Uint64(buf[:]) & math.MaxInt64)
	if n == 0 {
		n = 1
	}
	return n
}

func splitmix64(x uint64) uint64 {
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}
