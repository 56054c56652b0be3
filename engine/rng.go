package engine

import (
	"math/rand"

	"github.com/cespare/xxhash/v2"
)

// RNG wraps math/rand.Rand with deterministic position tracking.
// Position increments with every call, enabling replay verification.
type RNG struct {
	seed int64
	src  *rand.Rand
	pos  int64
}

// SeedFromString hashes a session seed string to a source seed.
func SeedFromString(seed string) int64 {
	return int64(xxhash.Sum64String(seed))
}

// NewRNG creates a new deterministic RNG from a session seed string.
func NewRNG(seed string) *RNG {
	s := SeedFromString(seed)
	return &RNG{
		seed: s,
		src:  rand.New(rand.NewSource(s)),
	}
}

// Float64 returns a number in [0, 1).
func (r *RNG) Float64() float64 {
	r.pos++
	return r.src.Float64()
}

// Intn returns a number in [0, n).
func (r *RNG) Intn(n int) int {
	r.pos++
	return r.src.Intn(n)
}

// Position returns the number of RNG calls made since creation.
func (r *RNG) Position() int64 {
	return r.pos
}
