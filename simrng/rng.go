// Package simrng wraps the single named RNG stream a World owns. Its
// state is part of the world's identity for hashing (spec.md §3/§5): any
// stochastic extension must draw from it, and only it, to preserve seed
// determinism.
package simrng

import (
	"encoding/binary"
	"math/rand"
)

// Stream is a seeded RNG stream plus a draw counter, so its state can be
// folded into a world's canonical serialization without reading the
// private internals of math/rand.Rand.
type Stream struct {
	rng   *rand.Rand
	seed  int64
	draws uint64
}

// New creates a Stream seeded deterministically, matching the teacher's
// own rand.New(rand.NewSource(seed)) convention.
func New(seed int64) *Stream {
	return &Stream{rng: rand.New(rand.NewSource(seed)), seed: seed}
}

// Reset reseeds the stream in place, as World.Reset requires.
func (s *Stream) Reset(seed int64) {
	s.rng = rand.New(rand.NewSource(seed))
	s.seed = seed
	s.draws = 0
}

// Float64 returns a pseudo-random number in [0, 1) and advances state.
func (s *Stream) Float64() float64 {
	s.draws++
	return s.rng.Float64()
}

// Uint64 returns a pseudo-random uint64 and advances state.
func (s *Stream) Uint64() uint64 {
	s.draws++
	return s.rng.Uint64()
}

// Seed returns the seed the stream was last (re)initialized with.
func (s *Stream) Seed() int64 { return s.seed }

// Draws returns the number of values drawn since the last seed/reset.
func (s *Stream) Draws() uint64 { return s.draws }

// AppendState appends the stream's canonical byte encoding (seed, then
// draw count, both little-endian) to dst, for state_hash and snapshot
// encoding.
func (s *Stream) AppendState(dst []byte) []byte {
	var buf [16]byte
	binary.LittleEndian.PutUint64(buf[0:8], uint64(s.seed))
	binary.LittleEndian.PutUint64(buf[8:16], s.draws)
	return append(dst, buf[:]...)
}
