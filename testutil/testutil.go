package testutil

import (
	"math/rand"
	"sync"

	"github.com/hupe1980/unpackqa/ndarray"
)

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Uint64 returns a pseudo-random uint64.
func (r *RNG) Uint64() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Uint64()
}

// QACodes returns n random values in [0, 2^nBits).
// Locks only once per call (preferred over calling Uint64 in a loop).
func (r *RNG) QACodes(n, nBits int) []uint64 {
	mask := ^uint64(0)
	if nBits < 64 {
		mask = uint64(1)<<uint(nBits) - 1
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]uint64, n)
	for i := range out {
		out[i] = r.rand.Uint64() & mask
	}
	return out
}

// QAArray returns a uint16 array of the given shape with values in
// [0, 2^nBits). nBits must be at most 16.
func (r *RNG) QAArray(nBits int, shape ...int) *ndarray.Array {
	size := 1
	for _, d := range shape {
		size *= d
	}
	codes := r.QACodes(size, nBits)
	data := make([]uint16, size)
	for i, c := range codes {
		data[i] = uint16(c)
	}
	return ndarray.MustNew(data, shape...)
}

// DecodeFlag decodes one flag from a scalar QA code using shifts only.
// The first listed bit is the least significant bit of the result.
func DecodeFlag(code uint64, bits []int) uint64 {
	var v uint64
	for pos, b := range bits {
		v |= ((code >> uint(b)) & 1) << uint(pos)
	}
	return v
}
