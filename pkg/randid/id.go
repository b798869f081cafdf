// Package randid generates short random identifiers made of lowercase
// letters and digits.
package randid

import (
	"math/rand/v2"
	"sync"
)

const alphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// DefaultLength is the identifier length used by Source.NewID.
const DefaultLength = 8

var global = New(rand.Uint64(), rand.Uint64())

// Generate returns a random identifier of the given length using the
// process-wide source.
func Generate(length int) string {
	return global.Generate(length)
}

// Source is a seedable identifier generator. It is safe for concurrent use.
// Two sources created with the same seed produce the same sequence, which
// keeps tests deterministic.
type Source struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// New creates a Source seeded with the two PCG seed words.
func New(seed1, seed2 uint64) *Source {
	return &Source{rng: rand.New(rand.NewPCG(seed1, seed2))}
}

// Generate returns an identifier of the given length.
func (s *Source) Generate(length int) string {
	if length <= 0 {
		return ""
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	b := make([]byte, length)
	for i := range b {
		b[i] = alphabet[s.rng.IntN(len(alphabet))]
	}
	return string(b)
}

// NewID returns an identifier of DefaultLength.
func (s *Source) NewID() string {
	return s.Generate(DefaultLength)
}
