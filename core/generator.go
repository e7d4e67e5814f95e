package core

import (
	"fmt"
	"math/rand/v2"
	"sync"
	"time"
)

// RandomGenerator draws request codes uniformly and rejects occupied ones.
// The random source is created on first use and shared by every space the
// generator serves. After MaxAttempts rejected draws it falls back to a
// linear probe from a random offset, so a crowded space still terminates.
type RandomGenerator struct {
	mu          sync.Mutex
	source      *rand.Rand
	seed        func() (uint64, uint64)
	maxAttempts int
}

func NewRandomGenerator(maxAttempts int) *RandomGenerator {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxDrawAttempts
	}
	return &RandomGenerator{
		maxAttempts: maxAttempts,
		seed: func() (uint64, uint64) {
			now := uint64(time.Now().UnixNano())
			return now, rand.Uint64()
		},
	}
}

// NewSeededGenerator returns a generator with a fixed seed. Draw sequences
// are reproducible, which is only useful in tests.
func NewSeededGenerator(seed uint64, maxAttempts int) *RandomGenerator {
	generator := NewRandomGenerator(maxAttempts)
	generator.seed = func() (uint64, uint64) {
		return seed, seed ^ 0x9e3779b97f4a7c15
	}
	return generator
}

func (g *RandomGenerator) Generate(occupied func(code int) bool, bound int) (int, error) {
	if g == nil {
		return 0, fmt.Errorf("core: request code generator is not configured")
	}
	if bound <= 0 {
		return 0, ErrInvalidBound
	}
	if occupied == nil {
		occupied = func(int) bool { return false }
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	source := g.randomSource()

	for range g.maxAttempts {
		code := source.IntN(bound)
		if !occupied(code) {
			return code, nil
		}
	}

	offset := source.IntN(bound)
	for i := range bound {
		code := (offset + i) % bound
		if !occupied(code) {
			return code, nil
		}
	}
	return 0, ErrSpaceExhausted
}

func (g *RandomGenerator) MaxAttempts() int {
	if g == nil {
		return 0
	}
	return g.maxAttempts
}

func (g *RandomGenerator) randomSource() *rand.Rand {
	if g.source == nil {
		seed1, seed2 := g.seed()
		g.source = rand.New(rand.NewPCG(seed1, seed2))
	}
	return g.source
}
