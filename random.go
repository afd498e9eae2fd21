package hypersweep

import (
	"math/rand"
	"sync"
)

// RandomSearch is the model-free suggestion strategy: every suggestion is a
// uniform random sample from the space and observations are discarded.
//
// When to use:
//   - As a baseline to compare TPE against.
//   - When trials are so cheap that modeling overhead is not worth it.
//   - As the `rand.suggest` algorithm of the packaged entry point.
type RandomSearch struct {
	// mu protects the random source.
	mu sync.Mutex

	// rng is the suggester's random source. Guarded by mu.
	rng *rand.Rand
}

// NewRandomSearch returns a RandomSearch seeded with seed.
func NewRandomSearch(seed int64) *RandomSearch {
	return &RandomSearch{rng: rand.New(rand.NewSource(seed))}
}

// Suggest returns a uniform random sample from the space.
func (r *RandomSearch) Suggest(space Space) []float64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	return space.Sample(r.rng)
}

// Observe is a no-op: random search keeps no history.
func (r *RandomSearch) Observe(params []float64, loss float64) {}
