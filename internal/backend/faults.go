package backend

import (
	"math/rand"
	"sync"
)

// Faults decides whether a mutating request fails. Implementations must be
// safe for concurrent use.
type Faults interface {
	// Fail reports whether a request subject to the given failure rate
	// should fail.
	Fail(rate float64) bool
}

// FaultFunc adapts a function to the Faults interface.
type FaultFunc func(rate float64) bool

// Fail calls f(rate).
func (f FaultFunc) Fail(rate float64) bool { return f(rate) }

// Fixed outcomes for tests and for running without fault injection.
var (
	NeverFail  Faults = FaultFunc(func(float64) bool { return false })
	AlwaysFail Faults = FaultFunc(func(float64) bool { return true })
)

// randomFaults fails each request independently with probability rate.
type randomFaults struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// RandomFaults returns a Faults drawing from a source seeded with seed.
func RandomFaults(seed int64) Faults {
	return &randomFaults{rng: rand.New(rand.NewSource(seed))}
}

func (f *randomFaults) Fail(rate float64) bool {
	if rate <= 0 {
		return false
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rng.Float64() < rate
}
