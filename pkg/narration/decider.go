package narration

import (
	"math/rand/v2"
	"sync"
)

// Decider decides whether a synonym may replace a word at the given
// verbosity (0-100).
type Decider interface {
	Substitute(verbosity int) bool
}

// DeciderFunc adapts a function to Decider.
type DeciderFunc func(verbosity int) bool

func (f DeciderFunc) Substitute(verbosity int) bool { return f(verbosity) }

// Threshold substitutes whenever verbosity reaches Cutoff.
type Threshold struct {
	Cutoff int
}

func (t Threshold) Substitute(verbosity int) bool { return verbosity >= t.Cutoff }

// Random substitutes with a probability of verbosity percent.
type Random struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandom seeds a Random. Equal seeds give equal decision sequences.
func NewRandom(seed uint64) *Random {
	return &Random{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (r *Random) Substitute(verbosity int) bool {
	switch {
	case verbosity <= 0:
		return false
	case verbosity >= 100:
		return true
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.IntN(100) < verbosity
}
