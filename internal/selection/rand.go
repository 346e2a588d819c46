package selection

import (
	"math/rand/v2"
	"sync"
	"time"
)

// Rand is the randomness the engine consumes.
// IntN returns a uniform integer in [0, n).
type Rand interface {
	IntN(n int) int
}

// lockedRand makes a *rand.Rand safe for the host's concurrent surfaces.
type lockedRand struct {
	mu sync.Mutex
	r  *rand.Rand
}

func (l *lockedRand) IntN(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.IntN(n)
}

// NewRand returns a goroutine-safe PCG source seeded with seed.
// Equal seeds replay equal draws.
func NewRand(seed uint64) Rand {
	return &lockedRand{r: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func defaultRand() Rand {
	return NewRand(uint64(time.Now().UnixNano()))
}
