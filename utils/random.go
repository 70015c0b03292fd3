package utils

import (
	"math/rand"
	"sync"
)

// RandomSource is every bit of randomness the ledger consumes. Implementations must be
// safe for concurrent use.
type RandomSource interface {
	// Intn returns a value in [0, n). n is always positive.
	Intn(n int) int
}

type lockedSource struct {
	mu sync.Mutex
	r  *rand.Rand
}

// NewRandomSource returns a goroutine safe source seeded with seed.
func NewRandomSource(seed int64) RandomSource {
	return &lockedSource{r: rand.New(rand.NewSource(seed))}
}

func (s *lockedSource) Intn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.r.Intn(n)
}

// RandRange returns a value in [min, max], both inclusive.
func RandRange(r RandomSource, min, max int) int {
	if max <= min {
		return min
	}
	return min + r.Intn(max-min+1)
}

// WeightedChoice draws an index with probability proportional to its weight. Negative
// weights count as zero. Returns -1 if every weight is zero.
func WeightedChoice(r RandomSource, weights []int) int {
	total := 0
	for _, w := range weights {
		if w > 0 {
			total += w
		}
	}
	if total == 0 {
		return -1
	}
	pick := r.Intn(total)
	for i, w := range weights {
		if w <= 0 {
			continue
		}
		if pick < w {
			return i
		}
		pick -= w
	}
	return len(weights) - 1
}
