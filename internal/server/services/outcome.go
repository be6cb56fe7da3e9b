package services

import (
	"math/rand/v2"
	"sync"
)

// OutcomeSource yields uniform draws in [0, 1) that decide simulated
// transaction outcomes. Implementations must be safe for concurrent use.
type OutcomeSource interface {
	Float64() float64
}

type globalSource struct{}

func (globalSource) Float64() float64 { return rand.Float64() }

// DefaultOutcomeSource draws from the runtime-seeded math/rand/v2 generator.
func DefaultOutcomeSource() OutcomeSource {
	return globalSource{}
}

// SeededSource is a deterministic OutcomeSource for reproducible runs.
type SeededSource struct {
	mu sync.Mutex
	r  *rand.Rand
}

func NewSeededSource(seed uint64) *SeededSource {
	return &SeededSource{r: rand.New(rand.NewPCG(seed, seed))}
}

func (s *SeededSource) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.r.Float64()
}
