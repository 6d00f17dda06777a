package audit

import (
	"math/rand"
	"sync"
)

// Sampler provides configurable sampling for operations-category events.
// High-volume events can be sampled down to reduce storage and processing
// costs. Compliance and security events are never sampled.
type Sampler struct {
	mu           sync.RWMutex
	defaultRate  float64
	rateByAction map[Action]float64
}

// NewSampler creates a sampler with the given default rate.
// Rate should be between 0.0 (sample nothing) and 1.0 (sample everything).
func NewSampler(defaultRate float64) *Sampler {
	return &Sampler{
		defaultRate:  clampRate(defaultRate),
		rateByAction: make(map[Action]float64),
	}
}

// ShouldSample returns true if the event should be kept.
func (s *Sampler) ShouldSample(action Action) bool {
	rate := s.rateFor(action)
	if rate >= 1 {
		return true
	}
	return rand.Float64() < rate //nolint:gosec // not security-sensitive
}

// SetRate sets the sample rate for a specific action.
// Use this to override the default for high-volume actions.
func (s *Sampler) SetRate(action Action, rate float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rateByAction[action] = clampRate(rate)
}

func (s *Sampler) rateFor(action Action) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if rate, ok := s.rateByAction[action]; ok {
		return rate
	}
	return s.defaultRate
}

func clampRate(rate float64) float64 {
	if rate < 0 {
		return 0
	}
	if rate > 1 {
		return 1
	}
	return rate
}
