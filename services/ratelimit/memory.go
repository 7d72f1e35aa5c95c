package ratelimit

import (
	"context"
	"sync"
	"time"
)

const sweepThreshold = 10000

// MemoryStore keeps per-key hit timestamps in process memory.
type MemoryStore struct {
	mu   sync.Mutex
	hits map[string][]time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{hits: make(map[string][]time.Time)}
}

func (s *MemoryStore) Allow(_ context.Context, key string, limit int, window time.Duration, now time.Time) (Decision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.hits) > sweepThreshold {
		s.sweep(window, now)
	}

	recent := prune(s.hits[key], now.Add(-window))
	if len(recent) >= limit {
		s.hits[key] = recent
		return Decision{
			Allowed:    false,
			Remaining:  0,
			RetryAfter: recent[0].Add(window).Sub(now),
		}, nil
	}

	recent = append(recent, now)
	s.hits[key] = recent
	return Decision{Allowed: true, Remaining: limit - len(recent)}, nil
}

// sweep drops keys with no hits inside window.
func (s *MemoryStore) sweep(window time.Duration, now time.Time) {
	cutoff := now.Add(-window)
	for key, times := range s.hits {
		if kept := prune(times, cutoff); len(kept) == 0 {
			delete(s.hits, key)
		} else {
			s.hits[key] = kept
		}
	}
}

// prune keeps timestamps strictly after cutoff. times is sorted ascending.
func prune(times []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(times) && !times[i].After(cutoff) {
		i++
	}
	if i == 0 {
		return times
	}
	return append(times[:0:0], times[i:]...)
}
