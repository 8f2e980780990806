package store

import (
	"context"
	"sync"
	"time"

	"qualify/internal/ratelimit"
	"qualify/pkg/platform/clock"
)

// InMemoryWindows is a per-process sliding window store.
type InMemoryWindows struct {
	mu      sync.Mutex
	clock   clock.Clock
	windows map[string][]time.Time
}

func NewInMemoryWindows(c clock.Clock) *InMemoryWindows {
	if c == nil {
		c = clock.System{}
	}
	return &InMemoryWindows{clock: c, windows: make(map[string][]time.Time)}
}

func (s *InMemoryWindows) Allow(_ context.Context, key string, limit int, window time.Duration) (*ratelimit.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	hits := evict(s.windows[key], now.Add(-window))

	if len(hits) >= limit {
		s.windows[key] = hits
		resetAt := hits[0].Add(window)
		return &ratelimit.Result{
			Allowed:    false,
			Limit:      limit,
			Remaining:  0,
			ResetAt:    resetAt,
			RetryAfter: resetAt.Sub(now),
		}, nil
	}

	hits = append(hits, now)
	s.windows[key] = hits
	return &ratelimit.Result{
		Allowed:   true,
		Limit:     limit,
		Remaining: limit - len(hits),
		ResetAt:   hits[0].Add(window),
	}, nil
}

// evict drops hits at or before cutoff. hits is in arrival order.
func evict(hits []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for ; i < len(hits); i++ {
		if hits[i].After(cutoff) {
			break
		}
	}
	return hits[i:]
}
