package middleware

import (
	"sync"
	"time"

	"github.com/go-chi/httprate"
)

// slidingLog is an httprate.LimitCounter that remembers when each admitted
// request arrived. Get reports the exact number of hits inside the rolling
// window as the current count and zero for the previous window, so the
// limiter's estimate collapses to an exact bound.
type slidingLog struct {
	mu        sync.Mutex
	window    time.Duration
	now       func() time.Time
	hits      map[string][]time.Time
	lastSweep time.Time
}

var _ httprate.LimitCounter = (*slidingLog)(nil)

func newSlidingLog(window time.Duration) *slidingLog {
	return &slidingLog{
		window: window,
		now:    time.Now,
		hits:   make(map[string][]time.Time),
	}
}

func (s *slidingLog) Config(_ int, window time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.window = window
}

func (s *slidingLog) Increment(key string, currentWindow time.Time) error {
	return s.IncrementBy(key, currentWindow, 1)
}

func (s *slidingLog) IncrementBy(key string, _ time.Time, amount int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.sweep(now)
	hits := s.prune(key, now)
	for i := 0; i < amount; i++ {
		hits = append(hits, now)
	}
	s.hits[key] = hits
	return nil
}

func (s *slidingLog) Get(key string, _, _ time.Time) (int, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.prune(key, s.now())), 0, nil
}

// prune drops hits at or before now-window. Keys left empty are removed.
func (s *slidingLog) prune(key string, now time.Time) []time.Time {
	hits := s.hits[key]
	cutoff := now.Add(-s.window)
	i := 0
	for i < len(hits) && !hits[i].After(cutoff) {
		i++
	}
	if i == len(hits) {
		delete(s.hits, key)
		return nil
	}
	if i > 0 {
		hits = append(hits[:0:0], hits[i:]...)
		s.hits[key] = hits
	}
	return hits
}

// sweep prunes every key at most once per window so callers that never
// return do not accumulate
func (s *slidingLog) sweep(now time.Time) {
	if now.Sub(s.lastSweep) < s.window {
		return
	}
	s.lastSweep = now
	for key := range s.hits {
		s.prune(key, now)
	}
}
