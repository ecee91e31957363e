// ============================================================================
// Ballsy - Voice Assistant Backend
// ============================================================================
//
// Package:     session
// Description: Per-user session state and request rate limiting
// License:     MIT
// ============================================================================

package session

import (
	"sync"
	"time"
)

// Limiter is a sliding-window rate limiter counting request timestamps
type Limiter struct {
	limit  int
	window time.Duration

	mu     sync.Mutex
	stamps []time.Time
}

// NewLimiter creates a limiter allowing limit requests per window
func NewLimiter(limit int, window time.Duration) *Limiter {
	return &Limiter{limit: limit, window: window}
}

// Allow records a request at now and reports whether it is within the
// limit. Timestamps older than the window are pruned first.
func (l *Limiter) Allow(now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := now.Add(-l.window)
	kept := l.stamps[:0]
	for _, ts := range l.stamps {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	l.stamps = kept

	if len(l.stamps) >= l.limit {
		return false
	}
	l.stamps = append(l.stamps, now)
	return true
}

// Remaining returns how many requests are left in the current window
func (l *Limiter) Remaining(now time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := now.Add(-l.window)
	count := 0
	for _, ts := range l.stamps {
		if ts.After(cutoff) {
			count++
		}
	}
	if count >= l.limit {
		return 0
	}
	return l.limit - count
}
