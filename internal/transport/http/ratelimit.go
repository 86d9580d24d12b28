package http

import (
	"sync"
	"time"
)

// rateLimiter is a coarse per-minute counter guarding room creation. A zero
// or negative limit disables it.
type rateLimiter struct {
	limit int

	mu          sync.Mutex
	counter     int
	windowStart time.Time
}

func newRateLimiter(limit int) *rateLimiter {
	return &rateLimiter{
		limit:       limit,
		windowStart: time.Now(),
	}
}

func (r *rateLimiter) allow() bool {
	if r == nil || r.limit <= 0 {
		return true
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	if now.Sub(r.windowStart) >= time.Minute {
		r.counter = 0
		r.windowStart = now
	}
	r.counter++
	return r.counter <= r.limit
}
