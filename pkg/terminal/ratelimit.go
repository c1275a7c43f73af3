package terminal

import (
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// rateLimiter keeps one token bucket per key. Each bucket refills at
// limit tokens per second and holds at most limit tokens.
type rateLimiter struct {
	mu       sync.Mutex
	limit    int
	limiters map[string]*rate.Limiter
}

func newRateLimiter(perSecond int) *rateLimiter {
	return &rateLimiter{
		limit:    perSecond,
		limiters: make(map[string]*rate.Limiter),
	}
}

// Allow takes a token for key and fails when the bucket is empty.
// A limit of zero allows everything.
func (rl *rateLimiter) Allow(key string) error {
	return rl.allowAt(key, time.Now())
}

func (rl *rateLimiter) allowAt(key string, now time.Time) error {
	if rl.limit <= 0 {
		return nil
	}
	if !rl.bucket(key).AllowN(now, 1) {
		return fmt.Errorf("rate limit exceeded: more than %d requests per second from %s", rl.limit, key)
	}
	return nil
}

func (rl *rateLimiter) bucket(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	l, ok := rl.limiters[key]
	if !ok {
		l = rate.NewLimiter(rate.Limit(rl.limit), rl.limit)
		rl.limiters[key] = l
	}
	return l
}

// Forget drops the bucket for key.
func (rl *rateLimiter) Forget(key string) {
	rl.mu.Lock()
	delete(rl.limiters, key)
	rl.mu.Unlock()
}
