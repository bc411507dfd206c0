package rate

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter limits operations based on a provided key.
type Limiter interface {
	Allow(key string) (bool, error)
}

const (
	// Keys idle for longer than this are dropped, and get a full bucket on
	// their next operation
	idleKeyTTL = 10 * time.Minute

	sweepInterval = time.Minute
)

type keyedLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type localRateLimiter struct {
	limit rate.Limit
	burst int
	now   func() time.Time

	mu        sync.Mutex
	limiters  map[string]*keyedLimiter
	lastSweep time.Time
}

// NewLocalRateLimiter returns an in memory limiter allowing limit operations
// per second for each key, with a burst of the same size.
func NewLocalRateLimiter(limit rate.Limit) Limiter {
	return newLocalRateLimiter(limit, time.Now)
}

func newLocalRateLimiter(limit rate.Limit, now func() time.Time) *localRateLimiter {
	burst := int(limit)
	if burst < 1 {
		burst = 1
	}

	return &localRateLimiter{
		limit:     limit,
		burst:     burst,
		now:       now,
		limiters:  make(map[string]*keyedLimiter),
		lastSweep: now(),
	}
}

// Allow implements limiter.Allow.
func (l *localRateLimiter) Allow(key string) (bool, error) {
	now := l.now()

	l.mu.Lock()
	if now.Sub(l.lastSweep) >= sweepInterval {
		l.sweep(now)
	}

	keyed, ok := l.limiters[key]
	if !ok {
		keyed = &keyedLimiter{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.limiters[key] = keyed
	}
	keyed.lastSeen = now
	l.mu.Unlock()

	return keyed.limiter.AllowN(now, 1), nil
}

func (l *localRateLimiter) sweep(now time.Time) {
	for key, keyed := range l.limiters {
		if now.Sub(keyed.lastSeen) > idleKeyTTL {
			delete(l.limiters, key)
		}
	}
	l.lastSweep = now
}

// NoLimiter never limits operations
type NoLimiter struct {
}

// Allow implements limiter.Allow.
func (n *NoLimiter) Allow(key string) (bool, error) {
	return true, nil
}
