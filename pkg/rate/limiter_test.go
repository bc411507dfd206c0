package rate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

func TestNoLimiter(t *testing.T) {
	l := &NoLimiter{}
	for i := 0; i < 1000; i++ {
		allowed, err := l.Allow("")
		assert.NoError(t, err)
		assert.True(t, allowed)
	}
}

func TestLocalRateLimiter(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	l := newLocalRateLimiter(rate.Limit(2), clock.Now)

	assertAllowed := func(key string, expected bool) {
		allowed, err := l.Allow(key)
		require.NoError(t, err)
		assert.Equal(t, expected, allowed, key)
	}

	assertAllowed("a", true)
	assertAllowed("a", true)
	assertAllowed("a", false)

	// Keys are limited independently
	assertAllowed("b", true)
	assertAllowed("b", true)
	assertAllowed("b", false)

	// Tokens refill at the configured rate
	clock.Advance(500 * time.Millisecond)
	assertAllowed("a", true)
	assertAllowed("a", false)
}

func TestLocalRateLimiter_FractionalLimit(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	l := newLocalRateLimiter(rate.Limit(0.5), clock.Now)

	allowed, _ := l.Allow("a")
	assert.True(t, allowed)
	allowed, _ = l.Allow("a")
	assert.False(t, allowed)

	clock.Advance(2 * time.Second)
	allowed, _ = l.Allow("a")
	assert.True(t, allowed)
}

func TestLocalRateLimiter_IdleKeysAreSwept(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	l := newLocalRateLimiter(rate.Limit(1), clock.Now)

	_, _ = l.Allow("idle")
	_, _ = l.Allow("active")
	assert.Len(t, l.limiters, 2)

	clock.Advance(idleKeyTTL - sweepInterval)
	_, _ = l.Allow("active")

	clock.Advance(2 * sweepInterval)
	_, _ = l.Allow("active")

	assert.Len(t, l.limiters, 1)
	assert.Contains(t, l.limiters, "active")
}
