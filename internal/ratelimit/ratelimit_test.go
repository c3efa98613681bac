package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/mietevo/mietevo-backend/internal/config"
)

func newTestLimiter(window time.Duration, max int) Limiter {
	cfg := config.GetDefaultConfig()
	cfg.Chat.WindowSeconds = int(window.Seconds())
	cfg.Chat.MaxRequests = max
	return NewFixedWindowLimiter(cfg)
}

func TestLimiterAllowsUpToMaxRequests(t *testing.T) {
	limiter := newTestLimiter(60*time.Second, 10)

	for i := 0; i < 10; i++ {
		allowed, _ := limiter.Allow("203.0.113.7")
		assert.True(t, allowed, "request %d should be allowed", i+1)
	}

	allowed, retryAfter := limiter.Allow("203.0.113.7")
	assert.False(t, allowed)
	assert.Greater(t, retryAfter, time.Duration(0))
	assert.LessOrEqual(t, retryAfter, 60*time.Second)
}

func TestLimiterKeysAreIndependent(t *testing.T) {
	limiter := newTestLimiter(60*time.Second, 1)

	allowed, _ := limiter.Allow("198.51.100.1")
	assert.True(t, allowed)
	allowed, _ = limiter.Allow("198.51.100.1")
	assert.False(t, allowed)

	allowed, _ = limiter.Allow("198.51.100.2")
	assert.True(t, allowed)
}

func TestLimiterResetsAfterWindow(t *testing.T) {
	limiter := newTestLimiter(time.Second, 1)

	allowed, _ := limiter.Allow("192.0.2.9")
	assert.True(t, allowed)
	allowed, _ = limiter.Allow("192.0.2.9")
	assert.False(t, allowed)

	assert.Eventually(t, func() bool {
		allowed, _ := limiter.Allow("192.0.2.9")
		return allowed
	}, 3*time.Second, 100*time.Millisecond)
}
