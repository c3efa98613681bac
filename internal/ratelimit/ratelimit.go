package ratelimit

import (
	"time"

	goCache "github.com/patrickmn/go-cache"

	"github.com/mietevo/mietevo-backend/internal/config"
)

// Limiter decides whether a caller identified by key may proceed. When the
// request is rejected, retryAfter is how long the caller should wait.
type Limiter interface {
	Allow(key string) (allowed bool, retryAfter time.Duration)
}

// fixedWindowLimiter counts requests per key in a fixed window. The first
// request in a window starts it; the counter entry expires with the window.
type fixedWindowLimiter struct {
	cache       *goCache.Cache
	window      time.Duration
	maxRequests int
}

func NewFixedWindowLimiter(cfg *config.Configuration) Limiter {
	window := time.Duration(cfg.Chat.WindowSeconds) * time.Second
	return &fixedWindowLimiter{
		cache:       goCache.New(window, 2*window),
		window:      window,
		maxRequests: cfg.Chat.MaxRequests,
	}
}

// Allow implements Limiter.
func (l *fixedWindowLimiter) Allow(key string) (bool, time.Duration) {
	if err := l.cache.Add(key, 1, l.window); err == nil {
		return true, 0
	}

	count, err := l.cache.IncrementInt(key, 1)
	if err != nil {
		// entry expired between Add and Increment, start a fresh window
		l.cache.Set(key, 1, l.window)
		return true, 0
	}

	if count <= l.maxRequests {
		return true, 0
	}

	retryAfter := l.window
	if _, expiration, found := l.cache.GetWithExpiration(key); found && !expiration.IsZero() {
		if remaining := time.Until(expiration); remaining > 0 {
			retryAfter = remaining
		}
	}
	return false, retryAfter
}
