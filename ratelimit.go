package anyauth

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// RateLimiter throttles login attempts. Allow reports whether the caller
// identified by key may proceed.
type RateLimiter interface {
	Allow(key string) bool
}

// CacheRateLimiter is a fixed-window limiter backed by an expiring
// in-process cache: at most max attempts per key per window.
type CacheRateLimiter struct {
	cache *gocache.Cache
	max   int
}

// NewCacheRateLimiter builds a limiter allowing max attempts per window.
func NewCacheRateLimiter(max int, window time.Duration) *CacheRateLimiter {
	return &CacheRateLimiter{
		cache: gocache.New(window, window),
		max:   max,
	}
}

func (l *CacheRateLimiter) Allow(key string) bool {
	if err := l.cache.Add(key, 1, gocache.DefaultExpiration); err == nil {
		return true
	}
	count, err := l.cache.IncrementInt(key, 1)
	if err != nil {
		// Entry expired between Add and Increment; treat as a fresh window.
		l.cache.Set(key, 1, gocache.DefaultExpiration)
		return true
	}
	return count <= l.max
}
