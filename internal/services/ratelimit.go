package services

import (
	"context"
	"log"
	"sync"
	"time"
)

// RateLimiter bounds request frequency per identity within a fixed window.
// Counters live in Redis so the bound holds across server instances; when
// Redis is not configured the limiter degrades to per-process counters,
// which matches a single-instance deployment.
type RateLimiter struct {
	cache *RedisCache // nil enables the in-process fallback

	mu      sync.Mutex
	windows map[string]*memoryWindow
	now     func() time.Time
}

type memoryWindow struct {
	count   int64
	resetAt time.Time
}

func NewRateLimiter(cache *RedisCache) *RateLimiter {
	return &RateLimiter{
		cache:   cache,
		windows: make(map[string]*memoryWindow),
		now:     time.Now,
	}
}

// Allow records one hit against key and reports whether it stays within
// limit hits per window. Redis failures fall back to the in-process counter
// so a cache outage never drops the bound entirely.
func (l *RateLimiter) Allow(ctx context.Context, key string, limit int64, window time.Duration) bool {
	if l.cache != nil {
		n, err := l.cache.IncrementWindow(ctx, key, window)
		if err == nil {
			return n <= limit
		}
		log.Printf("rate limiter: redis error for %s, using in-process counter: %v", key, err)
	}
	return l.allowInProcess(key, limit, window)
}

func (l *RateLimiter) allowInProcess(key string, limit int64, window time.Duration) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.windows[key]
	if !ok || now.After(w.resetAt) {
		w = &memoryWindow{resetAt: now.Add(window)}
		l.windows[key] = w
	}
	w.count++
	return w.count <= limit
}
