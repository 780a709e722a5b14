package services

import (
	"context"
	"testing"
	"time"
)

func TestRateLimiterAllowsUpToLimit(t *testing.T) {
	limiter := NewRateLimiter(nil)
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		if !limiter.Allow(ctx, "stk:u1", 5, time.Hour) {
			t.Fatalf("call %d should be allowed", i)
		}
	}
	if limiter.Allow(ctx, "stk:u1", 5, time.Hour) {
		t.Error("6th call within the window should be rejected")
	}
}

func TestRateLimiterKeysAreIndependent(t *testing.T) {
	limiter := NewRateLimiter(nil)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		limiter.Allow(ctx, "stk:u1", 5, time.Hour)
	}
	if !limiter.Allow(ctx, "stk:u2", 5, time.Hour) {
		t.Error("a different user must not be affected by u1's counter")
	}
}

func TestRateLimiterWindowReset(t *testing.T) {
	limiter := NewRateLimiter(nil)
	current := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return current }
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		limiter.Allow(ctx, "stk:u1", 5, time.Hour)
	}
	if limiter.Allow(ctx, "stk:u1", 5, time.Hour) {
		t.Fatal("expected limit to be hit")
	}

	current = current.Add(61 * time.Minute)
	if !limiter.Allow(ctx, "stk:u1", 5, time.Hour) {
		t.Error("expected a fresh window after expiry")
	}
}
