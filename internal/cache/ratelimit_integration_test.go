//go:build integration

package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gophermarket/gophermarket/internal/ratelimit"
	"github.com/gophermarket/gophermarket/internal/testutil"
)

var _ ratelimit.Counter = (*Cache)(nil)

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	redisURL := testutil.RequireEnv(t, "REDIS_URL")

	ctx := context.Background()
	c, err := New(ctx, redisURL)
	if err != nil {
		t.Skipf("Skipping integration test: Redis not available: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })

	if err := testutil.FlushRedis(ctx, c.client); err != nil {
		t.Fatalf("flush redis: %v", err)
	}
	return c
}

func TestCache_Incr_FixedWindow(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()
	key := "ratelimit:test:" + t.Name()

	for want := int64(1); want <= 3; want++ {
		count, resetAt, err := c.Incr(ctx, key, 300*time.Millisecond)
		if err != nil {
			t.Fatalf("Incr: %v", err)
		}
		if count != want {
			t.Errorf("count = %d, want %d", count, want)
		}
		if time.Until(resetAt) > 300*time.Millisecond {
			t.Errorf("resetAt %v beyond window", resetAt)
		}
	}

	time.Sleep(400 * time.Millisecond)

	count, _, err := c.Incr(ctx, key, 300*time.Millisecond)
	if err != nil {
		t.Fatalf("Incr: %v", err)
	}
	if count != 1 {
		t.Errorf("count after window = %d, want 1", count)
	}
}

func TestCache_Incr_Concurrent(t *testing.T) {
	c := newTestCache(t)
	limiter := ratelimit.New(c, ratelimit.Policy{
		Window: time.Minute,
		Limits: map[ratelimit.RouteClass]int{ratelimit.ClassWrite: 10},
	})

	var allowed atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d, err := limiter.Admit(context.Background(), "203.0.113.7", ratelimit.ClassWrite)
			if err == nil && d.Allowed {
				allowed.Add(1)
			}
		}()
	}
	wg.Wait()

	if got := allowed.Load(); got != 10 {
		t.Errorf("allowed = %d, want 10", got)
	}
}

func TestCache_KeyPrefix(t *testing.T) {
	redisURL := testutil.RequireEnv(t, "REDIS_URL")
	ctx := context.Background()

	c, err := New(ctx, redisURL, WithKeyPrefix("gmtest:"), WithPoolSize(2))
	if err != nil {
		t.Skipf("Skipping integration test: Redis not available: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })

	if _, _, err := c.Incr(ctx, "ratelimit:prefix", time.Minute); err != nil {
		t.Fatalf("Incr: %v", err)
	}
	t.Cleanup(func() { c.client.Del(ctx, "gmtest:ratelimit:prefix") })

	n, err := c.client.Exists(ctx, "gmtest:ratelimit:prefix").Result()
	if err != nil {
		t.Fatalf("Exists: %v", err)
	}
	if n != 1 {
		t.Errorf("prefixed key missing")
	}
}
