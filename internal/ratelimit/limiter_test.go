package ratelimit

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestLimiter(clock *fakeClock, limits map[RouteClass]int) (*Limiter, *MemoryCounter) {
	counter := NewMemoryCounter()
	counter.now = clock.Now
	l := New(counter, Policy{Window: time.Minute, Limits: limits})
	l.now = clock.Now
	return l, counter
}

func TestClassOf(t *testing.T) {
	tests := []struct {
		method string
		want   RouteClass
	}{
		{http.MethodGet, ClassRead},
		{http.MethodHead, ClassRead},
		{http.MethodOptions, ClassRead},
		{http.MethodPost, ClassWrite},
		{http.MethodPatch, ClassWrite},
		{http.MethodPut, ClassWrite},
		{http.MethodDelete, ClassWrite},
	}

	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			if got := ClassOf(tt.method); got != tt.want {
				t.Errorf("ClassOf(%s) = %s, want %s", tt.method, got, tt.want)
			}
		})
	}
}

func TestLimiter_FixedWindow(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	l, _ := newTestLimiter(clock, map[RouteClass]int{ClassWrite: 3})
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		d, err := l.Admit(ctx, "10.0.0.1", ClassWrite)
		if err != nil {
			t.Fatalf("Admit: %v", err)
		}
		if !d.Allowed {
			t.Fatalf("request %d rejected, want allowed", i)
		}
		if d.Remaining != 3-i {
			t.Errorf("request %d remaining = %d, want %d", i, d.Remaining, 3-i)
		}
	}

	clock.Advance(20 * time.Second)
	d, err := l.Admit(ctx, "10.0.0.1", ClassWrite)
	if err != nil {
		t.Fatalf("Admit: %v", err)
	}
	if d.Allowed {
		t.Fatal("4th request in window allowed, want rejected")
	}
	if d.RetryAfter != 40*time.Second {
		t.Errorf("RetryAfter = %v, want 40s", d.RetryAfter)
	}

	// Window elapsed: counter resets to 1.
	clock.Advance(40 * time.Second)
	d, err = l.Admit(ctx, "10.0.0.1", ClassWrite)
	if err != nil {
		t.Fatalf("Admit: %v", err)
	}
	if !d.Allowed || d.Remaining != 2 {
		t.Errorf("after window: allowed=%v remaining=%d, want true/2", d.Allowed, d.Remaining)
	}
}

func TestLimiter_KeysAreIndependent(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	l, _ := newTestLimiter(clock, map[RouteClass]int{ClassRead: 1, ClassWrite: 1})
	ctx := context.Background()

	mustAdmit := func(client string, class RouteClass, want bool) {
		t.Helper()
		d, err := l.Admit(ctx, client, class)
		if err != nil {
			t.Fatalf("Admit: %v", err)
		}
		if d.Allowed != want {
			t.Errorf("Admit(%s, %s) allowed = %v, want %v", client, class, d.Allowed, want)
		}
	}

	mustAdmit("10.0.0.1", ClassRead, true)
	mustAdmit("10.0.0.1", ClassRead, false)
	mustAdmit("10.0.0.1", ClassWrite, true)
	mustAdmit("10.0.0.2", ClassRead, true)
}

func TestLimiter_UnlimitedClass(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	l, counter := newTestLimiter(clock, map[RouteClass]int{ClassWrite: 1})

	for i := 0; i < 10; i++ {
		d, err := l.Admit(context.Background(), "10.0.0.1", ClassRead)
		if err != nil || !d.Allowed {
			t.Fatalf("read request %d: allowed=%v err=%v", i, d.Allowed, err)
		}
	}
	if counter.Len() != 0 {
		t.Errorf("unlimited class should not create counters, got %d", counter.Len())
	}
}

type failingCounter struct{}

func (failingCounter) Incr(context.Context, string, time.Duration) (int64, time.Time, error) {
	return 0, time.Time{}, errors.New("connection refused")
}

func TestLimiter_CounterError(t *testing.T) {
	l := New(failingCounter{}, Policy{Window: time.Minute, Limits: map[RouteClass]int{ClassWrite: 1}})

	if _, err := l.Admit(context.Background(), "10.0.0.1", ClassWrite); err == nil {
		t.Fatal("expected error from failing counter")
	}
}

func TestLimiter_ConcurrentAdmissions(t *testing.T) {
	const limit = 25
	l := New(NewMemoryCounter(), Policy{Window: time.Hour, Limits: map[RouteClass]int{ClassWrite: limit}})

	var allowed atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d, err := l.Admit(context.Background(), "10.0.0.1", ClassWrite)
			if err == nil && d.Allowed {
				allowed.Add(1)
			}
		}()
	}
	wg.Wait()

	if got := allowed.Load(); got != limit {
		t.Errorf("allowed = %d, want exactly %d", got, limit)
	}
}

func TestCounterKey(t *testing.T) {
	key := counterKey("192.168.1.100", ClassRead)

	if !strings.HasPrefix(key, "ratelimit:read:") {
		t.Errorf("key %q missing prefix", key)
	}
	if strings.Contains(key, "192.168") {
		t.Errorf("key %q leaks the raw client address", key)
	}
	if key != counterKey("192.168.1.100", ClassRead) {
		t.Error("same client should produce same key")
	}
	if key == counterKey("192.168.1.101", ClassRead) {
		t.Error("different clients should produce different keys")
	}
}

func TestMemoryCounter_Prune(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	counter := NewMemoryCounter()
	counter.now = clock.Now
	ctx := context.Background()

	_, _, _ = counter.Incr(ctx, "a", time.Minute)
	clock.Advance(30 * time.Second)
	_, _, _ = counter.Incr(ctx, "b", time.Minute)
	clock.Advance(45 * time.Second)

	if removed := counter.Prune(); removed != 1 {
		t.Errorf("Prune() removed %d, want 1", removed)
	}
	if counter.Len() != 1 {
		t.Errorf("Len() = %d, want 1", counter.Len())
	}
}

func TestMemoryCounter_RunStopsOnCancel(t *testing.T) {
	counter := NewMemoryCounter()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		counter.Run(ctx, time.Millisecond)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
