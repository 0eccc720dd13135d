// Package ratelimit implements fixed-window admission control keyed by
// client and route class.
package ratelimit

import (
	"context"
	"encoding/hex"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/crypto/blake2b"
)

// keyPrefix namespaces counter keys in shared stores.
const keyPrefix = "ratelimit:"

// RouteClass groups endpoints that share a threshold.
type RouteClass string

const (
	ClassRead  RouteClass = "read"
	ClassWrite RouteClass = "write"
)

// ClassOf maps an HTTP method to its route class.
func ClassOf(method string) RouteClass {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return ClassRead
	default:
		return ClassWrite
	}
}

// Policy is the externally configured threshold per route class.
// A class without an entry is not limited.
type Policy struct {
	Window time.Duration
	Limits map[RouteClass]int
}

// Decision is the outcome of one admission check.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter time.Duration
}

// Counter increments the counter for key inside a fixed window.
// When no window is open for key, or the open one has elapsed, a new window
// starts with a count of 1. Implementations must be atomic per key.
type Counter interface {
	Incr(ctx context.Context, key string, window time.Duration) (count int64, resetAt time.Time, err error)
}

// Limiter admits or rejects requests according to a Policy.
type Limiter struct {
	counter Counter
	policy  Policy
	now     func() time.Time
}

// New creates a Limiter backed by counter.
func New(counter Counter, policy Policy) *Limiter {
	return &Limiter{
		counter: counter,
		policy:  policy,
		now:     time.Now,
	}
}

// Admit counts one request from clientKey against class and reports whether
// it is within the threshold.
func (l *Limiter) Admit(ctx context.Context, clientKey string, class RouteClass) (Decision, error) {
	limit, ok := l.policy.Limits[class]
	if !ok || limit <= 0 {
		return Decision{Allowed: true}, nil
	}

	count, resetAt, err := l.counter.Incr(ctx, counterKey(clientKey, class), l.policy.Window)
	if err != nil {
		return Decision{}, fmt.Errorf("increment rate limit counter: %w", err)
	}

	d := Decision{
		Allowed: count <= int64(limit),
		Limit:   limit,
		ResetAt: resetAt,
	}
	if remaining := int64(limit) - count; remaining > 0 {
		d.Remaining = int(remaining)
	}
	if !d.Allowed {
		d.RetryAfter = resetAt.Sub(l.now())
		if d.RetryAfter < time.Second {
			d.RetryAfter = time.Second
		}
	}
	return d, nil
}

// counterKey hashes the client key so raw IP addresses are never stored.
func counterKey(clientKey string, class RouteClass) string {
	sum := blake2b.Sum256([]byte(clientKey))
	return keyPrefix + string(class) + ":" + hex.EncodeToString(sum[:8])
}
