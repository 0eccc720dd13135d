// Package cache holds the Redis client that backs shared rate-limit
// counters when several API instances run behind one load balancer.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultKeyPrefix namespaces every key the API writes, so the Redis
// database can be shared with other services.
const DefaultKeyPrefix = "gophermarket:"

// Cache wraps a Redis client.
type Cache struct {
	client *redis.Client
	prefix string
}

// Option customises a Cache built by New.
type Option func(*redis.Options, *Cache)

// WithKeyPrefix replaces DefaultKeyPrefix.
func WithKeyPrefix(prefix string) Option {
	return func(_ *redis.Options, c *Cache) { c.prefix = prefix }
}

// WithPoolSize overrides the connection pool size.
func WithPoolSize(n int) Option {
	return func(o *redis.Options, _ *Cache) { o.PoolSize = n }
}

// New parses redisURL, dials and pings the server.
func New(ctx context.Context, redisURL string, opts ...Option) (*Cache, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	// Rate limiting issues one short script call per API request.
	opt.PoolSize = 10
	opt.MinIdleConns = 2
	opt.PoolTimeout = 4 * time.Second
	opt.ConnMaxIdleTime = 5 * time.Minute

	c := &Cache{prefix: DefaultKeyPrefix}
	for _, apply := range opts {
		apply(opt, c)
	}

	c.client = redis.NewClient(opt)
	if err := c.client.Ping(ctx).Err(); err != nil {
		_ = c.client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return c, nil
}

func (c *Cache) key(k string) string {
	return c.prefix + k
}

// Ping satisfies the readiness check.
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close releases the connection pool.
func (c *Cache) Close() error {
	return c.client.Close()
}
