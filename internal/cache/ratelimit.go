package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// fixedWindowScript increments a counter and opens its window on first use.
// A key left without a TTL is given one so a window can never become permanent.
var fixedWindowScript = redis.NewScript(`
	local count = redis.call('INCR', KEYS[1])
	local ttl = redis.call('PTTL', KEYS[1])
	if count == 1 or ttl < 0 then
		redis.call('PEXPIRE', KEYS[1], ARGV[1])
		ttl = tonumber(ARGV[1])
	end
	return {count, ttl}
`)

// Incr increments the fixed-window counter stored at key.
// It satisfies ratelimit.Counter so counters can be shared between instances.
func (c *Cache) Incr(ctx context.Context, key string, window time.Duration) (int64, time.Time, error) {
	result, err := fixedWindowScript.Run(ctx, c.client, []string{c.key(key)}, window.Milliseconds()).Int64Slice()
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("run fixed window script: %w", err)
	}
	if len(result) != 2 {
		return 0, time.Time{}, fmt.Errorf("unexpected fixed window reply: %v", result)
	}

	return result[0], time.Now().Add(time.Duration(result[1]) * time.Millisecond), nil
}
