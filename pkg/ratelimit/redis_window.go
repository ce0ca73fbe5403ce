package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisKey is the counter key used when NewRedisWindow is given an
// empty key. Deployments sharing one Redis but holding separate provider
// accounts must pick distinct keys.
const DefaultRedisKey = "marketstack:ratelimit:window"

// incrWindow bumps the window counter and starts the window's expiry clock
// on its first acquisition. Doing both in one script means a crash between
// the two steps cannot leave a counter that never resets.
var incrWindow = redis.NewScript(`
local n = redis.call("INCR", KEYS[1])
if n == 1 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return n
`)

// RedisWindow is a fixed window shared by every process that points at the
// same Redis key. The provider meters the account, not the process, so
// replicas holding one access token need their spending coordinated.
type RedisWindow struct {
	rdb    *redis.Client
	key    string
	limit  int
	window time.Duration
}

// NewRedisWindow returns a limiter granting limit acquisitions per window
// across all holders of key. An empty key selects DefaultRedisKey.
func NewRedisWindow(rdb *redis.Client, key string, limit int, window time.Duration) *RedisWindow {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisWindow{rdb: rdb, key: key, limit: limit, window: window}
}

// Acquire implements Limiter. It fails when ctx ends or Redis is
// unreachable; an over-budget counter is not an error, just a wait until
// the window key expires.
func (w *RedisWindow) Acquire(ctx context.Context) error {
	start := time.Now()
	waited := false

	for {
		n, err := incrWindow.Run(ctx, w.rdb, []string{w.key}, w.window.Milliseconds()).Int64()
		if err != nil {
			return fmt.Errorf("ratelimit: count request in redis: %w", err)
		}
		if n <= int64(w.limit) {
			grant("redis_window", start)
			return nil
		}

		if !waited {
			waited = true
			throttledTotal.WithLabelValues("redis_window").Inc()
		}

		// Over budget. The overshoot INCR is harmless: the counter is
		// already past the limit and the key dies with the window.
		wait, err := w.rdb.PTTL(ctx, w.key).Result()
		if err != nil {
			return fmt.Errorf("ratelimit: read window expiry: %w", err)
		}
		if wait <= 0 {
			// Key expired between INCR and PTTL; retry immediately
			// lands in the fresh window.
			continue
		}
		if err := sleep(ctx, wait); err != nil {
			return err
		}
	}
}
