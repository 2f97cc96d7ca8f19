package ratelimit

import (
	"context"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
)

// fixedWindowScript counts calls in KEYS[1] and starts the window on the
// first one.
var fixedWindowScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return current
`)

// RedisLimiter is a fixed-window limiter shared through Redis.
type RedisLimiter struct {
	client redis.Scripter
	prefix string
	limits limits
}

func NewRedisLimiter(client redis.Scripter, prefix string, l map[string]Limit) *RedisLimiter {
	trimmed := strings.TrimSuffix(strings.TrimSpace(prefix), ":")
	if trimmed == "" {
		trimmed = "unicore"
	}
	if l == nil {
		l = map[string]Limit{}
	}
	return &RedisLimiter{client: client, prefix: trimmed + ":rate_limit", limits: l}
}

func (r *RedisLimiter) Allow(ctx context.Context, bucket, key string) (bool, error) {
	if r == nil || r.client == nil {
		return true, nil
	}
	if err := validate(bucket, key); err != nil {
		return false, err
	}

	lim, ok := r.limits.get(bucket)
	if !ok || lim.Limit <= 0 {
		return true, nil
	}

	windowMs := lim.Window.Milliseconds()
	if windowMs < 1000 {
		windowMs = 1000
	}

	redisKey := fmt.Sprintf("%s:%s:%s", r.prefix, bucket, key)
	count, err := fixedWindowScript.Run(ctx, r.client, []string{redisKey}, windowMs).Int64()
	if err != nil {
		return false, fmt.Errorf("redis limiter: %w", err)
	}

	return count <= int64(lim.Limit), nil
}
