package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Returns {hits, pttl}. A key that lost its expiry gets one again.
var windowScript = redis.NewScript(`
local hits = redis.call("INCR", KEYS[1])
local ttl = redis.call("PTTL", KEYS[1])
if hits == 1 or ttl < 0 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
  ttl = tonumber(ARGV[1])
end
return {hits, ttl}
`)

const (
	redisKeyPrefix   = "placementcell:ratelimit:"
	redisCallTimeout = 250 * time.Millisecond
)

// RedisLimiter keeps fixed-window counters in Redis so every API replica sees the same budget.
// When Redis cannot be reached requests are let through.
type RedisLimiter struct {
	client redis.Scripter
	logger *slog.Logger
}

func NewRedisLimiter(client redis.Scripter, logger *slog.Logger) *RedisLimiter {
	return &RedisLimiter{client: client, logger: logger}
}

func (l *RedisLimiter) Allow(key string, limit int, window time.Duration) bool {
	if key == "" || limit <= 0 || window <= 0 {
		return true
	}
	hits, err := l.hit(key, max(window.Milliseconds(), 1))
	if err != nil {
		l.logger.Warn("redis rate limiter unavailable", slog.String("key", key), slog.String("error", err.Error()))
		return true
	}
	return hits <= int64(limit)
}

func (l *RedisLimiter) hit(key string, windowMillis int64) (int64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), redisCallTimeout)
	defer cancel()
	values, err := windowScript.Run(ctx, l.client, []string{redisKeyPrefix + key}, windowMillis).Int64Slice()
	if err != nil {
		return 0, err
	}
	if len(values) == 0 {
		return 0, redis.Nil
	}
	return values[0], nil
}
