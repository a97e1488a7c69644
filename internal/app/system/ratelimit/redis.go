// internal/app/system/ratelimit/redis.go
package ratelimit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// INCR the window key, set its expiry on first hit, refuse past the limit.
const windowScript = `
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
if current > tonumber(ARGV[2]) then
  return 0
end
return 1
`

// RedisLimiter shares one fixed window per key across every instance of
// the service. When Redis is unreachable it allows the request.
type RedisLimiter struct {
	client  redis.UniversalClient
	script  *redis.Script
	prefix  string
	limit   int
	window  time.Duration
	timeout time.Duration
	log     *zap.Logger
}

// NewRedis returns nil when client is nil so callers can fall back to the
// in-memory Limiter.
func NewRedis(client redis.UniversalClient, prefix string, limit int, window time.Duration, logger *zap.Logger) *RedisLimiter {
	if client == nil {
		return nil
	}
	return &RedisLimiter{
		client:  client,
		script:  redis.NewScript(windowScript),
		prefix:  prefix,
		limit:   limit,
		window:  window,
		timeout: 250 * time.Millisecond,
		log:     logger,
	}
}

func (l *RedisLimiter) Allow(key string) bool {
	if l == nil || key == "" || l.limit <= 0 || l.window <= 0 {
		return true
	}
	ttl := l.window.Milliseconds()
	if ttl <= 0 {
		ttl = 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), l.timeout)
	defer cancel()

	allowed, err := l.script.Run(ctx, l.client, []string{l.prefix + key}, ttl, l.limit).Int64()
	if err != nil {
		if l.log != nil {
			l.log.Warn("redis rate limit check failed; allowing request",
				zap.String("key", key), zap.Error(err))
		}
		return true
	}
	return allowed == 1
}
