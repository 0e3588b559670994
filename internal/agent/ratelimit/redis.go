package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	errx "github.com/techchat/server/internal/core/error"
	logx "github.com/techchat/server/pkg/logger"
)

// hitScript increments the window counter, starts the window on the first
// hit and returns {count, remaining ms}.
var hitScript = redis.NewScript(`
local n = redis.call('INCR', KEYS[1])
if n == 1 then
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
local ttl = redis.call('PTTL', KEYS[1])
if ttl < 0 then
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
  ttl = tonumber(ARGV[1])
end
return {n, ttl}
`)

// RedisStore shares fixed windows between replicas. Redis expiry replaces
// the in-place reset of the memory store.
type RedisStore struct {
	rdb    redis.Scripter
	prefix string
}

func NewRedisStore(rdb redis.Scripter) *RedisStore {
	return &RedisStore{rdb: rdb, prefix: "ratelimit"}
}

func (s *RedisStore) windowKey(key string) string {
	return fmt.Sprintf("%s:%s", s.prefix, key)
}

func (s *RedisStore) Hit(ctx context.Context, key string, now time.Time, window time.Duration) (int, time.Time, error) {
	k := s.windowKey(key)
	res, err := hitScript.Run(ctx, s.rdb, []string{k}, window.Milliseconds()).Int64Slice()
	if err != nil {
		logx.Error().Err(err).Str("key", k).Msg("failed to record rate limit hit in redis")
		return 0, time.Time{}, errx.WrapRedis(err)
	}
	if len(res) != 2 {
		return 0, time.Time{}, fmt.Errorf("rate limit script returned %d values", len(res))
	}
	return int(res[0]), now.Add(time.Duration(res[1]) * time.Millisecond), nil
}

var _ Store = (*RedisStore)(nil)
