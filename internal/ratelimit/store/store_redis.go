package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"qualify/internal/ratelimit"
)

const windowKeyPrefix = "qualify:ratelimit:"

// slidingWindowScript trims the sorted set to the window, then admits the
// hit only if the set is below the limit. Returns {allowed, count, oldest_ms}.
var slidingWindowScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
local member = ARGV[4]

redis.call("ZREMRANGEBYSCORE", key, "-inf", now - window)
local count = redis.call("ZCARD", key)
local allowed = 0
if count < limit then
	redis.call("ZADD", key, now, member)
	count = count + 1
	allowed = 1
end
redis.call("PEXPIRE", key, window)
local oldest = redis.call("ZRANGE", key, 0, 0, "WITHSCORES")
local oldestScore = now
if oldest[2] then
	oldestScore = tonumber(oldest[2])
end
return {allowed, count, oldestScore}
`)

// RedisWindows shares sliding windows across instances using one sorted set
// per key, scored by arrival time in milliseconds.
type RedisWindows struct {
	client redis.UniversalClient
}

func NewRedisWindows(client redis.UniversalClient) *RedisWindows {
	return &RedisWindows{client: client}
}

func (s *RedisWindows) Allow(ctx context.Context, key string, limit int, window time.Duration) (*ratelimit.Result, error) {
	now := time.Now().UTC()
	vals, err := slidingWindowScript.Run(ctx, s.client,
		[]string{windowKeyPrefix + key},
		now.UnixMilli(), window.Milliseconds(), limit, uuid.NewString(),
	).Int64Slice()
	if err != nil {
		return nil, fmt.Errorf("rate limit %s: %w", key, err)
	}
	if len(vals) != 3 {
		return nil, fmt.Errorf("rate limit %s: unexpected reply length %d", key, len(vals))
	}

	allowed, count := vals[0] == 1, int(vals[1])
	resetAt := time.UnixMilli(vals[2]).UTC().Add(window)
	res := &ratelimit.Result{
		Allowed:   allowed,
		Limit:     limit,
		Remaining: max(limit-count, 0),
		ResetAt:   resetAt,
	}
	if !allowed {
		res.RetryAfter = resetAt.Sub(now)
	}
	return res, nil
}
