package security

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// UploadLimiter is a sliding-window limiter over a Redis sorted set.
type UploadLimiter struct {
	client *goredis.Client
	limit  int
	window time.Duration
}

// KEYS[1] key, ARGV[1] limit, ARGV[2] window ms, ARGV[3] now ms.
// Returns 1 when allowed, 0 when limited.
var slidingWindow = goredis.NewScript(`
local key = KEYS[1]
local limit = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local now = tonumber(ARGV[3])

redis.call('ZREMRANGEBYSCORE', key, 0, now - window)
if redis.call('ZCARD', key) >= limit then
    return 0
end
redis.call('ZADD', key, now, now .. '-' .. math.random(1000000))
redis.call('PEXPIRE', key, window)
return 1
`)

func NewUploadLimiter(client *goredis.Client, limit int, window time.Duration) *UploadLimiter {
	if limit <= 0 {
		limit = 20
	}
	if window <= 0 {
		window = time.Hour
	}
	return &UploadLimiter{client: client, limit: limit, window: window}
}

// Allow records an upload for key. Without Redis uploads are allowed.
func (ul *UploadLimiter) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	if ul.client == nil {
		return true, 0, nil
	}

	now := time.Now().UnixMilli()
	allowed, err := slidingWindow.Run(ctx, ul.client, []string{"ratelimit:upload:" + key},
		ul.limit, ul.window.Milliseconds(), now).Int()
	if err != nil {
		return false, ul.window, fmt.Errorf("upload rate limit check failed: %w", err)
	}
	if allowed != 1 {
		return false, ul.window, nil
	}
	return true, 0, nil
}
