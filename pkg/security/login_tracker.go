package security

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

type LoginTrackerConfig struct {
	MaxAttempts   int           // failed attempts before a block
	AttemptWindow time.Duration // window failed attempts are counted in
	BlockDuration time.Duration
	TrackIP       bool
}

func DefaultLoginTrackerConfig() LoginTrackerConfig {
	return LoginTrackerConfig{
		MaxAttempts:   5,
		AttemptWindow: 15 * time.Minute,
		BlockDuration: 15 * time.Minute,
		TrackIP:       true,
	}
}

// LoginTracker counts failed logins per email and IP in Redis and blocks
// subjects that exceed the limit. Without Redis it never blocks.
type LoginTracker struct {
	config LoginTrackerConfig
	client *goredis.Client
}

func NewLoginTracker(client *goredis.Client, config LoginTrackerConfig) *LoginTracker {
	return &LoginTracker{config: config, client: client}
}

const (
	failLoginUserPrefix    = "fail:login:user:"
	failLoginIPPrefix      = "fail:login:ip:"
	blockedLoginUserPrefix = "blocked:login:user:"
	blockedLoginIPPrefix   = "blocked:login:ip:"
)

// KEYS[1] counter, ARGV[1] ttl seconds. Returns the count after increment.
var incrWithTTL = goredis.NewScript(`
local count = redis.call('INCR', KEYS[1])
if count == 1 then
    redis.call('EXPIRE', KEYS[1], ARGV[1])
end
return count
`)

func (lt *LoginTracker) IsBlocked(ctx context.Context, email, ip string) (bool, error) {
	if lt.client == nil {
		return false, nil
	}

	keys := []string{blockedLoginUserPrefix + normalizeEmail(email)}
	if lt.config.TrackIP && ip != "" {
		keys = append(keys, blockedLoginIPPrefix+ip)
	}
	n, err := lt.client.Exists(ctx, keys...).Result()
	if err != nil {
		return false, fmt.Errorf("checking login block: %w", err)
	}
	return n > 0, nil
}

// RecordFailure counts a failed attempt and reports whether the subject is now blocked.
func (lt *LoginTracker) RecordFailure(ctx context.Context, email, ip string) (bool, error) {
	if lt.client == nil {
		return false, nil
	}

	ttl := int(lt.config.AttemptWindow.Seconds())
	count, err := incrWithTTL.Run(ctx, lt.client, []string{failLoginUserPrefix + normalizeEmail(email)}, ttl).Int()
	if err != nil {
		return false, fmt.Errorf("counting failed login: %w", err)
	}

	ipBlocked := false
	if lt.config.TrackIP && ip != "" {
		// IPs get a larger budget since offices share addresses
		ipCount, err := incrWithTTL.Run(ctx, lt.client, []string{failLoginIPPrefix + ip}, ttl).Int()
		if err == nil && ipCount >= lt.config.MaxAttempts*4 {
			ipBlocked = true
		}
	}

	if count < lt.config.MaxAttempts && !ipBlocked {
		return false, nil
	}

	pipe := lt.client.TxPipeline()
	if count >= lt.config.MaxAttempts {
		pipe.Set(ctx, blockedLoginUserPrefix+normalizeEmail(email), "1", lt.config.BlockDuration)
	}
	if ipBlocked {
		pipe.Set(ctx, blockedLoginIPPrefix+ip, "1", lt.config.BlockDuration)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return true, fmt.Errorf("creating login block: %w", err)
	}
	return true, nil
}

// Clear resets the counters after a successful login.
func (lt *LoginTracker) Clear(ctx context.Context, email, ip string) error {
	if lt.client == nil {
		return nil
	}
	keys := []string{failLoginUserPrefix + normalizeEmail(email)}
	if lt.config.TrackIP && ip != "" {
		keys = append(keys, failLoginIPPrefix+ip)
	}
	if err := lt.client.Del(ctx, keys...).Err(); err != nil && !errors.Is(err, goredis.Nil) {
		return fmt.Errorf("clearing failed logins: %w", err)
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
