package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/wonny/momentumchaser/pkg/logger"
	"github.com/wonny/momentumchaser/pkg/ratelimit"
)

// slidingWindow trims entries older than the window, then admits the request
// only if fewer than limit remain. Members are unique per request so two
// requests in the same millisecond are both counted.
var slidingWindow = redis.NewScript(`
	local key = KEYS[1]
	local now = tonumber(ARGV[1])
	local window_start = tonumber(ARGV[2])
	local limit = tonumber(ARGV[3])
	local window_ms = tonumber(ARGV[4])
	local member = ARGV[5]

	redis.call('ZREMRANGEBYSCORE', key, '-inf', window_start)

	local count = redis.call('ZCARD', key)
	if count < limit then
		redis.call('ZADD', key, now, member)
		redis.call('PEXPIRE', key, window_ms)
		return {1, limit - count - 1}
	end

	local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
	return {0, tonumber(oldest[2]) + window_ms - now}
`)

// RateLimiter implements sliding window rate limiting using Redis
// ⭐ SSOT: 레이트 리밋은 여기서만
type RateLimiter struct {
	client *Client
	prefix string
}

// RateLimitConfig defines rate limit parameters
type RateLimitConfig struct {
	Key    string        // Unique identifier (e.g., "kite")
	Limit  int           // Maximum requests allowed
	Window time.Duration // Time window
}

// KiteRateLimit: Kite historical API allows 3 requests per second
var KiteRateLimit = RateLimitConfig{
	Key:    "kite",
	Limit:  3,
	Window: time.Second,
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(client *Client, prefix string) *RateLimiter {
	return &RateLimiter{
		client: client,
		prefix: prefix,
	}
}

// Allow checks if a request is allowed under the rate limit.
// Returns (allowed, retryAfter, error). retryAfter is zero when allowed.
func (r *RateLimiter) Allow(ctx context.Context, cfg RateLimitConfig) (bool, time.Duration, error) {
	if !r.client.Enabled() {
		return false, 0, fmt.Errorf("redis rate limiter %q: redis disabled", cfg.Key)
	}

	key := fmt.Sprintf("%s:ratelimit:%s", r.prefix, cfg.Key)
	now := time.Now().UnixMilli()
	windowStart := now - cfg.Window.Milliseconds()

	result, err := slidingWindow.Run(ctx, r.client.Redis(), []string{key},
		now,
		windowStart,
		cfg.Limit,
		cfg.Window.Milliseconds(),
		uuid.NewString(),
	).Int64Slice()
	if err != nil {
		return false, 0, fmt.Errorf("rate limit script failed: %w", err)
	}

	if result[0] == 1 {
		return true, 0, nil
	}
	return false, time.Duration(result[1]) * time.Millisecond, nil
}

// Wait blocks until a request is allowed or context is cancelled
func (r *RateLimiter) Wait(ctx context.Context, cfg RateLimitConfig) error {
	for {
		allowed, retryAfter, err := r.Allow(ctx, cfg)
		if err != nil {
			return err
		}
		if allowed {
			return nil
		}

		if retryAfter <= 0 {
			retryAfter = 10 * time.Millisecond
		}
		timer := time.NewTimer(retryAfter)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Gate adapts the limiter to ratelimit.Gate so several processes share one ceiling.
// When redis is disabled or a call fails it delegates to fallback, so a redis
// outage slows the run to the local ceiling instead of failing every symbol.
type Gate struct {
	limiter  *RateLimiter
	cfg      RateLimitConfig
	fallback ratelimit.Gate
	logger   *logger.Logger
	warn     rate.Sometimes
}

// NewGate builds a distributed gate
func NewGate(limiter *RateLimiter, cfg RateLimitConfig, fallback ratelimit.Gate, log *logger.Logger) *Gate {
	return &Gate{
		limiter:  limiter,
		cfg:      cfg,
		fallback: fallback,
		logger:   log.WithField("module", "redis_gate"),
		warn:     rate.Sometimes{First: 1, Interval: time.Minute},
	}
}

// Wait implements ratelimit.Gate
func (g *Gate) Wait(ctx context.Context) error {
	if !g.limiter.client.Enabled() {
		if g.fallback == nil {
			return fmt.Errorf("redis gate %q: redis disabled and no fallback", g.cfg.Key)
		}
		return g.fallback.Wait(ctx)
	}

	err := g.limiter.Wait(ctx, g.cfg)
	if err == nil || ctx.Err() != nil || g.fallback == nil {
		return err
	}

	// redis 장애 → 로컬 게이트로 계속
	g.warn.Do(func() {
		g.logger.WithError(err).WithField("key", g.cfg.Key).Warn("Redis rate limiter failed, using local gate")
	})
	return g.fallback.Wait(ctx)
}
