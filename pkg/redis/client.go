package redis

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wonny/momentumchaser/pkg/config"
)

const pingTimeout = 3 * time.Second

// Client is the shared redis connection behind the API cache and the
// distributed rate gate. A disabled client holds no connection.
// ⭐ SSOT: Redis 연결은 여기서만 관리
type Client struct {
	rdb     *redis.Client
	enabled bool
}

// options maps config onto go-redis options
func options(cfg config.RedisConfig) *redis.Options {
	return &redis.Options{
		Addr:         net.JoinHostPort(cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  pingTimeout,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	}
}

// New connects when REDIS_ENABLED is set and fails fast if the server is unreachable
func New(ctx context.Context, cfg *config.Config) (*Client, error) {
	if !cfg.Redis.Enabled {
		return &Client{}, nil
	}

	opts := options(cfg.Redis)
	rdb := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis %s: %w", opts.Addr, err)
	}

	return &Client{rdb: rdb, enabled: true}, nil
}

// Close closes the connection, a no-op when disabled
func (c *Client) Close() error {
	if c.rdb == nil {
		return nil
	}
	return c.rdb.Close()
}

// Enabled reports whether a connection is held
func (c *Client) Enabled() bool {
	return c.enabled
}

// Redis exposes the go-redis client to the cache and the limiter
func (c *Client) Redis() *redis.Client {
	return c.rdb
}
