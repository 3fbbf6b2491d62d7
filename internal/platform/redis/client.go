package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"fleetops/internal/platform/config"
)

// ErrPoolExhausted is reported by Health when every pooled connection
// has timed out waiting and none are idle.
var ErrPoolExhausted = errors.New("redis pool exhausted")

// Client holds the connection backing the distributed driver locks.
type Client struct {
	*redis.Client
}

// New dials Redis and verifies the connection within cfg.DialTimeout.
// A nil client and nil error mean Redis is not configured and the caller
// falls back to in-process locking.
func New(ctx context.Context, cfg config.RedisConfig) (*Client, error) {
	if cfg.URL == "" {
		return nil, nil
	}

	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}
	opts.MinIdleConns = cfg.MinIdleConns
	opts.DialTimeout = cfg.DialTimeout
	opts.ReadTimeout = cfg.ReadTimeout
	opts.WriteTimeout = cfg.WriteTimeout
	opts.ClientName = "fleetops-hos"

	client := redis.NewClient(opts)

	pingCtx := ctx
	if cfg.DialTimeout > 0 {
		var cancel context.CancelFunc
		pingCtx, cancel = context.WithTimeout(ctx, cfg.DialTimeout)
		defer cancel()
	}
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", opts.Addr, err)
	}

	return &Client{Client: client}, nil
}

// Health pings the server. A pool with no idle or total connections after
// timeouts is reported as exhausted even if the ping itself succeeds.
func (c *Client) Health(ctx context.Context) error {
	if err := c.Ping(ctx).Err(); err != nil {
		return err
	}
	if st := c.PoolStats(); st.Timeouts > 0 && st.IdleConns == 0 && st.TotalConns >= uint32(c.Options().PoolSize) {
		return ErrPoolExhausted
	}
	return nil
}
