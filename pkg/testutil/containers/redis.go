//go:build integration

package containers

import (
	"context"
	"testing"
	"time"

	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"

	"fleetops/internal/platform/config"
	"fleetops/internal/platform/redis"
)

// RedisContainer is a throwaway Redis for lock tests.
type RedisContainer struct {
	URL    string
	Client *redis.Client
}

// NewRedisContainer starts redis:7-alpine and dials it through the same
// client constructor the server uses. The container is removed on cleanup.
func NewRedisContainer(t *testing.T) *RedisContainer {
	t.Helper()
	ctx := context.Background()

	container, err := tcredis.Run(ctx, "redis:7-alpine")
	if err != nil {
		t.Fatalf("start redis container: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	url, err := container.ConnectionString(ctx)
	if err != nil {
		t.Fatalf("redis connection string: %v", err)
	}

	client, err := redis.New(ctx, config.RedisConfig{
		URL:          url,
		PoolSize:     4,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	})
	if err != nil {
		t.Fatalf("dial redis: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	return &RedisContainer{URL: url, Client: client}
}

// FlushAll clears every key between tests sharing a container.
func (r *RedisContainer) FlushAll(ctx context.Context) error {
	return r.Client.FlushAll(ctx).Err()
}
