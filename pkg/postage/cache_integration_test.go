//go:build integration

package postage

import (
	"context"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/Sternrassler/cm-offers-feed/pkg/cache"
)

func TestCache_RedisContainer(t *testing.T) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	redisC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	defer redisC.Terminate(ctx)

	host, err := redisC.Host(ctx)
	require.NoError(t, err)
	port, err := redisC.MappedPort(ctx, "6379")
	require.NoError(t, err)

	rdb := redis.NewClient(&redis.Options{Addr: host + ":" + port.Port()})
	defer rdb.Close()

	store := cache.NewRedisStore(rdb)
	api := &fakeFetcher{options: defaultOptions()}

	c := NewCache(store, api)
	c.SetClock(fixedClock(2025))
	_, err = c.Lookup(ctx, germany, finland)
	require.NoError(t, err)

	// A second process sharing the same Redis sees the record.
	other := NewCache(store, api)
	other.SetClock(fixedClock(2025))
	_, err = other.Lookup(ctx, germany, finland)
	require.NoError(t, err)
	assert.EqualValues(t, 1, api.calls.Load())

	other.SetClock(fixedClock(2026))
	_, err = other.Lookup(ctx, germany, finland)
	require.NoError(t, err)
	assert.EqualValues(t, 2, api.calls.Load())
}
