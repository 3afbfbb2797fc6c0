package cache

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/odl-optics/remains-relay/pkg/pagination"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupTestRedis starts a throwaway Redis container, skipping the test when
// Docker is not available.
func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping Redis container test in short mode")
	}

	ctx := context.Background()
	redisC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	if err != nil {
		t.Skipf("Redis container not available: %v", err)
	}

	host, err := redisC.Host(ctx)
	require.NoError(t, err)
	port, err := redisC.MappedPort(ctx, "6379")
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: host + ":" + port.Port()})
	t.Cleanup(func() {
		client.Close()
		_ = redisC.Terminate(context.Background())
	})
	return client
}

func TestNewRedisStore_Panic(t *testing.T) {
	assert.Panics(t, func() { NewRedisStore(nil) })
}

func TestRedisStore_RoundTrip(t *testing.T) {
	client := setupTestRedis(t)
	manager := NewManager(NewRedisStore(client))
	ctx := context.Background()
	key := CacheKey{AppName: "odl", Product: "LENS"}

	_, err := manager.Get(ctx, key)
	assert.ErrorIs(t, err, ErrCacheMiss)

	records := []pagination.Record{{"id": json.Number("1"), "department": json.Number("1000000021")}}
	require.NoError(t, manager.Set(ctx, key, NewEntry(records, time.Minute)))

	entry, err := manager.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, records, entry.Records)

	ttl, err := client.TTL(ctx, key.String()).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, 50*time.Second)

	require.NoError(t, manager.Delete(ctx, key))
	_, err = manager.Get(ctx, key)
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestRedisStore_SharedBetweenFetchers(t *testing.T) {
	client := setupTestRedis(t)
	ctx := context.Background()

	inner := &countingFetcher{records: []pagination.Record{{"id": json.Number("9")}}}
	a := NewCachingFetcher(inner, NewManager(NewRedisStore(client)), "odl", time.Minute)
	b := NewCachingFetcher(inner, NewManager(NewRedisStore(client)), "odl", time.Minute)

	_, err := a.FetchAll(ctx, pagination.Payload{Product: "LENS"})
	require.NoError(t, err)
	records, err := b.FetchAll(ctx, pagination.Payload{Product: "LENS"})
	require.NoError(t, err)

	assert.Equal(t, 1, inner.calls)
	assert.Equal(t, json.Number("9"), records[0]["id"])
}
