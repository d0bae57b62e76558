package cartstate

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedisCache(t *testing.T, opts ...RedisCacheOption) (*RedisCache, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisCache(client, opts...), mr
}

func TestRedisCache_RoundTrip(t *testing.T) {
	cache, _ := newTestRedisCache(t)
	ctx := context.Background()

	state := testState()
	key := Key("cust-1", "ws-1")
	require.NoError(t, cache.Set(ctx, key, state))

	loaded, err := cache.Get(ctx, key)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, state.Checksum, loaded.Checksum)
	assert.Equal(t, state.TotalItemCount, loaded.TotalItemCount)
	assert.Len(t, loaded.Items, len(state.Items))
}

func TestRedisCache_MissIsNil(t *testing.T) {
	cache, _ := newTestRedisCache(t)

	loaded, err := cache.Get(context.Background(), Key("cust-1", "ws-1"))
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestRedisCache_Delete(t *testing.T) {
	cache, _ := newTestRedisCache(t)
	ctx := context.Background()
	key := Key("cust-1", "ws-1")

	require.NoError(t, cache.Set(ctx, key, testState()))
	require.NoError(t, cache.Delete(ctx, key))

	loaded, err := cache.Get(ctx, key)
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestRedisCache_ListScansAllEntries(t *testing.T) {
	cache, mr := newTestRedisCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, Key("cust-1", "ws-1"), testState()))
	require.NoError(t, cache.Set(ctx, Key("cust-2", "ws-1"), testState()))

	// A key outside the cache prefix must not show up.
	mr.Set("unrelated", "value")

	all, err := cache.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Contains(t, all, Key("cust-1", "ws-1"))
	assert.Contains(t, all, Key("cust-2", "ws-1"))
}

func TestRedisCache_CustomPrefix(t *testing.T) {
	cache, mr := newTestRedisCache(t, WithCachePrefix("acme:carts"))
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, Key("cust-1", "ws-1"), testState()))
	assert.True(t, mr.Exists("acme:carts:ws-1:cust-1"))
}
