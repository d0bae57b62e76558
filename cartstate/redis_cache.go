package cartstate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/gelsogrove/shopME-sub006/types"
)

const defaultCachePrefix = "shopme:cartstate"

// redisEntryTTL bounds how long an abandoned cache entry can linger in Redis.
// It is deliberately much longer than the freshness TTL: the validator wants
// to see stale entries (to flag them), not have Redis silently drop them.
const redisEntryTTL = 24 * time.Hour

// RedisCache is a Redis-backed CacheStore for multi-instance deployments.
type RedisCache struct {
	client *redis.Client
	prefix string
}

// RedisCacheOption configures a RedisCache.
type RedisCacheOption func(*RedisCache)

// WithCachePrefix overrides the key prefix. Default is "shopme:cartstate".
func WithCachePrefix(prefix string) RedisCacheOption {
	return func(c *RedisCache) {
		c.prefix = prefix
	}
}

// NewRedisCache creates a Redis-backed cart state cache.
func NewRedisCache(client *redis.Client, opts ...RedisCacheOption) *RedisCache {
	c := &RedisCache{
		client: client,
		prefix: defaultCachePrefix,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the cached state for key, or (nil, nil).
func (c *RedisCache) Get(ctx context.Context, key string) (*types.CartState, error) {
	data, err := c.client.Get(ctx, c.redisKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var state types.CartState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cart state: %w", err)
	}
	return &state, nil
}

// Set replaces the cached state for key.
func (c *RedisCache) Set(ctx context.Context, key string, state *types.CartState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal cart state: %w", err)
	}
	if err := c.client.Set(ctx, c.redisKey(key), data, redisEntryTTL).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

// Delete removes the cached state for key.
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, c.redisKey(key)).Err(); err != nil {
		return fmt.Errorf("redis del failed: %w", err)
	}
	return nil
}

// List scans every cached state under the prefix.
func (c *RedisCache) List(ctx context.Context) (map[string]*types.CartState, error) {
	out := make(map[string]*types.CartState)

	iter := c.client.Scan(ctx, 0, c.prefix+":*", 100).Iterator()
	for iter.Next(ctx) {
		fullKey := iter.Val()
		data, err := c.client.Get(ctx, fullKey).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue // expired between SCAN and GET
			}
			return nil, fmt.Errorf("redis get failed: %w", err)
		}

		var state types.CartState
		if err := json.Unmarshal(data, &state); err != nil {
			return nil, fmt.Errorf("failed to unmarshal cart state: %w", err)
		}
		out[fullKey[len(c.prefix)+1:]] = &state
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redis scan failed: %w", err)
	}
	return out, nil
}

func (c *RedisCache) redisKey(key string) string {
	return c.prefix + ":" + key
}

var (
	_ CacheStore = (*MemoryCache)(nil)
	_ CacheStore = (*RedisCache)(nil)
)
