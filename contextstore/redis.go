package contextstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultRedisPrefix = "shopme:context"

// RedisBackend stores conversation contexts in Redis with native key expiry.
// Suitable for multi-instance deployments where every instance must observe
// the same disambiguation state.
type RedisBackend struct {
	client *redis.Client
	prefix string
}

// RedisOption configures a RedisBackend.
type RedisOption func(*RedisBackend)

// WithPrefix overrides the key prefix. Default is "shopme:context".
func WithPrefix(prefix string) RedisOption {
	return func(b *RedisBackend) {
		b.prefix = prefix
	}
}

// NewRedisBackend creates a Redis-backed context store.
func NewRedisBackend(client *redis.Client, opts ...RedisOption) *RedisBackend {
	b := &RedisBackend{
		client: client,
		prefix: defaultRedisPrefix,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Get returns the live context for key, or (nil, nil) when absent or expired.
func (b *RedisBackend) Get(ctx context.Context, key string) (*ConversationContext, error) {
	data, err := b.client.Get(ctx, b.redisKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var cc ConversationContext
	if err := json.Unmarshal(data, &cc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal context: %w", err)
	}

	// Redis expiry is best effort; respect the context's own clock too.
	if cc.Expired(time.Now()) {
		_ = b.client.Del(ctx, b.redisKey(key)).Err()
		return nil, nil
	}
	return &cc, nil
}

// Set stores value with a TTL matching its ExpiresAt.
func (b *RedisBackend) Set(ctx context.Context, key string, value *ConversationContext) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal context: %w", err)
	}

	ttl := time.Until(value.ExpiresAt)
	if ttl <= 0 {
		// Already expired; storing it would be immediately invisible.
		return b.Delete(ctx, key)
	}

	if err := b.client.Set(ctx, b.redisKey(key), data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

// Delete removes the entry for key.
func (b *RedisBackend) Delete(ctx context.Context, key string) error {
	if err := b.client.Del(ctx, b.redisKey(key)).Err(); err != nil {
		return fmt.Errorf("redis del failed: %w", err)
	}
	return nil
}

// Sweep is a no-op: Redis evicts expired keys natively.
func (b *RedisBackend) Sweep(ctx context.Context) (int, error) {
	return 0, nil
}

func (b *RedisBackend) redisKey(key string) string {
	return b.prefix + ":" + key
}
