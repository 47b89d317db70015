package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type redisCache struct {
	client *redis.Client
}

// NewRedis connects to the cache server and verifies the connection.
func NewRedis(ctx context.Context, addr, password string, db int) (Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping cache: %w", err)
	}

	return &redisCache{client: client}, nil
}

func (c *redisCache) Get(ctx context.Context, key string) (string, bool) {
	value, err := c.client.Get(ctx, key).Result()
	if err != nil {
		// redis.Nil is a plain miss; any other failure is treated the same
		// way so read paths fall through to the store.
		return "", false
	}
	return value, true
}

func (c *redisCache) Set(ctx context.Context, key, value string) error {
	if err := c.client.Set(ctx, key, value, 0).Err(); err != nil {
		return fmt.Errorf("failed to set %q: %w", key, err)
	}
	return nil
}

func (c *redisCache) SetTimed(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := c.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set %q: %w", key, err)
	}
	return nil
}

func (c *redisCache) Remove(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to remove %q: %w", key, err)
	}
	return nil
}

func (c *redisCache) Incr(ctx context.Context, key string) error {
	if err := c.client.Incr(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to incr %q: %w", key, err)
	}
	return nil
}

func (c *redisCache) Decr(ctx context.Context, key string) error {
	if err := c.client.Decr(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to decr %q: %w", key, err)
	}
	return nil
}
