package components

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

// RedisCacheConfig configures the Redis-backed cache component.
type RedisCacheConfig struct {
	Address     string        `mapstructure:"address" json:"address"`
	Password    string        `mapstructure:"password" json:"password"`
	DB          int           `mapstructure:"db" json:"db"`
	PoolSize    int           `mapstructure:"pool_size" json:"pool_size"`
	MaxRetries  int           `mapstructure:"max_retries" json:"max_retries"`
	ReadTimeout time.Duration `mapstructure:"read_timeout" json:"read_timeout"`
	KeyPrefix   string        `mapstructure:"key_prefix" json:"key_prefix"`
}

// RedisCache implements Cache and BatchCache against a Redis server, so the
// harness can benchmark a real network-attached cache instead of an in-process
// map.
type RedisCache struct {
	client *redis.Client
	logger *logrus.Logger
	prefix string
}

// NewRedisCache connects to Redis and verifies the connection before returning.
func NewRedisCache(cfg RedisCacheConfig, logger *logrus.Logger) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:        cfg.Address,
		Password:    cfg.Password,
		DB:          cfg.DB,
		PoolSize:    cfg.PoolSize,
		MaxRetries:  cfg.MaxRetries,
		ReadTimeout: cfg.ReadTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = "corebench:"
	}

	return &RedisCache{
		client: client,
		logger: logger,
		prefix: prefix,
	}, nil
}

// Get retrieves a value from Redis.
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	result, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to get from cache: %w", err)
	}
	return result, true, nil
}

// Set stores a value with TTL.
func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.client.Set(ctx, c.prefix+key, value, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set cache: %w", err)
	}
	return nil
}

// Delete removes a key.
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, c.prefix+key).Err(); err != nil {
		return fmt.Errorf("failed to delete from cache: %w", err)
	}
	return nil
}

// MGet retrieves multiple keys in one round trip; missing keys return nil slots.
func (c *RedisCache) MGet(ctx context.Context, keys []string) ([][]byte, error) {
	prefixed := make([]string, len(keys))
	for i, key := range keys {
		prefixed[i] = c.prefix + key
	}

	raw, err := c.client.MGet(ctx, prefixed...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to mget from cache: %w", err)
	}

	values := make([][]byte, len(raw))
	for i, item := range raw {
		if s, ok := item.(string); ok {
			values[i] = []byte(s)
		}
	}
	return values, nil
}

// MSet stores multiple entries with a shared TTL using a pipeline.
func (c *RedisCache) MSet(ctx context.Context, entries map[string][]byte, ttl time.Duration) error {
	pipe := c.client.Pipeline()
	for key, value := range entries {
		pipe.Set(ctx, c.prefix+key, value, ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to mset cache: %w", err)
	}
	return nil
}

// Flush removes all keys under the cache's prefix.
func (c *RedisCache) Flush(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, c.prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			c.logger.WithError(err).WithField("key", iter.Val()).Warn("Failed to delete key during flush")
		}
	}
	return iter.Err()
}

// Close releases the underlying connection pool.
func (c *RedisCache) Close() error {
	return c.client.Close()
}
