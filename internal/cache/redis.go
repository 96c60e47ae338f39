package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/audiogated/audiogated/internal/config"
	"github.com/audiogated/audiogated/internal/log"
)

// RedisCache is the Redis-backed CacheStore implementation, grounded on
// xg2g/internal/cache/redis.go but storing raw binary artifacts instead
// of JSON-encoded values (spec §4.6: "GET/SET of binary values").
type RedisCache struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedis creates a Redis-backed cache and verifies connectivity.
func NewRedis(cfg config.RedisConfig) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 5,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &RedisCache{client: client, keyPrefix: cfg.KeyPrefix}, nil
}

func (c *RedisCache) namespaced(key string) string {
	return c.keyPrefix + key
}

// Get implements Store; any backend error is treated as a miss.
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	data, err := c.client.Get(ctx, c.namespaced(key)).Bytes()
	if err != nil {
		if err != redis.Nil {
			log.WithComponent("cache.redis").Warn().Err(err).Str("key", key).Msg("get failed, treating as miss")
		}
		return nil, false
	}
	return data, true
}

// Put implements Store; errors are logged and swallowed.
func (c *RedisCache) Put(ctx context.Context, key string, data []byte) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := c.client.Set(ctx, c.namespaced(key), data, 0).Err(); err != nil {
		log.WithComponent("cache.redis").Warn().Err(err).Str("key", key).Msg("set failed")
	}
}

// HealthCheck reports whether Redis is reachable (used by /health).
func (c *RedisCache) HealthCheck(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close releases the underlying connection pool.
func (c *RedisCache) Close() error {
	return c.client.Close()
}
