package cache

import (
	"context"
	"errors"
	"fmt"
	"vrp-route-service/internal/platform/obs"
	"vrp-route-service/internal/ports"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "vrp:oracle:"

// RedisOracleCache keeps oracle responses in Redis with a per-kind TTL.
// Several service instances can share it.
type RedisOracleCache struct {
	client *redis.Client
	ttls   TTLs
}

func NewRedisOracleCache(client *redis.Client, ttls TTLs) *RedisOracleCache {
	return &RedisOracleCache{client: client, ttls: ttls}
}

// OpenRedis parses a redis:// URL and verifies the server answers.
func OpenRedis(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("open redis: parse url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("open redis: ping: %w", err)
	}
	return client, nil
}

func redisKey(kind ports.CacheKind, key string) string {
	return redisKeyPrefix + string(kind) + ":" + key
}

func (c *RedisOracleCache) Get(ctx context.Context, kind ports.CacheKind, key string) (_ []byte, _ bool, err error) {
	defer obs.Time(ctx, "cache.redis.Get")(&err)

	b, err := c.client.Get(ctx, redisKey(kind, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis cache get %s: %w", kind, err)
	}
	return b, true, nil
}

func (c *RedisOracleCache) Set(ctx context.Context, kind ports.CacheKind, key string, payload []byte) (err error) {
	defer obs.Time(ctx, "cache.redis.Set")(&err)

	if err := c.client.Set(ctx, redisKey(kind, key), payload, c.ttls.For(kind)).Err(); err != nil {
		return fmt.Errorf("redis cache set %s: %w", kind, err)
	}
	return nil
}
