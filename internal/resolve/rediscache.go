package resolve

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisRemoteCache adapts a *redis.Client to the RemoteCache interface so
// it can serve as a TieredCache's L2 tier.
type RedisRemoteCache struct {
	rdb *redis.Client
}

// NewRedisRemoteCache wraps rdb as a RemoteCache.
func NewRedisRemoteCache(rdb *redis.Client) *RedisRemoteCache {
	return &RedisRemoteCache{rdb: rdb}
}

func (r *RedisRemoteCache) Get(ctx context.Context, key string) (string, error) {
	v, err := r.rdb.Get(ctx, key).Result()
	if err != nil {
		return "", ErrCacheMiss
	}
	return v, nil
}

func (r *RedisRemoteCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return r.rdb.Set(ctx, key, value, ttl).Err()
}
