package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisCache struct {
	rdb     *redis.Client
	seenTTL time.Duration
}

func NewRedisCache(rdb *redis.Client, seenTTL time.Duration) *RedisCache {
	return &RedisCache{rdb: rdb, seenTTL: seenTTL}
}

func qrKey(instanceID string) string {
	return "qr:" + instanceID
}

func (c *RedisCache) StoreQR(ctx context.Context, instanceID, qr string, ttl time.Duration) error {
	return c.rdb.Set(ctx, qrKey(instanceID), qr, ttl).Err()
}

// QR returns the cached pairing code for the instance, or "" on a miss.
func (c *RedisCache) QR(ctx context.Context, instanceID string) (string, error) {
	val, err := c.rdb.Get(ctx, qrKey(instanceID)).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return val, nil
}

// FirstSeen marks key as seen and reports whether this call was the first to
// do so within the retention window. Later calls for the same key get false.
func (c *RedisCache) FirstSeen(ctx context.Context, key string) (bool, error) {
	return c.rdb.SetNX(ctx, "seen:"+key, 1, c.seenTTL).Result()
}
