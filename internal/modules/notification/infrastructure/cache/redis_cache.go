package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const conteoTTL = 30 * time.Second

// RedisConteoCache keeps the per-user unread counter hot between badge
// polls. Every operation is best-effort: a Redis failure reads as a miss
// and the caller falls back to the store.
type RedisConteoCache struct {
	client *redis.Client
}

func NewRedisConteoCache(client *redis.Client) *RedisConteoCache {
	return &RedisConteoCache{client: client}
}

func clave(usuarioID uuid.UUID) string {
	return fmt.Sprintf("notificaciones:no-leidas:%s", usuarioID)
}

func (c *RedisConteoCache) Get(ctx context.Context, usuarioID uuid.UUID) (int, bool) {
	val, err := c.client.Get(ctx, clave(usuarioID)).Result()
	if err != nil {
		return 0, false
	}
	count, err := strconv.Atoi(val)
	if err != nil {
		return 0, false
	}
	return count, true
}

func (c *RedisConteoCache) Set(ctx context.Context, usuarioID uuid.UUID, count int) {
	_ = c.client.Set(ctx, clave(usuarioID), count, conteoTTL).Err()
}

func (c *RedisConteoCache) Invalidate(ctx context.Context, usuarioID uuid.UUID) {
	_ = c.client.Del(ctx, clave(usuarioID)).Err()
}
