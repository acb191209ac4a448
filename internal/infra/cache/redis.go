package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisDedup реализует domain.Deduplicator через Redis.
type RedisDedup struct {
	client *redis.Client
	prefix string
}

// NewRedis создаёт дедупликатор с префиксом ключей.
func NewRedis(client *redis.Client, prefix string) *RedisDedup {
	return &RedisDedup{client: client, prefix: prefix}
}

// Once выполняет функцию, если ключ ещё не задан. При ошибке fn ключ снимается.
func (c *RedisDedup) Once(ctx context.Context, key string, ttl time.Duration, fn func() error) error {
	full := c.prefix + key
	ok, err := c.client.SetNX(ctx, full, "1", ttl).Result()
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	if err := fn(); err != nil {
		_ = c.client.Del(context.WithoutCancel(ctx), full).Err()
		return err
	}
	return nil
}

// Ping проверяет соединение с Redis.
func (c *RedisDedup) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
