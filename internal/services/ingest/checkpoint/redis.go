package checkpoint

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// KeyPrefix namespaces checkpoint keys in a shared redis
const KeyPrefix = "ghscan:checkpoint:"

// RedisBackend keeps the checkpoint under one redis key
type RedisBackend struct {
	client  redis.UniversalClient
	key     string
	timeout time.Duration
}

// NewRedisBackend returns a backend storing checkpoint name through client
func NewRedisBackend(client redis.UniversalClient, name string) *RedisBackend {
	if name == "" {
		name = DefaultName
	}
	return &RedisBackend{client: client, key: KeyPrefix + name, timeout: 5 * time.Second}
}

// Key returns the redis key in use
func (r *RedisBackend) Key() string { return r.key }

func (r *RedisBackend) Load(ctx context.Context) (string, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	v, err := r.client.Get(ctx, r.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (r *RedisBackend) Save(ctx context.Context, raw string) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	return r.client.Set(ctx, r.key, raw, 0).Err()
}

func (r *RedisBackend) Close() error { return r.client.Close() }
