package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisKV stores entries as plain string keys under a prefix. Batches run in MULTI/EXEC.
type RedisKV struct {
	client *redis.Client
	prefix string
}

// NewRedisKV parses a redis:// URL and pings the server.
func NewRedisKV(ctx context.Context, rawURL, prefix string) (*RedisKV, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("repository: parse REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("repository: redis ping: %w", err)
	}
	return &RedisKV{client: client, prefix: prefix}, nil
}

func (r *RedisKV) key(k string) string {
	return r.prefix + k
}

func (r *RedisKV) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := r.client.Get(ctx, r.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (r *RedisKV) Write(ctx context.Context, b Batch) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for k, v := range b.Set {
			pipe.Set(ctx, r.key(k), v, 0)
		}
		if len(b.Delete) > 0 {
			keys := make([]string, len(b.Delete))
			for i, k := range b.Delete {
				keys[i] = r.key(k)
			}
			pipe.Del(ctx, keys...)
		}
		return nil
	})
	return err
}

func (r *RedisKV) Close() error {
	return r.client.Close()
}
