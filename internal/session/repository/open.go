package repository

import (
	"context"
	"fmt"

	"github.com/hariseldon84/singlebrief-full-sub000/internal/config"
	"github.com/hariseldon84/singlebrief-full-sub000/internal/db"
)

// OpenKV returns the KV selected by cfg.SessionStore. Caller must Close it.
// namespace scopes shared backends (redis prefix, postgres namespace); it is typically the CLI profile.
func OpenKV(ctx context.Context, cfg *config.Config, namespace string) (KV, error) {
	switch cfg.SessionStore {
	case config.StoreMemory:
		return NewMemoryKV(), nil
	case config.StoreRedis:
		return NewRedisKV(ctx, cfg.RedisURL, "singlebrief:"+namespace+":")
	case config.StorePostgres:
		sqlDB, err := db.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("repository: open postgres: %w", err)
		}
		return NewPostgresKV(sqlDB, namespace), nil
	case config.StoreFile, "":
		path := cfg.SessionFile
		if path == "" {
			var err error
			if path, err = DefaultSessionFile(); err != nil {
				return nil, fmt.Errorf("repository: resolve session file: %w", err)
			}
		}
		return NewFileKV(path)
	default:
		return nil, fmt.Errorf("repository: unknown session store %q", cfg.SessionStore)
	}
}
