package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/terra-clan/compare-engine/internal/config"
)

// Open builds the Store selected by cfg.Backend. The postgres backend runs
// pending migrations before returning. With cfg.PurgeOnStart every stored
// preference is dropped once the store is up.
func Open(ctx context.Context, cfg config.StoreConfig, redisCfg config.RedisConfig) (Store, error) {
	store, err := open(ctx, cfg, redisCfg)
	if err != nil {
		return nil, err
	}
	if cfg.PurgeOnStart {
		if err := purge(ctx, store, cfg.Backend); err != nil {
			store.Close()
			return nil, err
		}
	}
	return store, nil
}

// purge drops every stored preference when the backend supports it
func purge(ctx context.Context, store Store, backend string) error {
	p, ok := store.(Purger)
	if !ok {
		slog.Warn("store does not support purging, keeping preferences", "store", backend)
		return nil
	}
	n, err := p.Purge(ctx)
	if err != nil {
		return fmt.Errorf("failed to purge preferences: %w", err)
	}
	slog.Info("purged stored preferences", "store", backend, "clients", n)
	return nil
}

func open(ctx context.Context, cfg config.StoreConfig, redisCfg config.RedisConfig) (Store, error) {
	switch cfg.Backend {
	case config.BackendMemory, "":
		return NewMemoryStore(), nil

	case config.BackendRedis:
		return NewRedisStore(ctx, RedisConfig{
			Address:  redisCfg.Address,
			Password: redisCfg.Password,
			DB:       redisCfg.DB,
			Prefix:   redisCfg.Prefix,
		})

	case config.BackendPostgres:
		store, err := NewPostgresStore(ctx, PostgresConfig{
			DSN:          cfg.DSN,
			MaxOpenConns: int32(cfg.MaxOpenConns),
			MaxIdleConns: int32(cfg.MaxIdleConns),
		})
		if err != nil {
			return nil, err
		}
		slog.Info("running preference migrations", "store", cfg.Backend, "dir", cfg.MigrationsDir)
		if _, err := store.Migrate(ctx, cfg.MigrationsDir); err != nil {
			store.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		return store, nil

	case config.BackendSQLite:
		return NewSQLStore(ctx, "sqlite3", cfg.DSN)

	case config.BackendSQL:
		return NewSQLStore(ctx, cfg.Driver, cfg.DSN)

	default:
		return nil, fmt.Errorf("unknown store backend: %q", cfg.Backend)
	}
}
