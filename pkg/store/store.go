// Package store persists trained n-gram models. A saved model loads back
// with the same contexts, counts and suggestion order.
package store

import (
	"context"
	"fmt"

	"github.com/zpam/mailtype/pkg/config"
	"github.com/zpam/mailtype/pkg/ngram"
)

// Store saves and loads one named model.
type Store interface {
	Save(ctx context.Context, m *ngram.Model) error
	Load(ctx context.Context) (*ngram.Model, error)
	Close() error
}

var (
	_ Store = (*FileStore)(nil)
	_ Store = (*RedisStore)(nil)
	_ Store = (*SQLStore)(nil)
)

// Open builds the backend selected by cfg.Store.Backend.
func Open(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.Store.Backend {
	case "", "file":
		return NewFileStore(cfg.Store.File.Path, cfg.Store.File.Format)
	case "redis":
		ttl, err := cfg.Store.Redis.TTLDuration()
		if err != nil {
			return nil, err
		}
		return NewRedisStore(ctx, &RedisConfig{
			RedisURL:    cfg.Store.Redis.URL,
			KeyPrefix:   cfg.Store.Redis.KeyPrefix,
			DatabaseNum: cfg.Store.Redis.DatabaseNum,
			Name:        cfg.Model.Name,
			TTL:         ttl,
		})
	case "sqlite":
		return OpenSQLStore(ctx, cfg.Store.SQLite.Path, cfg.Model.Name)
	default:
		return nil, fmt.Errorf("unknown store backend: %s", cfg.Store.Backend)
	}
}
