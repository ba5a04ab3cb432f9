// Package cache holds composed pipeline results for a single global TTL.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/vzahanych/balloon-atlas/internal/config"
	"go.uber.org/zap"
)

// Store is a key/value cache with one TTL applied to every entry. Values are
// opaque encoded bytes and must not be mutated after Set.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	FlushAll(ctx context.Context) error
	Len(ctx context.Context) (int, error)
	Ping(ctx context.Context) error
	TTL() time.Duration
	Backend() string
}

// New builds the backend selected by cfg.Backend.
func New(cfg *config.CacheConfig, logger *zap.Logger) (Store, error) {
	ttl := time.Duration(cfg.TTL) * time.Second

	switch cfg.Backend {
	case config.CacheBackendMemory, "":
		logger.Info("Using in-memory result cache", zap.Duration("ttl", ttl))
		return NewMemory(ttl), nil
	case config.CacheBackendRedis:
		logger.Info("Using redis result cache",
			zap.String("addr", cfg.Redis.Addr),
			zap.Int("db", cfg.Redis.DB),
			zap.Duration("ttl", ttl))
		return NewRedis(cfg.Redis, ttl), nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}
