// Package cache holds the idempotency key stores that keep a retried
// invoice generation from being applied twice.
package cache

import (
	"context"
	"fmt"

	"github.com/ledgerdesk/backend/internal/domain/shared"
	"github.com/ledgerdesk/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// NewIdempotencyStore uses Redis when redis.host is set and answers.
// Without a host, or when Redis is down and not marked required, keys
// stay in memory and are only deduplicated per process.
func NewIdempotencyStore(ctx context.Context, cfg config.RedisConfig, log *zap.Logger) (shared.IdempotencyStore, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.Host == "" {
		log.Info("Idempotency keys kept in memory", zap.String("reason", "redis not configured"))
		return NewMemoryStore(), nil
	}

	store, err := DialRedis(ctx, cfg)
	if err == nil {
		log.Info("Idempotency keys kept in redis", zap.String("host", cfg.Host), zap.Int("port", cfg.Port))
		return store, nil
	}
	if cfg.Required {
		return nil, fmt.Errorf("redis is required for idempotency: %w", err)
	}
	log.Warn("Redis unavailable, idempotency keys kept in memory", zap.Error(err))
	return NewMemoryStore(), nil
}
