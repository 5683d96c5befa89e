package cache

import (
	"context"
	"testing"

	"github.com/ledgerdesk/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewIdempotencyStore(t *testing.T) {
	ctx := context.Background()
	unreachable := config.RedisConfig{Host: "127.0.0.1", Port: 1}

	t.Run("no host stays in memory", func(t *testing.T) {
		store, err := NewIdempotencyStore(ctx, config.RedisConfig{}, nil)
		require.NoError(t, err)
		defer store.Close()
		assert.IsType(t, &MemoryStore{}, store)
	})

	t.Run("unreachable redis falls back with a warning", func(t *testing.T) {
		core, logs := observer.New(zap.WarnLevel)
		store, err := NewIdempotencyStore(ctx, unreachable, zap.New(core))
		require.NoError(t, err)
		defer store.Close()
		assert.IsType(t, &MemoryStore{}, store)
		assert.Equal(t, 1, logs.FilterMessage("Redis unavailable, idempotency keys kept in memory").Len())
	})

	t.Run("required redis must answer", func(t *testing.T) {
		cfg := unreachable
		cfg.Required = true
		_, err := NewIdempotencyStore(ctx, cfg, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "redis is required")
		assert.Contains(t, err.Error(), "127.0.0.1:1")
	})
}
