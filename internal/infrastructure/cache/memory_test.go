package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ledgerdesk/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*MemoryStore, *shared.FixedClock) {
	t.Helper()
	clock := shared.NewFixedClock(time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC))
	store := NewMemoryStore(WithClock(clock), WithSweepInterval(time.Hour))
	t.Cleanup(func() { _ = store.Close() })
	return store, clock
}

func TestMemoryStore_Claim(t *testing.T) {
	store, clock := newTestStore(t)
	ctx := context.Background()

	claimed, err := store.Claim(ctx, "sam:POST:/api/v1/orders/1/invoice:k1", time.Hour)
	require.NoError(t, err)
	assert.True(t, claimed)

	claimed, err = store.Claim(ctx, "sam:POST:/api/v1/orders/1/invoice:k1", time.Hour)
	require.NoError(t, err)
	assert.False(t, claimed)

	clock.Advance(time.Hour)
	claimed, err = store.Claim(ctx, "sam:POST:/api/v1/orders/1/invoice:k1", time.Hour)
	require.NoError(t, err)
	assert.True(t, claimed, "an expired key is free again")
}

func TestMemoryStore_Lifecycle(t *testing.T) {
	store, clock := newTestStore(t)
	ctx := context.Background()

	_, found, err := store.Lookup(ctx, "k")
	require.NoError(t, err)
	assert.False(t, found)

	_, err = store.Claim(ctx, "k", time.Minute)
	require.NoError(t, err)
	body, found, err := store.Lookup(ctx, "k")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Nil(t, body, "in-flight key has no body")

	resp := []byte(`{"code":"INV-20250615-001"}`)
	require.NoError(t, store.Complete(ctx, "k", resp, time.Hour))
	resp[2] = 'X'

	body, found, err = store.Lookup(ctx, "k")
	require.NoError(t, err)
	assert.True(t, found)
	assert.JSONEq(t, `{"code":"INV-20250615-001"}`, string(body))

	require.NoError(t, store.Release(ctx, "k"))
	_, found, _ = store.Lookup(ctx, "k")
	assert.False(t, found)

	require.NoError(t, store.Complete(ctx, "short", []byte("{}"), time.Minute))
	clock.Advance(2 * time.Minute)
	_, found, _ = store.Lookup(ctx, "short")
	assert.False(t, found)
}

func TestMemoryStore_Sweep(t *testing.T) {
	store, clock := newTestStore(t)
	ctx := context.Background()

	_, _ = store.Claim(ctx, "short", time.Second)
	_, _ = store.Claim(ctx, "long", time.Hour)
	require.Equal(t, 2, store.Len())

	clock.Advance(time.Minute)
	store.sweep()
	assert.Equal(t, 1, store.Len())
}

func TestMemoryStore_SingleWinner(t *testing.T) {
	store, _ := newTestStore(t)

	var winners atomic.Int32
	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, err := store.Claim(context.Background(), "contended", time.Hour); err == nil && ok {
				winners.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), winners.Load())
}

func TestMemoryStore_CloseTwice(t *testing.T) {
	store := NewMemoryStore()
	assert.NoError(t, store.Close())
	assert.NoError(t, store.Close())
}
