package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vzahanych/balloon-atlas/internal/config"
	"go.uber.org/zap/zaptest"
)

func TestMemory_ExpiresAfterTTL(t *testing.T) {
	ctx := context.Background()
	clock := clockwork.NewFakeClock()
	store := NewMemoryWithClock(5*time.Minute, clock)

	require.NoError(t, store.Set(ctx, "fullData", []byte(`{"a":1}`)))

	clock.Advance(4*time.Minute + 59*time.Second)
	value, ok, err := store.Get(ctx, "fullData")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte(`{"a":1}`), value)

	clock.Advance(2 * time.Second)
	_, ok, err = store.Get(ctx, "fullData")
	require.NoError(t, err)
	assert.False(t, ok)

	n, err := store.Len(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestMemory_ExpiresExactlyAtTTL(t *testing.T) {
	ctx := context.Background()
	clock := clockwork.NewFakeClock()
	store := NewMemoryWithClock(time.Minute, clock)

	require.NoError(t, store.Set(ctx, "k", []byte("v")))
	clock.Advance(time.Minute)

	_, ok, _ := store.Get(ctx, "k")
	assert.False(t, ok)
}

func TestMemory_SetOverwritesAndRefreshes(t *testing.T) {
	ctx := context.Background()
	clock := clockwork.NewFakeClock()
	store := NewMemoryWithClock(time.Minute, clock)

	require.NoError(t, store.Set(ctx, "k", []byte("old")))
	clock.Advance(50 * time.Second)
	require.NoError(t, store.Set(ctx, "k", []byte("new")))
	clock.Advance(50 * time.Second)

	value, ok, _ := store.Get(ctx, "k")
	assert.True(t, ok)
	assert.Equal(t, []byte("new"), value)
}

func TestMemory_FlushAll(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryWithClock(time.Minute, clockwork.NewFakeClock())

	require.NoError(t, store.Set(ctx, "fullData", []byte("1")))
	require.NoError(t, store.Set(ctx, "balloonData", []byte("2")))

	n, _ := store.Len(ctx)
	assert.Equal(t, 2, n)

	require.NoError(t, store.FlushAll(ctx))
	// flushing an empty cache is fine
	require.NoError(t, store.FlushAll(ctx))

	_, ok, _ := store.Get(ctx, "fullData")
	assert.False(t, ok)
	_, ok, _ = store.Get(ctx, "balloonData")
	assert.False(t, ok)
}

func TestMemory_ConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	store := NewMemory(time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = store.Set(ctx, "k", []byte("v"))
				_, _, _ = store.Get(ctx, "k")
				if j%25 == 0 {
					_ = store.FlushAll(ctx)
				}
			}
		}()
	}
	wg.Wait()
}

func TestNew_SelectsBackend(t *testing.T) {
	logger := zaptest.NewLogger(t)

	store, err := New(&config.CacheConfig{Backend: config.CacheBackendMemory, TTL: 300}, logger)
	require.NoError(t, err)
	assert.Equal(t, config.CacheBackendMemory, store.Backend())
	assert.Equal(t, 5*time.Minute, store.TTL())

	store, err = New(&config.CacheConfig{Backend: config.CacheBackendRedis, TTL: 60, Redis: config.RedisConfig{Addr: "localhost:0"}}, logger)
	require.NoError(t, err)
	assert.Equal(t, config.CacheBackendRedis, store.Backend())

	_, err = New(&config.CacheConfig{Backend: "memcached"}, logger)
	assert.Error(t, err)
}
