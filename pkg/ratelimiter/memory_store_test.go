package ratelimiter_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/ykauth/pkg/ratelimiter"
)

func TestMemoryStoreRefillCap(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	store := ratelimiter.NewMemoryStore(
		ratelimiter.WithCleanupInterval(0),
		ratelimiter.WithClock(func() time.Time { return now }),
	)
	cfg := ratelimiter.Config{Capacity: 5, RefillRate: 2, RefillInterval: time.Second}
	ctx := context.Background()

	remaining, _, err := store.ConsumeTokens(ctx, "k", 5, cfg)
	require.NoError(t, err)
	assert.Equal(t, 0, remaining)

	// a very long idle period never exceeds the capacity
	now = now.Add(1000 * time.Hour)
	remaining, _, err = store.ConsumeTokens(ctx, "k", 0, cfg)
	require.NoError(t, err)
	assert.Equal(t, 5, remaining)
}

func TestMemoryStoreRemoveStale(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	store := ratelimiter.NewMemoryStore(
		ratelimiter.WithCleanupInterval(0),
		ratelimiter.WithStaleAfter(time.Minute),
		ratelimiter.WithClock(clock),
	)
	cfg := ratelimiter.Config{Capacity: 1, RefillRate: 1, RefillInterval: time.Second}

	_, _, err := store.ConsumeTokens(context.Background(), "old", 1, cfg)
	require.NoError(t, err)
	mu.Lock()
	now = now.Add(2 * time.Minute)
	mu.Unlock()
	_, _, err = store.ConsumeTokens(context.Background(), "new", 1, cfg)
	require.NoError(t, err)

	store.RemoveStale()
	assert.Equal(t, 1, store.Len())
}

func TestMemoryStoreCleanupLoop(t *testing.T) {
	t.Parallel()

	store := ratelimiter.NewMemoryStore(
		ratelimiter.WithCleanupInterval(5*time.Millisecond),
		ratelimiter.WithStaleAfter(time.Nanosecond),
	)
	defer store.Close()

	_, _, err := store.ConsumeTokens(context.Background(), "k", 1,
		ratelimiter.Config{Capacity: 1, RefillRate: 1, RefillInterval: time.Second})
	require.NoError(t, err)

	assert.Eventually(t, func() bool { return store.Len() == 0 }, time.Second, 5*time.Millisecond)
	store.Close()
}
