package ratelimiter_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/ykauth/pkg/otpkey"
	"github.com/dmitrymomot/ykauth/pkg/ratelimiter"
)

var _ otpkey.AttemptLimiter = (*ratelimiter.FailureLimiter)(nil)

func TestFailureLimiter(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	store := ratelimiter.NewMemoryStore(
		ratelimiter.WithCleanupInterval(0),
		ratelimiter.WithClock(func() time.Time { return now }),
	)
	l, err := ratelimiter.NewFailureLimiter(store, ratelimiter.FailureConfig{MaxFailures: 3, Window: time.Minute})
	require.NoError(t, err)
	ctx := context.Background()

	for range 3 {
		ok, err := l.Allowed(ctx, "c0ffee")
		require.NoError(t, err)
		assert.True(t, ok)
		require.NoError(t, l.Failed(ctx, "c0ffee"))
	}
	ok, err := l.Allowed(ctx, "c0ffee")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = l.Allowed(ctx, "other")
	require.NoError(t, err)
	assert.True(t, ok, "keys are throttled independently")

	now = now.Add(time.Minute)
	ok, err = l.Allowed(ctx, "c0ffee")
	require.NoError(t, err)
	assert.True(t, ok, "budget restored after the window")

	require.NoError(t, l.Failed(ctx, "c0ffee"))
	require.NoError(t, l.Succeeded(ctx, "c0ffee"))
	for range 3 {
		require.NoError(t, l.Failed(ctx, "c0ffee"))
	}
	ok, err = l.Allowed(ctx, "c0ffee")
	require.NoError(t, err)
	assert.False(t, ok, "a reset bucket starts over with the full budget")
}

func TestFailureLimiterRetryAfter(t *testing.T) {
	t.Parallel()

	store := ratelimiter.NewMemoryStore(ratelimiter.WithCleanupInterval(0))
	l, err := ratelimiter.NewFailureLimiter(store, ratelimiter.FailureConfig{MaxFailures: 1, Window: time.Hour})
	require.NoError(t, err)
	ctx := context.Background()

	wait, err := l.RetryAfter(ctx, "k")
	require.NoError(t, err)
	assert.Zero(t, wait)

	require.NoError(t, l.Failed(ctx, "k"))
	wait, err = l.RetryAfter(ctx, "k")
	require.NoError(t, err)
	assert.Greater(t, wait, 59*time.Minute)
}

func TestFailureConfig(t *testing.T) {
	t.Parallel()

	assert.False(t, ratelimiter.FailureConfig{}.Enabled())
	_, err := ratelimiter.NewFailureLimiter(ratelimiter.NewMemoryStore(ratelimiter.WithCleanupInterval(0)), ratelimiter.FailureConfig{})
	assert.ErrorIs(t, err, ratelimiter.ErrInvalidConfig)

	_, err = ratelimiter.NewFailureLimiter(ratelimiter.NewMemoryStore(ratelimiter.WithCleanupInterval(0)),
		ratelimiter.FailureConfig{MaxFailures: 3})
	assert.ErrorIs(t, err, ratelimiter.ErrInvalidConfig, "window is required")
}
