package ratelimiter

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const failureKeyPrefix = "otp-failures:"

// FailureConfig bounds rejected verifications per public id.
type FailureConfig struct {
	MaxFailures int           `env:"YKAUTH_MAX_FAILURES" envDefault:"0"`    // 0 disables throttling
	Window      time.Duration `env:"YKAUTH_FAILURE_WINDOW" envDefault:"1m"` // the failure budget is restored after Window
}

func (c FailureConfig) Enabled() bool {
	return c.MaxFailures > 0
}

// FailureLimiter allows MaxFailures rejected attempts per key within
// Window. It satisfies otpkey.AttemptLimiter.
type FailureLimiter struct {
	bucket *Bucket
}

func NewFailureLimiter(store Store, cfg FailureConfig) (*FailureLimiter, error) {
	if !cfg.Enabled() {
		return nil, errors.Join(ErrInvalidConfig, fmt.Errorf("max failures must be positive, got %d", cfg.MaxFailures))
	}
	b, err := NewBucket(store, Config{
		Capacity:       cfg.MaxFailures,
		RefillRate:     cfg.MaxFailures,
		RefillInterval: cfg.Window,
	})
	if err != nil {
		return nil, err
	}
	return &FailureLimiter{bucket: b}, nil
}

// Allowed reports whether key has failure budget left.
func (l *FailureLimiter) Allowed(ctx context.Context, key string) (bool, error) {
	res, err := l.bucket.Status(ctx, failureKeyPrefix+key)
	if err != nil {
		return false, err
	}
	return res.Remaining > 0, nil
}

func (l *FailureLimiter) Failed(ctx context.Context, key string) error {
	_, err := l.bucket.Allow(ctx, failureKeyPrefix+key)
	return err
}

func (l *FailureLimiter) Succeeded(ctx context.Context, key string) error {
	return l.bucket.Reset(ctx, failureKeyPrefix+key)
}

// RetryAfter returns the time until key regains failure budget, zero when
// it has some left.
func (l *FailureLimiter) RetryAfter(ctx context.Context, key string) (time.Duration, error) {
	res, err := l.bucket.Status(ctx, failureKeyPrefix+key)
	if err != nil {
		return 0, err
	}
	if res.Remaining > 0 {
		return 0, nil
	}
	return max(time.Until(res.ResetAt), 0), nil
}
