package ratelimiter

import (
	"context"
	"errors"
	"fmt"
)

// Bucket is a token bucket over a Store.
type Bucket struct {
	store  Store
	config Config
}

func NewBucket(store Store, config Config) (*Bucket, error) {
	if err := config.validate(); err != nil {
		return nil, err
	}
	return &Bucket{store: store, config: config}, nil
}

func (b *Bucket) Allow(ctx context.Context, key string) (*Result, error) {
	return b.AllowN(ctx, key, 1)
}

// AllowN consumes n tokens. The result is not allowed when the bucket went
// below zero; the tokens stay consumed.
func (b *Bucket) AllowN(ctx context.Context, key string, n int) (*Result, error) {
	if n <= 0 {
		return nil, errors.Join(ErrInvalidTokenCount, fmt.Errorf("must be positive, got %d", n))
	}
	return b.consume(ctx, key, n)
}

// Status reports the bucket state without consuming tokens.
func (b *Bucket) Status(ctx context.Context, key string) (*Result, error) {
	return b.consume(ctx, key, 0)
}

func (b *Bucket) Reset(ctx context.Context, key string) error {
	return b.store.Reset(ctx, key)
}

func (b *Bucket) consume(ctx context.Context, key string, n int) (*Result, error) {
	remaining, resetAt, err := b.store.ConsumeTokens(ctx, key, n, b.config)
	if err != nil {
		return nil, err
	}
	return &Result{
		Limit:     b.config.Capacity,
		Remaining: remaining,
		ResetAt:   resetAt,
	}, nil
}

func (c Config) validate() error {
	if c.Capacity <= 0 {
		return errors.Join(ErrInvalidConfig, fmt.Errorf("capacity must be positive, got %d", c.Capacity))
	}
	if c.RefillRate <= 0 {
		return errors.Join(ErrInvalidConfig, fmt.Errorf("refill rate must be positive, got %d", c.RefillRate))
	}
	if c.RefillInterval <= 0 {
		return errors.Join(ErrInvalidConfig, fmt.Errorf("refill interval must be positive, got %v", c.RefillInterval))
	}
	return nil
}
