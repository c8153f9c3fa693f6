package redis

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/ykauth/pkg/logger"
)

// releaseScript deletes the lock only while it still carries the holder's
// token, so an expired lock taken over by another process is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker is a per-key mutual exclusion shared by every process connected to
// the same redis server. It satisfies otpkey.Locker.
type Locker struct {
	client redis.UniversalClient
	log    *slog.Logger
	prefix string
	ttl    time.Duration
	wait   time.Duration
	retry  time.Duration
}

type LockerOption func(*Locker)

func WithLockLogger(l *slog.Logger) LockerOption {
	return func(lk *Locker) {
		if l != nil {
			lk.log = l
		}
	}
}

// NewLocker creates a Locker using the lock settings of cfg. Zero values
// fall back to the defaults of Config.
func NewLocker(client redis.UniversalClient, cfg Config, opts ...LockerOption) *Locker {
	l := &Locker{
		client: client,
		log:    logger.Discard(),
		prefix: cfg.LockPrefix,
		ttl:    cfg.LockTTL,
		wait:   cfg.LockWait,
		retry:  cfg.LockRetry,
	}
	if l.prefix == "" {
		l.prefix = "ykauth:lock:"
	}
	if l.ttl <= 0 {
		l.ttl = 10 * time.Second
	}
	if l.wait <= 0 {
		l.wait = 5 * time.Second
	}
	if l.retry <= 0 {
		l.retry = 25 * time.Millisecond
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Lock acquires key, polling until it is free. It gives up with
// ErrLockTimeout after the configured wait, or with the context error when
// ctx is done first. The returned function releases the lock; calling it
// more than once is harmless.
func (l *Locker) Lock(ctx context.Context, key string) (func(), error) {
	name := l.prefix + key
	token := uuid.NewString()

	deadline := time.NewTimer(l.wait)
	defer deadline.Stop()
	ticker := time.NewTicker(l.retry)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(ctx, name, token, l.ttl).Result()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, errors.Join(ErrLockUnavailable, err)
		}
		if ok {
			return l.releaser(name, token), nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-deadline.C:
			return nil, errors.Join(ErrLockTimeout, errors.New(key))
		case <-ticker.C:
		}
	}
}

func (l *Locker) releaser(name, token string) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			// the caller's context may be gone already
			ctx, cancel := context.WithTimeout(context.Background(), l.ttl)
			defer cancel()
			if err := releaseScript.Run(ctx, l.client, []string{name}, token).Err(); err != nil {
				l.log.Warn("failed to release redis lock", slog.String("lock", name), logger.Error(err))
			}
		})
	}
}
