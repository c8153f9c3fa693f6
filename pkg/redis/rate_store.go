package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/ykauth/pkg/ratelimiter"
)

// consumeScript refills and drains one token bucket atomically. It follows
// the same whole-interval refill as ratelimiter.MemoryStore.
//
// KEYS[1] bucket hash; ARGV: capacity, refill rate, interval ms, tokens, now ms
var consumeScript = redis.NewScript(`
local capacity = tonumber(ARGV[1])
local rate = tonumber(ARGV[2])
local interval = tonumber(ARGV[3])
local take = tonumber(ARGV[4])
local now = tonumber(ARGV[5])

local state = redis.call("HMGET", KEYS[1], "tokens", "refill")
local tokens = tonumber(state[1])
local refill = tonumber(state[2])
if tokens == nil or refill == nil then
	tokens = capacity
	refill = now
end

local maxIntervals = math.floor(capacity / rate) + 1
local intervals = math.min(math.floor((now - refill) / interval), maxIntervals)
if intervals > 0 then
	tokens = math.min(tokens + intervals * rate, capacity)
	refill = now
end

tokens = tokens - take
redis.call("HSET", KEYS[1], "tokens", tokens, "refill", refill)
redis.call("PEXPIRE", KEYS[1], interval * maxIntervals)
return {tokens, refill}
`)

// RateStore is a ratelimiter.Store kept in redis, so every process sharing
// the server sees the same buckets.
type RateStore struct {
	client redis.UniversalClient
	prefix string
	now    func() time.Time
}

type RateStoreOption func(*RateStore)

// WithRatePrefix namespaces bucket keys. The default is "ykauth:rate:".
func WithRatePrefix(prefix string) RateStoreOption {
	return func(s *RateStore) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

// WithRateClock replaces time.Now.
func WithRateClock(now func() time.Time) RateStoreOption {
	return func(s *RateStore) {
		if now != nil {
			s.now = now
		}
	}
}

func NewRateStore(client redis.UniversalClient, opts ...RateStoreOption) *RateStore {
	s := &RateStore{
		client: client,
		prefix: "ykauth:rate:",
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RateStore) ConsumeTokens(ctx context.Context, key string, tokens int, config ratelimiter.Config) (int, time.Time, error) {
	res, err := consumeScript.Run(ctx, s.client, []string{s.prefix + key},
		config.Capacity,
		config.RefillRate,
		max(config.RefillInterval.Milliseconds(), 1),
		tokens,
		s.now().UnixMilli(),
	).Int64Slice()
	if err != nil {
		return 0, time.Time{}, errors.Join(ErrRateStoreUnavailable, err)
	}
	if len(res) != 2 {
		return 0, time.Time{}, errors.Join(ErrRateStoreUnavailable, errors.New("unexpected script reply"))
	}
	return int(res[0]), time.UnixMilli(res[1]).Add(config.RefillInterval), nil
}

func (s *RateStore) Reset(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil {
		return errors.Join(ErrRateStoreUnavailable, err)
	}
	return nil
}
