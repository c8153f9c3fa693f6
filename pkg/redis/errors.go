package redis

import "errors"

var (
	ErrFailedToParseRedisConnString = errors.New("failed to parse redis connection string")
	ErrRedisNotReady                = errors.New("redis did not become ready within the given time period")
	ErrEmptyConnectionURL           = errors.New("empty redis connection URL")
	ErrLockTimeout                  = errors.New("timed out waiting for redis lock")
	ErrLockUnavailable              = errors.New("redis lock unavailable")
	ErrRateStoreUnavailable         = errors.New("redis rate store unavailable")
)
