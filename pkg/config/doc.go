// Package config loads the ykauth process configuration from environment
// variables.
//
// It wraps github.com/joho/godotenv and github.com/caarlos0/env/v11: the
// default .env file is read once, then the environment is parsed into Config
// using its field tags. Nested structs carry the settings of the redis lock
// (pkg/redis) and the failure throttle (pkg/ratelimiter).
//
//	YKAUTH_CONFIG_DIR      key directory, default /var/lib/ykauth/keys
//	YKAUTH_LOG_LEVEL       debug, info, warn or error, default info
//	YKAUTH_LOG_FORMAT      text or json, default text
//	YKAUTH_REDIS_URL       enables the redis lock when set
//	YKAUTH_LOCK_TTL        default 10s
//	YKAUTH_LOCK_WAIT       default 5s
//	YKAUTH_MAX_FAILURES    default 0, throttling disabled
//	YKAUTH_FAILURE_WINDOW  default 1m
//
// Load caches the parsed configuration for the life of the process; Reset
// drops the cache, which tests use after changing the environment.
//
//	cfg, err := config.Load()
//	if err != nil {
//		return err
//	}
//	log := cfg.Logger()
package config
