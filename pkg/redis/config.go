package redis

import "time"

// Config describes the redis connection and the lock settings used when
// several ykauth processes share one key directory.
type Config struct {
	ConnectionURL  string        `env:"YKAUTH_REDIS_URL"`                              // ConnectionURL in the form "redis://:password@localhost:6379/0". Empty disables redis.
	RetryAttempts  int           `env:"YKAUTH_REDIS_RETRY_ATTEMPTS" envDefault:"3"`    // RetryAttempts is the number of connection attempts.
	RetryInterval  time.Duration `env:"YKAUTH_REDIS_RETRY_INTERVAL" envDefault:"1s"`   // RetryInterval is the pause between connection attempts.
	ConnectTimeout time.Duration `env:"YKAUTH_REDIS_CONNECT_TIMEOUT" envDefault:"10s"` // ConnectTimeout bounds the whole connection procedure.
	LockPrefix     string        `env:"YKAUTH_LOCK_PREFIX" envDefault:"ykauth:lock:"`  // LockPrefix namespaces lock keys.
	LockTTL        time.Duration `env:"YKAUTH_LOCK_TTL" envDefault:"10s"`              // LockTTL expires locks of crashed holders.
	LockWait       time.Duration `env:"YKAUTH_LOCK_WAIT" envDefault:"5s"`              // LockWait is how long Lock waits for a busy key.
	LockRetry      time.Duration `env:"YKAUTH_LOCK_RETRY_INTERVAL" envDefault:"25ms"`  // LockRetry is the polling interval while waiting.
	RatePrefix     string        `env:"YKAUTH_RATE_PREFIX" envDefault:"ykauth:rate:"`  // RatePrefix namespaces failure throttling buckets.
}

// Enabled reports whether a connection URL is configured.
func (c Config) Enabled() bool {
	return c.ConnectionURL != ""
}
