package config

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/dmitrymomot/ykauth/pkg/logger"
	"github.com/dmitrymomot/ykauth/pkg/ratelimiter"
	"github.com/dmitrymomot/ykauth/pkg/redis"
)

// Config is the ykauth process configuration.
type Config struct {
	ConfigDir string `env:"YKAUTH_CONFIG_DIR" envDefault:"/var/lib/ykauth/keys"` // key directory
	LogLevel  string `env:"YKAUTH_LOG_LEVEL" envDefault:"info"`                  // debug, info, warn or error
	LogFormat string `env:"YKAUTH_LOG_FORMAT" envDefault:"text"`                 // text or json

	Redis    redis.Config
	Throttle ratelimiter.FailureConfig
}

// Validate checks values env tags can not express.
func (c Config) Validate() error {
	if c.ConfigDir == "" {
		return errors.Join(ErrInvalidConfig, errors.New("YKAUTH_CONFIG_DIR is empty"))
	}
	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		return errors.Join(ErrInvalidConfig, err)
	}
	switch logger.Format(c.LogFormat) {
	case logger.FormatText, logger.FormatJSON:
	default:
		return errors.Join(ErrInvalidConfig, fmt.Errorf("invalid log format %q", c.LogFormat))
	}
	if c.Throttle.MaxFailures < 0 {
		return errors.Join(ErrInvalidConfig, fmt.Errorf("YKAUTH_MAX_FAILURES must not be negative, got %d", c.Throttle.MaxFailures))
	}
	if c.Throttle.Enabled() && c.Throttle.Window <= 0 {
		return errors.Join(ErrInvalidConfig, errors.New("YKAUTH_FAILURE_WINDOW must be positive"))
	}
	return nil
}

// Level returns the parsed log level. Validate guarantees it is known.
func (c Config) Level() slog.Level {
	l, _ := logger.ParseLevel(c.LogLevel)
	return l
}

// Logger builds the process logger from LogLevel and LogFormat.
func (c Config) Logger(opts ...logger.Option) *slog.Logger {
	base := []logger.Option{logger.WithLevel(c.Level())}
	if f := logger.Format(c.LogFormat); f == logger.FormatJSON || f == logger.FormatText {
		base = append(base, logger.WithFormat(f))
	}
	return logger.New(append(base, opts...)...)
}
