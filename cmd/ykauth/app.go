package main

import (
	"errors"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/dmitrymomot/ykauth/pkg/config"
	"github.com/dmitrymomot/ykauth/pkg/logger"
	"github.com/dmitrymomot/ykauth/pkg/otpcipher"
	"github.com/dmitrymomot/ykauth/pkg/otpkey"
	"github.com/dmitrymomot/ykauth/pkg/ratelimiter"
	"github.com/dmitrymomot/ykauth/pkg/redis"
)

// skipApp marks commands that run without a key directory.
const skipApp = "skip-app"

type rootOptions struct {
	configDir string
	logLevel  string
}

// app holds what commands share once the root pre-run has finished.
type app struct {
	opts    rootOptions
	cfg     config.Config
	log     *slog.Logger
	manager *otpkey.Manager
	closers []func() error
}

func (a *app) init(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if a.opts.configDir != "" {
		cfg.ConfigDir = a.opts.configDir
	}
	if a.opts.logLevel != "" {
		cfg.LogLevel = a.opts.logLevel
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	a.cfg = cfg
	a.log = cfg.Logger(logger.WithOutput(cmd.ErrOrStderr()), logger.WithComponent("ykauth"))

	opts := []otpkey.Option{
		otpkey.WithLogger(a.log),
		otpkey.WithDecrypter(otpcipher.AES{}),
	}

	// without redis the failure budget only lives as long as this process
	var store ratelimiter.Store
	if cfg.Redis.Enabled() {
		client, err := redis.Connect(cmd.Context(), cfg.Redis)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, client.Close)
		opts = append(opts, otpkey.WithLocker(redis.NewLocker(client, cfg.Redis, redis.WithLockLogger(a.log))))
		store = redis.NewRateStore(client, redis.WithRatePrefix(cfg.Redis.RatePrefix))
		a.log.Debug("using redis lock and rate store")
	}

	if cfg.Throttle.Enabled() {
		if store == nil {
			ms := ratelimiter.NewMemoryStore()
			a.closers = append(a.closers, func() error { ms.Close(); return nil })
			store = ms
		}
		limiter, err := ratelimiter.NewFailureLimiter(store, cfg.Throttle)
		if err != nil {
			return err
		}
		opts = append(opts, otpkey.WithLimiter(limiter))
	}

	a.manager, err = otpkey.NewManager(cfg.ConfigDir, opts...)
	return err
}

func (a *app) close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}

// run wraps a command body so shared resources are released even when it
// fails; cobra skips post-run hooks after an error.
func (a *app) run(fn func(*cobra.Command, []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		defer func() { err = errors.Join(err, a.close()) }()
		return fn(cmd, args)
	}
}
