package config

import (
	"errors"
	"fmt"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type loadState struct {
	once sync.Once
	cfg  Config
	err  error
}

var (
	mu      sync.Mutex
	current = new(loadState)

	defaultEnvLoaded sync.Once
)

// Load parses and validates the process configuration. The default .env
// file of the working directory is read first when present; variables
// already set in the environment win. The result, error included, is
// computed once and cached until Reset.
func Load() (Config, error) {
	mu.Lock()
	s := current
	mu.Unlock()

	s.once.Do(func() {
		defaultEnvLoaded.Do(func() {
			// a missing .env file is fine
			_ = godotenv.Load()
		})
		var cfg Config
		if err := Parse(&cfg); err != nil {
			s.err = err
			return
		}
		if err := cfg.Validate(); err != nil {
			s.err = err
			return
		}
		s.cfg = cfg
	})
	return s.cfg, s.err
}

// MustLoad works like Load but panics on failure.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}

// Parse fills v from the environment without caching. Any struct with env
// tags is accepted.
func Parse[T any](v *T) error {
	if v == nil {
		return ErrNilPointer
	}
	if err := env.Parse(v); err != nil {
		return errors.Join(ErrParsingConfig, err)
	}
	return nil
}

// LoadEnv reads the given .env files into the process environment without
// overriding variables that are already set. Earlier files win.
func LoadEnv(files ...string) error {
	if err := godotenv.Load(files...); err != nil {
		return errors.Join(ErrLoadingEnvFile, err)
	}
	return nil
}

// Reset drops the cached configuration so the next Load parses again.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	current = new(loadState)
}
