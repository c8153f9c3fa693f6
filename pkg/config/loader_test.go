package config_test

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/ykauth/pkg/config"
)

func TestLoadDefaults(t *testing.T) {
	config.Reset()
	t.Cleanup(config.Reset)

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/ykauth/keys", cfg.ConfigDir)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.False(t, cfg.Redis.Enabled())
	assert.Equal(t, 10*time.Second, cfg.Redis.LockTTL)
	assert.Equal(t, 5*time.Second, cfg.Redis.LockWait)
	assert.Equal(t, "ykauth:rate:", cfg.Redis.RatePrefix)
	assert.False(t, cfg.Throttle.Enabled())
	assert.Equal(t, time.Minute, cfg.Throttle.Window)
}

func TestLoadFromEnvironment(t *testing.T) {
	config.Reset()
	t.Cleanup(config.Reset)

	t.Setenv("YKAUTH_CONFIG_DIR", "/tmp/keys")
	t.Setenv("YKAUTH_LOG_LEVEL", "debug")
	t.Setenv("YKAUTH_LOG_FORMAT", "json")
	t.Setenv("YKAUTH_REDIS_URL", "redis://localhost:6379/1")
	t.Setenv("YKAUTH_LOCK_TTL", "3s")
	t.Setenv("YKAUTH_MAX_FAILURES", "5")
	t.Setenv("YKAUTH_FAILURE_WINDOW", "30s")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/keys", cfg.ConfigDir)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.True(t, cfg.Redis.Enabled())
	assert.Equal(t, 3*time.Second, cfg.Redis.LockTTL)
	assert.Equal(t, 5, cfg.Throttle.MaxFailures)
	assert.Equal(t, 30*time.Second, cfg.Throttle.Window)
	assert.NotNil(t, cfg.Logger())

	// cached until Reset
	t.Setenv("YKAUTH_CONFIG_DIR", "/elsewhere")
	again, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/keys", again.ConfigDir)

	config.Reset()
	again, err = config.Load()
	require.NoError(t, err)
	assert.Equal(t, "/elsewhere", again.ConfigDir)
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want error
	}{
		{"bad duration", map[string]string{"YKAUTH_LOCK_TTL": "soon"}, config.ErrParsingConfig},
		{"bad number", map[string]string{"YKAUTH_MAX_FAILURES": "many"}, config.ErrParsingConfig},
		{"bad level", map[string]string{"YKAUTH_LOG_LEVEL": "loud"}, config.ErrInvalidConfig},
		{"bad format", map[string]string{"YKAUTH_LOG_FORMAT": "xml"}, config.ErrInvalidConfig},
		{"negative failures", map[string]string{"YKAUTH_MAX_FAILURES": "-1"}, config.ErrInvalidConfig},
		{"zero window", map[string]string{"YKAUTH_MAX_FAILURES": "3", "YKAUTH_FAILURE_WINDOW": "0s"}, config.ErrInvalidConfig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config.Reset()
			t.Cleanup(config.Reset)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := config.Load()
			assert.ErrorIs(t, err, tt.want)
			assert.Panics(t, func() { config.MustLoad() })
		})
	}
}

func TestParse(t *testing.T) {
	type sample struct {
		Dir    string `env:"YKAUTH_TEST_DIR"`
		Quoted string `env:"YKAUTH_TEST_QUOTED"`
	}

	assert.ErrorIs(t, config.Parse[sample](nil), config.ErrNilPointer)

	require.NoError(t, config.LoadEnv("testdata/.env.test"))
	t.Cleanup(func() {
		_ = os.Unsetenv("YKAUTH_TEST_DIR")
		_ = os.Unsetenv("YKAUTH_TEST_QUOTED")
	})

	var s sample
	require.NoError(t, config.Parse(&s))
	assert.Equal(t, "/srv/keys", s.Dir)
	assert.Equal(t, "quoted value", s.Quoted)

	assert.ErrorIs(t, config.LoadEnv("testdata/missing.env"), config.ErrLoadingEnvFile)
}
