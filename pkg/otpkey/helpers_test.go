package otpkey_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/ykauth/pkg/otpcipher"
	"github.com/dmitrymomot/ykauth/pkg/otpkey"
	"github.com/dmitrymomot/ykauth/pkg/softkey"
)

const (
	testPublicID  = "c0ffee"
	testPrivateID = "010203040506"
	testSecret    = "000102030405060708090a0b0c0d0e0f"
)

func newManager(t *testing.T, dir string, opts ...otpkey.Option) *otpkey.Manager {
	t.Helper()
	if dir == "" {
		dir = t.TempDir()
	}
	opts = append([]otpkey.Option{otpkey.WithDecrypter(otpcipher.AES{})}, opts...)
	m, err := otpkey.NewManager(dir, opts...)
	require.NoError(t, err)
	return m
}

// newFixture stores the reference key: counter 33, use 7, random 44.
func newFixture(t *testing.T, m *otpkey.Manager) *otpkey.KeyConfig {
	t.Helper()
	cfg, err := m.GetOrCreateConfig(testPublicID)
	require.NoError(t, err)
	require.NoError(t, cfg.SetPrivateID(testPrivateID))
	require.NoError(t, cfg.SetSecretKey(testSecret))
	require.NoError(t, cfg.SetSysUser("alice"))
	cfg.SetDescription("desk key")
	cfg.SetCounter(33)
	cfg.SetUseCounter(7)
	cfg.SetRandom(44)
	cfg.SetTimestamp(1000)
	cfg.ComputeCrc()
	require.NoError(t, cfg.Save())
	return cfg
}

func newDevice(t *testing.T, cfg *otpkey.KeyConfig, opts ...softkey.Option) *softkey.Device {
	t.Helper()
	dev, err := softkey.FromConfig(cfg, opts...)
	require.NoError(t, err)
	return dev
}

func nextOTP(t *testing.T, dev *softkey.Device) string {
	t.Helper()
	otp, err := dev.NextOTP()
	require.NoError(t, err)
	return otp
}
