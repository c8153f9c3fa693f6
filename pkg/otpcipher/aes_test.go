package otpcipher_test

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/ykauth/pkg/otpcipher"
)

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	require.NoError(t, err)
	return b
}

func TestAESKnownAnswer(t *testing.T) {
	t.Parallel()
	// FIPS-197 appendix C.1
	key := mustHex(t, "000102030405060708090a0b0c0d0e0f")
	plain := mustHex(t, "00112233445566778899aabbccddeeff")
	cipher := mustHex(t, "69c4e0d86a7b0430d8cdb78070b4c55a")

	var c otpcipher.AES
	got, err := c.Encrypt(plain, key)
	require.NoError(t, err)
	assert.Equal(t, cipher, got)

	back, err := c.Decrypt(cipher, key)
	require.NoError(t, err)
	assert.Equal(t, plain, back)
}

func TestAESInvalidInput(t *testing.T) {
	t.Parallel()
	var c otpcipher.AES

	_, err := c.Decrypt(make([]byte, 16), make([]byte, 32))
	assert.ErrorIs(t, err, otpcipher.ErrInvalidKeySize)

	_, err = c.Decrypt(make([]byte, 15), make([]byte, 16))
	assert.ErrorIs(t, err, otpcipher.ErrInvalidBlockSize)

	_, err = c.Encrypt(make([]byte, 32), make([]byte, 16))
	assert.ErrorIs(t, err, otpcipher.ErrInvalidBlockSize)
}

func TestGenerateKey(t *testing.T) {
	t.Parallel()
	k1, err := otpcipher.GenerateKey()
	require.NoError(t, err)
	k2, err := otpcipher.GenerateKey()
	require.NoError(t, err)
	assert.Len(t, k1, otpcipher.KeySize)
	assert.NotEqual(t, k1, k2)
}
