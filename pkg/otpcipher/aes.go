package otpcipher

import (
	"crypto/aes"
	"crypto/rand"
	"errors"
	"fmt"
)

const (
	KeySize   = 16 // AES-128 key size in bytes
	BlockSize = aes.BlockSize
)

// AES implements the token decrypt contract with AES-128 on a single block.
// The zero value is ready to use.
type AES struct{}

// Decrypt recovers the plaintext token from one ciphertext block.
func (AES) Decrypt(ciphertext, key []byte) ([]byte, error) {
	return process(ciphertext, key, false)
}

// Encrypt produces the ciphertext block for a plaintext token.
func (AES) Encrypt(plaintext, key []byte) ([]byte, error) {
	return process(plaintext, key, true)
}

func process(src, key []byte, encrypt bool) ([]byte, error) {
	if len(key) != KeySize {
		return nil, errors.Join(ErrInvalidKeySize, fmt.Errorf("got %d bytes", len(key)))
	}
	if len(src) != BlockSize {
		return nil, errors.Join(ErrInvalidBlockSize, fmt.Errorf("got %d bytes", len(src)))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, errors.Join(ErrInvalidKeySize, err)
	}

	dst := make([]byte, BlockSize)
	if encrypt {
		block.Encrypt(dst, src)
	} else {
		block.Decrypt(dst, src)
	}
	return dst, nil
}

// GenerateKey returns a random AES-128 key suitable as a token secret.
func GenerateKey() ([]byte, error) {
	key := make([]byte, KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, errors.Join(ErrFailedToGenerate, err)
	}
	return key, nil
}
