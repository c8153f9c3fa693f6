package otpcipher

import "errors"

var (
	ErrInvalidKeySize   = errors.New("invalid AES-128 key size")
	ErrInvalidBlockSize = errors.New("invalid block size")
	ErrFailedToGenerate = errors.New("failed to generate random key")
)
