package softkey

import "errors"

var (
	ErrInvalidIdentity = errors.New("invalid device identity")
	ErrInvalidSecret   = errors.New("invalid device secret")
	ErrEncryptFailed   = errors.New("failed to encrypt token")
)
