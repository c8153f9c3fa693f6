package otpkey

import "errors"

var (
	// Structural problems with a submitted OTP. These are returned as errors.
	ErrMalformedOtp = errors.New("malformed OTP")

	// Authentication failures. CheckOtp reports these as a plain false and
	// never returns them; they only appear in logs.
	ErrCrcMismatch      = errors.New("token CRC mismatch")
	ErrIdentityMismatch = errors.New("token private id mismatch")
	ErrReplayDetected   = errors.New("token replay detected")

	// Key configuration errors
	ErrInvalidFormat     = errors.New("invalid key configuration value")
	ErrDuplicatePublicID = errors.New("public id already in use")
	ErrConfigNotFound    = errors.New("key configuration not found")
	ErrNoDecrypter       = errors.New("no token decrypter configured")

	// Persistence errors
	ErrFileNotFound       = errors.New("key file not found")
	ErrFileAlreadyExists  = errors.New("key file already exists")
	ErrIO                 = errors.New("key file I/O failed")
	ErrCorruptConfig      = errors.New("corrupt key file")
	ErrNoStorageAvailable = errors.New("key directory not available")

	// Concurrency and throttling
	ErrLockFailed      = errors.New("failed to acquire key lock")
	ErrTooManyAttempts = errors.New("too many failed attempts")
)

// isRejection reports whether err is an authentication failure rather than
// a structural or operational error.
func isRejection(err error) bool {
	return errors.Is(err, ErrCrcMismatch) ||
		errors.Is(err, ErrIdentityMismatch) ||
		errors.Is(err, ErrReplayDetected)
}
