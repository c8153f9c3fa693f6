package yubitoken

import "errors"

// ErrMalformedToken is returned when a buffer can not hold a token.
var ErrMalformedToken = errors.New("malformed token")
