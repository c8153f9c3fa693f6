// Package modhex converts between hexadecimal and the modhex alphabet used by
// Yubikey-compatible tokens.
//
// Modhex replaces the sixteen hex digits with the letters "cbdefghijklnrtuv".
// Those letters sit on the same physical keys across most keyboard layouts, so
// a token that "types" its OTP produces the same characters regardless of the
// host keyboard configuration. The encoding is a one-to-one substitution: every
// hex digit becomes exactly one modhex character.
//
// # Usage
//
//	m, err := modhex.Encode("0123456789abcdef")
//	// m == "cbdefghijklnrtuv"
//
//	h, err := modhex.Decode("vvccbbdd")
//	// h == "ff001122"
//
//	raw, err := modhex.DecodeBytes(otp[len(otp)-32:])
//
// # Error Handling
//
// Every decode or encode failure wraps ErrInvalidCharacter. Odd length input is
// reported with ErrOddLength, which also matches ErrInvalidCharacter when
// inspected with errors.Is.
package modhex
