package modhex

import "errors"

var (
	// ErrInvalidCharacter is returned when the input contains a rune outside
	// of the expected alphabet.
	ErrInvalidCharacter = errors.New("invalid character")

	// ErrOddLength is returned when the input can not represent whole bytes.
	ErrOddLength = errors.Join(ErrInvalidCharacter, errors.New("odd length input"))
)
