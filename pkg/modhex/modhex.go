package modhex

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// Alphabet lists the modhex symbols in hex digit order: Alphabet[i] encodes
// the hex digit with value i.
const Alphabet = "cbdefghijklnrtuv"

const hexDigits = "0123456789abcdef"

// Encode converts a hex string into modhex. Upper and lower case hex digits
// are accepted. The output has the same length as the input.
func Encode(hexStr string) (string, error) {
	if len(hexStr)%2 != 0 {
		return "", ErrOddLength
	}

	var b strings.Builder
	b.Grow(len(hexStr))
	for i := 0; i < len(hexStr); i++ {
		v, ok := hexValue(hexStr[i])
		if !ok {
			return "", errors.Join(ErrInvalidCharacter, fmt.Errorf("hex %q at position %d", hexStr[i], i))
		}
		b.WriteByte(Alphabet[v])
	}
	return b.String(), nil
}

// Decode converts a modhex string back into lower case hex.
func Decode(modhexStr string) (string, error) {
	if len(modhexStr)%2 != 0 {
		return "", ErrOddLength
	}

	var b strings.Builder
	b.Grow(len(modhexStr))
	for i := 0; i < len(modhexStr); i++ {
		v := strings.IndexByte(Alphabet, lower(modhexStr[i]))
		if v < 0 {
			return "", errors.Join(ErrInvalidCharacter, fmt.Errorf("modhex %q at position %d", modhexStr[i], i))
		}
		b.WriteByte(hexDigits[v])
	}
	return b.String(), nil
}

// EncodeBytes returns the modhex representation of raw bytes.
func EncodeBytes(src []byte) string {
	// hex.EncodeToString never yields odd length or foreign digits
	m, _ := Encode(hex.EncodeToString(src))
	return m
}

// DecodeBytes decodes a modhex string into raw bytes.
func DecodeBytes(modhexStr string) ([]byte, error) {
	h, err := Decode(modhexStr)
	if err != nil {
		return nil, err
	}
	return hex.DecodeString(h)
}

// IsValid reports whether s is a non-empty, even length modhex string.
func IsValid(s string) bool {
	if s == "" || len(s)%2 != 0 {
		return false
	}
	for i := 0; i < len(s); i++ {
		if strings.IndexByte(Alphabet, lower(s[i])) < 0 {
			return false
		}
	}
	return true
}

func hexValue(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}

func lower(c byte) byte {
	if c >= 'A' && c <= 'Z' {
		return c + ('a' - 'A')
	}
	return c
}
