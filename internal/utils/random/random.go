package random

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// Charsets for different random string types.
const (
	CharsetAlphanumeric  = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	CharsetUpperAlphaNum = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	CharsetDigits        = "0123456789"
)

// String generates a random string from the given charset.
func String(length int, charset string) (string, error) {
	if length <= 0 {
		return "", nil
	}
	if charset == "" {
		charset = CharsetAlphanumeric
	}

	result := make([]byte, length)
	charsetLen := big.NewInt(int64(len(charset)))

	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, charsetLen)
		if err != nil {
			return "", fmt.Errorf("generate random index: %w", err)
		}
		result[i] = charset[n.Int64()]
	}
	return string(result), nil
}

// UpperAlphaNum generates a random uppercase alphanumeric string.
// Useful for order numbers, tracking references, etc.
func UpperAlphaNum(length int) string {
	s, _ := String(length, CharsetUpperAlphaNum)
	return s
}

// Digits generates a random numeric string of the given length.
func Digits(length int) string {
	s, _ := String(length, CharsetDigits)
	return s
}

// Int returns a uniform random integer in [0, max).
func Int(max int64) int64 {
	if max <= 0 {
		return 0
	}
	n, err := rand.Int(rand.Reader, big.NewInt(max))
	if err != nil {
		return 0
	}
	return n.Int64()
}
