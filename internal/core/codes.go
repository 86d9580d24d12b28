package core

import (
	"crypto/rand"
	"math/big"
)

// Room codes are numeric only so they are easy to read out loud and type on
// a phone keyboard.
const codeAlphabet = "0123456789"

// DefaultCodeLength is the room code length used when the configured value
// is out of range.
const DefaultCodeLength = 6

// GenerateCode returns a random numeric room code of the given length.
func GenerateCode(length int) (string, error) {
	if length <= 0 {
		length = DefaultCodeLength
	}
	code := make([]byte, length)
	for i := range code {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(codeAlphabet))))
		if err != nil {
			return "", err
		}
		code[i] = codeAlphabet[n.Int64()]
	}
	return string(code), nil
}
