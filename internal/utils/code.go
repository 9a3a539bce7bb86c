package utils

import (
	"crypto/rand"
	"math/big"
)

const codeCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Affiliate code lengths. Generation starts short and shareable; if the short
// space keeps colliding the caller falls back to the long form.
const (
	CodeLength         = 8
	FallbackCodeLength = 12
	CodeMaxAttempts    = 5
)

// GenerateCode returns a random uppercase alphanumeric code of length n
func GenerateCode(n int) (string, error) {
	result := make([]byte, n)
	max := big.NewInt(int64(len(codeCharset)))
	for i := range result {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		result[i] = codeCharset[idx.Int64()]
	}
	return string(result), nil
}
