package common

import (
	"crypto/rand"
	"encoding/base64"
)

// MakeRandURLSafeString returns size random bytes encoded as unpadded
// base64url, suitable for cookies and URLs.
func MakeRandURLSafeString(size int) string {
	return base64.RawURLEncoding.EncodeToString(GenerateRandByteArray(size))
}

// GenerateRandByteArray returns size bytes from crypto/rand.
// rand.Read never fails on supported platforms since Go 1.24.
func GenerateRandByteArray(size int) []byte {
	b := make([]byte, size)
	_, _ = rand.Read(b)
	return b
}

// WipeByteArray zeroes b in place. Nil is a no-op.
func WipeByteArray(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
