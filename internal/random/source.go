// Package random provides the secure random source session tokens are drawn from.
package random

import "github.com/dmitrijs2005/credstore/internal/common"

// Source yields unpredictable, effectively unique strings.
type Source interface {
	Next() string
}

// CryptoSource draws size bytes from crypto/rand per call and encodes them
// as unpadded base64url.
type CryptoSource struct {
	size int
}

func NewCryptoSource(size int) *CryptoSource {
	return &CryptoSource{size: size}
}

func (s *CryptoSource) Next() string {
	return common.MakeRandURLSafeString(s.size)
}

// SourceFunc adapts a plain function to Source.
type SourceFunc func() string

func (f SourceFunc) Next() string { return f() }
