// Package cryptox hashes and verifies passwords. Digests are self-describing
// strings (bcrypt's $2a$ form or PHC-style argon2id), so the parameters used
// at hash time travel with the digest.
package cryptox

import (
	"errors"
	"fmt"

	"github.com/dmitrijs2005/credstore/internal/config"
)

// ErrPasswordTooLong is returned by Hash when the hasher cannot accept the
// plaintext without silently truncating it.
var ErrPasswordTooLong = errors.New("password too long")

// Hasher is a one-way, internally salted password hash.
type Hasher interface {
	Hash(plain string) (string, error)
	// Verify reports whether plain matches digest. The comparison is
	// constant-time; an empty or malformed digest never matches.
	Verify(plain, digest string) bool
}

// NewHasher returns the hasher selected by cfg.PasswordHasher.
func NewHasher(cfg *config.Config) (Hasher, error) {
	switch cfg.PasswordHasher {
	case config.HasherBcrypt:
		return NewBcryptHasher(cfg.BcryptCost), nil
	case config.HasherArgon2id:
		return NewArgon2Hasher(DefaultArgon2Params()), nil
	default:
		return nil, fmt.Errorf("unknown password hasher %q", cfg.PasswordHasher)
	}
}
