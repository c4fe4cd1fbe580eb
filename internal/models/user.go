// Package models contains the records persisted by the credential store.
package models

import "time"

// User is one registered principal. PasswordDigest is the output of a
// one-way hash; the plaintext password is never stored here.
type User struct {
	ID             string
	UserName       string
	PasswordDigest string
	SessionToken   string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Persisted reports whether the record has been written to storage.
// Repositories set CreatedAt on insert.
func (u *User) Persisted() bool {
	return !u.CreatedAt.IsZero()
}
