// Package users is the persistence layer for User records. Implementations
// enforce uniqueness of username and session token atomically at write time
// and report violations as *common.UniquenessError.
package users

import (
	"context"
	"time"

	"github.com/dmitrijs2005/credstore/internal/models"
)

// Field names a column FindOneBy may look users up by.
type Field string

const (
	FieldID           Field = "id"
	FieldUserName     Field = "username"
	FieldSessionToken Field = "session_token"
)

// Repository defines the storage operations the credential store needs.
type Repository interface {
	// FindOneBy returns the single user whose field equals value, or
	// common.ErrorNotFound. Unknown fields yield common.ErrorInvalidField.
	FindOneBy(ctx context.Context, field Field, value string) (*models.User, error)

	// Create inserts u and fills CreatedAt/UpdatedAt.
	Create(ctx context.Context, u *models.User) (*models.User, error)

	// Update overwrites username, digest and session token of an existing
	// user in one statement.
	Update(ctx context.Context, u *models.User) (*models.User, error)

	// UpdateSessionToken replaces the stored token of user id in one atomic
	// write and returns the new UpdatedAt.
	UpdateSessionToken(ctx context.Context, id string, token string) (time.Time, error)

	// UpdatePassword replaces digest and session token of user id in one
	// atomic write, leaving other columns alone, and returns the new UpdatedAt.
	UpdatePassword(ctx context.Context, id string, digest string, token string) (time.Time, error)

	// Delete removes user id; common.ErrorNotFound if absent.
	Delete(ctx context.Context, id string) error
}
