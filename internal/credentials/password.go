package credentials

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/dmitrijs2005/credstore/internal/common"
	"github.com/dmitrijs2005/credstore/internal/cryptox"
	"github.com/dmitrijs2005/credstore/internal/models"
	"github.com/dmitrijs2005/credstore/internal/repositories/users"
)

// SetPassword hashes plaintext into u.PasswordDigest. Passwords shorter than
// the configured minimum (counted in characters) are rejected with a
// *common.ValidationError on "password" and u is left untouched.
func (s *Store) SetPassword(u *models.User, plaintext string) error {
	if utf8.RuneCountInString(plaintext) < s.passwordMinLength {
		return common.NewValidationError("password",
			fmt.Sprintf("is too short (minimum is %d characters)", s.passwordMinLength))
	}

	digest, err := s.hasher.Hash(plaintext)
	if err != nil {
		if errors.Is(err, cryptox.ErrPasswordTooLong) {
			return common.NewValidationError("password", "is too long")
		}
		return fmt.Errorf("error hashing password: %w", err)
	}

	u.PasswordDigest = digest
	return nil
}

// VerifyPassword reports whether plaintext matches u's stored digest.
func (s *Store) VerifyPassword(u *models.User, plaintext string) bool {
	if u == nil || u.PasswordDigest == "" {
		return false
	}
	return s.hasher.Verify(plaintext, u.PasswordDigest)
}

// FindByCredentials returns the user named userName if plaintext is its
// password. An unknown name and a wrong password both yield (nil, nil);
// an error means storage failed.
func (s *Store) FindByCredentials(ctx context.Context, userName, plaintext string) (*models.User, error) {
	return s.findByCredentials(ctx, s.repomanager.Users(s.db), userName, plaintext)
}

func (s *Store) findByCredentials(ctx context.Context, repo users.Repository, userName, plaintext string) (*models.User, error) {
	u, err := repo.FindOneBy(ctx, users.FieldUserName, strings.TrimSpace(userName))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			// keep the unknown-user path as slow as a wrong password
			s.hasher.Verify(plaintext, s.dummyDigest)
			return nil, nil
		}
		return nil, fmt.Errorf("error searching user: %w", err)
	}

	if !s.VerifyPassword(u, plaintext) {
		return nil, nil
	}
	return u, nil
}

// ChangePassword sets a new password on a persisted user and rotates its
// session token in the same write, so every other session ends. Only the
// digest and token columns are written; u changes only on success.
func (s *Store) ChangePassword(ctx context.Context, u *models.User, plaintext string) error {
	if !u.Persisted() {
		return common.ErrorNotFound
	}

	candidate := *u
	if err := s.SetPassword(&candidate, plaintext); err != nil {
		return err
	}

	token, err := s.freshToken(u.SessionToken)
	if err != nil {
		return err
	}

	updatedAt, err := s.repomanager.Users(s.db).UpdatePassword(ctx, u.ID, candidate.PasswordDigest, token)
	if err != nil {
		return fmt.Errorf("error changing password: %w", err)
	}

	u.PasswordDigest = candidate.PasswordDigest
	u.SessionToken = token
	u.UpdatedAt = updatedAt
	s.logger.Info(ctx, "password changed", "user_id", u.ID)
	return nil
}
