package credentials

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/credstore/internal/common"
	"github.com/dmitrijs2005/credstore/internal/models"
	"github.com/dmitrijs2005/credstore/internal/repositories/users"
)

// ResetSessionToken replaces u's session token with a new one and persists
// it with a single atomic write; the old token stops resolving as soon as
// the write lands. u is updated only after the write succeeds.
func (s *Store) ResetSessionToken(ctx context.Context, u *models.User) (string, error) {
	return s.resetSessionToken(ctx, s.repomanager.Users(s.db), u)
}

func (s *Store) resetSessionToken(ctx context.Context, repo users.Repository, u *models.User) (string, error) {
	token, err := s.freshToken(u.SessionToken)
	if err != nil {
		return "", err
	}

	updatedAt, err := repo.UpdateSessionToken(ctx, u.ID, token)
	if err != nil {
		return "", fmt.Errorf("error resetting session token: %w", err)
	}

	u.SessionToken = token
	u.UpdatedAt = updatedAt
	s.logger.Debug(ctx, "session token rotated", "user_id", u.ID)
	return token, nil
}

// freshToken draws a token that differs from current.
func (s *Store) freshToken(current string) (string, error) {
	for range maxTokenAttempts {
		if token := s.GenerateSessionToken(); token != "" && token != current {
			return token, nil
		}
	}
	return "", fmt.Errorf("%w: random source keeps returning the current session token", common.ErrorInternal)
}
