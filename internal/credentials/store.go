// Package credentials implements the credential store: it builds User
// records, hashes and verifies passwords, and issues and rotates session
// tokens. Durable storage and uniqueness are delegated to the repositories
// vended by repomanager; the store itself holds no per-user state and takes
// no locks.
package credentials

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/credstore/internal/common"
	"github.com/dmitrijs2005/credstore/internal/config"
	"github.com/dmitrijs2005/credstore/internal/cryptox"
	"github.com/dmitrijs2005/credstore/internal/dbx"
	"github.com/dmitrijs2005/credstore/internal/logging"
	"github.com/dmitrijs2005/credstore/internal/models"
	"github.com/dmitrijs2005/credstore/internal/random"
	"github.com/dmitrijs2005/credstore/internal/repositories/repomanager"
	"github.com/dmitrijs2005/credstore/internal/repositories/users"
	"github.com/google/uuid"
)

// maxTokenAttempts bounds how many draws ResetSessionToken makes while
// looking for a token different from the current one.
const maxTokenAttempts = 3

type Store struct {
	db                *sql.DB
	repomanager       repomanager.RepositoryManager
	hasher            cryptox.Hasher
	tokens            random.Source
	passwordMinLength int
	logger            logging.Logger

	// digest of a random secret, compared against on unknown usernames
	dummyDigest string
}

// NewStore wires a Store. db may be nil when rm does not need a database
// handle (the memory backend).
func NewStore(db *sql.DB, rm repomanager.RepositoryManager, hasher cryptox.Hasher, tokens random.Source, cfg *config.Config, logger logging.Logger) *Store {
	s := &Store{
		db:                db,
		repomanager:       rm,
		hasher:            hasher,
		tokens:            tokens,
		passwordMinLength: cfg.PasswordMinLength,
		logger:            logger.With("component", "credentials"),
	}

	digest, err := hasher.Hash(common.MakeRandURLSafeString(16))
	if err != nil {
		s.logger.Warn(context.Background(), "dummy digest unavailable", "error", err)
	}
	s.dummyDigest = digest
	return s
}

// NewUser returns an unsaved User with an ID and a session token already
// assigned. Surrounding whitespace is trimmed from userName.
func (s *Store) NewUser(userName string) *models.User {
	u := &models.User{
		ID:       uuid.NewString(),
		UserName: strings.TrimSpace(userName),
	}
	s.EnsureSessionToken(u)
	return u
}

// EnsureSessionToken assigns a fresh token to u only if it has none.
func (s *Store) EnsureSessionToken(u *models.User) {
	if u.SessionToken == "" {
		u.SessionToken = s.GenerateSessionToken()
	}
}

// GenerateSessionToken draws a new token from the configured random source.
func (s *Store) GenerateSessionToken() string {
	return s.tokens.Next()
}

// Save trims the username, validates u and writes it: an insert for a new
// record, otherwise an update of username, digest and token. Unique
// violations come back as *common.UniquenessError.
func (s *Store) Save(ctx context.Context, u *models.User) error {
	return s.save(ctx, s.repomanager.Users(s.db), u)
}

func (s *Store) save(ctx context.Context, repo users.Repository, u *models.User) error {
	u.UserName = strings.TrimSpace(u.UserName)
	if err := s.Validate(u); err != nil {
		return err
	}

	if u.Persisted() {
		if _, err := repo.Update(ctx, u); err != nil {
			return fmt.Errorf("error updating user: %w", err)
		}
		return nil
	}

	if _, err := repo.Create(ctx, u); err != nil {
		return fmt.Errorf("error creating user: %w", err)
	}
	return nil
}

// Register builds a user, sets its password and saves it. A validation
// failure reports every violated field at once, the password included.
func (s *Store) Register(ctx context.Context, userName, plaintext string) (*models.User, error) {
	u := s.NewUser(userName)

	var pwErr *common.ValidationError
	if err := s.SetPassword(u, plaintext); err != nil && !errors.As(err, &pwErr) {
		return nil, err
	}

	if verr := s.violations(u, pwErr); !verr.Empty() {
		s.logger.Debug(ctx, "registration rejected", "error", verr.Error())
		return nil, verr
	}

	if _, err := s.repomanager.Users(s.db).Create(ctx, u); err != nil {
		return nil, fmt.Errorf("error creating user: %w", err)
	}

	s.logger.Info(ctx, "user registered", "user_id", u.ID, "username", u.UserName)
	return u, nil
}

// FindBySessionToken resolves the user a session token belongs to. An empty
// or unknown token yields (nil, nil).
func (s *Store) FindBySessionToken(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, nil
	}

	u, err := s.repomanager.Users(s.db).FindOneBy(ctx, users.FieldSessionToken, token)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("error searching session token: %w", err)
	}
	return u, nil
}

// LogIn checks the credentials and rotates the user's session token in one
// unit of work. A miss of either kind returns common.ErrorUnauthorized.
func (s *Store) LogIn(ctx context.Context, userName, plaintext string) (*models.User, error) {
	var user *models.User

	err := s.repomanager.WithTx(ctx, s.db, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Users(tx)

		u, err := s.findByCredentials(ctx, repo, userName, plaintext)
		if err != nil {
			return err
		}
		if u == nil {
			return common.ErrorUnauthorized
		}

		if _, err := s.resetSessionToken(ctx, repo, u); err != nil {
			return err
		}
		user = u
		return nil
	})
	if err != nil {
		if errors.Is(err, common.ErrorUnauthorized) {
			s.logger.Info(ctx, "login failed", "username", strings.TrimSpace(userName))
		}
		return nil, err
	}

	s.logger.Info(ctx, "user logged in", "user_id", user.ID)
	return user, nil
}

// LogOut invalidates the user's current session token by rotating it.
func (s *Store) LogOut(ctx context.Context, u *models.User) error {
	if _, err := s.ResetSessionToken(ctx, u); err != nil {
		return err
	}
	s.logger.Info(ctx, "user logged out", "user_id", u.ID)
	return nil
}
