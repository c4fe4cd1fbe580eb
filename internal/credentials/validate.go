package credentials

import (
	"strings"

	"github.com/dmitrijs2005/credstore/internal/common"
	"github.com/dmitrijs2005/credstore/internal/models"
)

const msgBlank = "can't be blank"

// Validate checks the presence rules on u and returns a
// *common.ValidationError listing every violated field, in the order
// username, password_digest, session_token. Uniqueness is not checked here;
// storage enforces it when the record is written.
func (s *Store) Validate(u *models.User) error {
	if verr := s.violations(u, nil); !verr.Empty() {
		return verr
	}
	return nil
}

// violations collects presence failures on u and appends the ones already
// reported for the plaintext password. A rejected password explains the
// missing digest, so the digest is not reported twice.
func (s *Store) violations(u *models.User, pwErr *common.ValidationError) *common.ValidationError {
	verr := &common.ValidationError{}

	if strings.TrimSpace(u.UserName) == "" {
		verr.Add("username", msgBlank)
	}
	if u.PasswordDigest == "" && !pwErr.Has("password") {
		verr.Add("password_digest", msgBlank)
	}
	if u.SessionToken == "" {
		verr.Add("session_token", msgBlank)
	}
	if pwErr != nil {
		verr.Fields = append(verr.Fields, pwErr.Fields...)
	}
	return verr
}
