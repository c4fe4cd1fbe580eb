package credentials

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/dmitrijs2005/credstore/internal/common"
	"github.com/dmitrijs2005/credstore/internal/config"
	"github.com/dmitrijs2005/credstore/internal/cryptox"
	"github.com/dmitrijs2005/credstore/internal/logging"
	"github.com/dmitrijs2005/credstore/internal/models"
	"github.com/dmitrijs2005/credstore/internal/random"
	"github.com/dmitrijs2005/credstore/internal/repositories/repomanager"
	"github.com/dmitrijs2005/credstore/internal/repositories/users"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// countingHasher records how many hashes and comparisons were made.
type countingHasher struct {
	cryptox.Hasher
	hashes   atomic.Int32
	verifies atomic.Int32
}

func (h *countingHasher) Hash(plain string) (string, error) {
	h.hashes.Add(1)
	return h.Hasher.Hash(plain)
}

func (h *countingHasher) Verify(plain, digest string) bool {
	h.verifies.Add(1)
	return h.Hasher.Verify(plain, digest)
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.StorageBackend = config.BackendMemory
	cfg.BcryptCost = bcrypt.MinCost
	return cfg
}

func newMemoryStore(t *testing.T) (*Store, *countingHasher) {
	t.Helper()
	cfg := testConfig()
	h := &countingHasher{Hasher: cryptox.NewBcryptHasher(cfg.BcryptCost)}
	s := NewStore(nil, repomanager.NewMemoryRepositoryManager(), h,
		random.NewCryptoSource(cfg.SessionTokenBytes), cfg, logging.Discard())
	return s, h
}

func register(t *testing.T, s *Store, name, password string) *models.User {
	t.Helper()
	u, err := s.Register(context.Background(), name, password)
	require.NoError(t, err)
	require.True(t, u.Persisted())
	return u
}

func TestNewUser_HasSessionTokenBeforeSave(t *testing.T) {
	s, _ := newMemoryStore(t)

	u := s.NewUser("  alice ")
	assert.NotEmpty(t, u.SessionToken)
	assert.NotEmpty(t, u.ID)
	assert.Equal(t, "alice", u.UserName)
	assert.False(t, u.Persisted())

	found, err := s.FindBySessionToken(context.Background(), u.SessionToken)
	require.NoError(t, err)
	assert.Nil(t, found, "construction must not write")
}

func TestEnsureSessionToken_KeepsExisting(t *testing.T) {
	s, _ := newMemoryStore(t)

	u := &models.User{SessionToken: "given"}
	s.EnsureSessionToken(u)
	assert.Equal(t, "given", u.SessionToken)

	u = &models.User{}
	s.EnsureSessionToken(u)
	assert.NotEmpty(t, u.SessionToken)
}

func TestSetPasswordAndVerify(t *testing.T) {
	s, _ := newMemoryStore(t)
	u := s.NewUser("alice")

	require.NoError(t, s.SetPassword(u, "starwars"))
	assert.NotEmpty(t, u.PasswordDigest)
	assert.NotContains(t, u.PasswordDigest, "starwars")

	assert.True(t, s.VerifyPassword(u, "starwars"))
	assert.False(t, s.VerifyPassword(u, "startrek"))
	assert.False(t, s.VerifyPassword(u, ""))
	assert.False(t, s.VerifyPassword(&models.User{}, "starwars"))
	assert.False(t, s.VerifyPassword(nil, "starwars"))
}

func TestSetPassword_TooShort(t *testing.T) {
	s, _ := newMemoryStore(t)
	u := s.NewUser("alice")

	err := s.SetPassword(u, "short")
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrorValidation)

	var verr *common.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.True(t, verr.Has("password"))
	assert.Contains(t, err.Error(), "minimum is 6 characters")
	assert.Empty(t, u.PasswordDigest)

	// boundary: exactly the minimum is accepted, counted in characters
	require.NoError(t, s.SetPassword(u, "sixsix"))
	require.NoError(t, s.SetPassword(u, "пароль"))
}

func TestSetPassword_TooLongForBcrypt(t *testing.T) {
	s, _ := newMemoryStore(t)
	u := s.NewUser("alice")

	err := s.SetPassword(u, strings.Repeat("x", 73))
	var verr *common.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "password is too long", verr.Fields[0].String())
}

func TestFindByCredentials_Scenario(t *testing.T) {
	ctx := context.Background()
	s, _ := newMemoryStore(t)
	alice := register(t, s, "alice", "starwars")

	got, err := s.FindByCredentials(ctx, "alice", "starwars")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, alice.ID, got.ID)

	got, err = s.FindByCredentials(ctx, "alice", "startrek")
	require.NoError(t, err)
	assert.Nil(t, got)

	assert.True(t, s.VerifyPassword(alice, "starwars"))
	assert.False(t, s.VerifyPassword(alice, "startrek"))
}

func TestFindByCredentials_UnknownUserLooksLikeWrongPassword(t *testing.T) {
	ctx := context.Background()
	s, h := newMemoryStore(t)
	register(t, s, "alice", "starwars")

	before := h.verifies.Load()
	got, err := s.FindByCredentials(ctx, "mallory", "starwars")
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.Equal(t, before+1, h.verifies.Load(), "a comparison must run for unknown users too")

	// case-sensitive usernames
	got, err = s.FindByCredentials(ctx, "Alice", "starwars")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestFindByCredentials_UnknownUserDoesNotHash(t *testing.T) {
	s, h := newMemoryStore(t)
	require.NotEmpty(t, s.dummyDigest)
	assert.Equal(t, int32(1), h.hashes.Load(), "dummy digest is computed by NewStore")

	got, err := s.FindByCredentials(context.Background(), "mallory", "starwars")
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.Equal(t, int32(1), h.hashes.Load(), "an unknown username must cost one Verify only")
}

func TestGenerateSessionToken_NoCollisions(t *testing.T) {
	s, _ := newMemoryStore(t)

	const n = 10000
	seen := make(map[string]struct{}, n)
	prev := ""
	for i := 0; i < n; i++ {
		tok := s.GenerateSessionToken()
		require.NotEmpty(t, tok)
		require.NotEqual(t, prev, tok)
		_, dup := seen[tok]
		require.False(t, dup, "collision after %d tokens", i)
		seen[tok] = struct{}{}
		prev = tok
	}
}

func TestResetSessionToken_ChangesAndPersists(t *testing.T) {
	ctx := context.Background()
	s, _ := newMemoryStore(t)
	u := register(t, s, "alice", "starwars")
	old := u.SessionToken

	tok, err := s.ResetSessionToken(ctx, u)
	require.NoError(t, err)
	assert.NotEqual(t, old, tok)
	assert.Equal(t, tok, u.SessionToken)

	fresh, err := s.repomanager.Users(nil).FindOneBy(ctx, users.FieldID, u.ID)
	require.NoError(t, err)
	assert.Equal(t, tok, fresh.SessionToken)

	stale, err := s.FindBySessionToken(ctx, old)
	require.NoError(t, err)
	assert.Nil(t, stale)

	current, err := s.FindBySessionToken(ctx, tok)
	require.NoError(t, err)
	require.NotNil(t, current)
	assert.Equal(t, u.ID, current.ID)
}

func TestResetSessionToken_RedrawsWhenSourceRepeats(t *testing.T) {
	ctx := context.Background()
	s, _ := newMemoryStore(t)
	u := register(t, s, "alice", "starwars")
	old := u.SessionToken

	draws := []string{old, old, "brand-new"}
	s.tokens = random.SourceFunc(func() string {
		next := draws[0]
		draws = draws[1:]
		return next
	})

	tok, err := s.ResetSessionToken(ctx, u)
	require.NoError(t, err)
	assert.Equal(t, "brand-new", tok)
}

func TestResetSessionToken_StuckSource(t *testing.T) {
	ctx := context.Background()
	s, _ := newMemoryStore(t)
	u := register(t, s, "alice", "starwars")
	old := u.SessionToken

	s.tokens = random.SourceFunc(func() string { return old })

	_, err := s.ResetSessionToken(ctx, u)
	assert.ErrorIs(t, err, common.ErrorInternal)
	assert.Equal(t, old, u.SessionToken)
}

func TestResetSessionToken_UnknownUser(t *testing.T) {
	s, _ := newMemoryStore(t)
	u := s.NewUser("ghost")
	old := u.SessionToken

	_, err := s.ResetSessionToken(context.Background(), u)
	assert.ErrorIs(t, err, common.ErrorNotFound)
	assert.Equal(t, old, u.SessionToken, "user must not change when the write fails")
}

func TestUniqueness(t *testing.T) {
	ctx := context.Background()
	s, _ := newMemoryStore(t)
	alice := register(t, s, "alice", "starwars")

	t.Run("username", func(t *testing.T) {
		_, err := s.Register(ctx, "alice", "another1")
		var ue *common.UniquenessError
		require.True(t, errors.As(err, &ue), "got %v", err)
		assert.Equal(t, "username", ue.Field)
		assert.Equal(t, "username has already been taken", ue.Error())
	})

	t.Run("session token", func(t *testing.T) {
		bob := s.NewUser("bob")
		require.NoError(t, s.SetPassword(bob, "password"))
		bob.SessionToken = alice.SessionToken

		err := s.Save(ctx, bob)
		var ue *common.UniquenessError
		require.True(t, errors.As(err, &ue), "got %v", err)
		assert.Equal(t, "session_token", ue.Field)
		assert.False(t, bob.Persisted())
	})

	t.Run("case differs", func(t *testing.T) {
		u := register(t, s, "Alice", "starwars")
		assert.NotEqual(t, alice.ID, u.ID)
	})
}

func TestValidate_ListsAllViolations(t *testing.T) {
	s, _ := newMemoryStore(t)

	err := s.Validate(&models.User{UserName: "   "})
	var verr *common.ValidationError
	require.True(t, errors.As(err, &verr))

	fields := make([]string, 0, len(verr.Fields))
	for _, f := range verr.Fields {
		fields = append(fields, f.Field)
	}
	assert.Equal(t, []string{"username", "password_digest", "session_token"}, fields)
	assert.Equal(t,
		"validation failed: username can't be blank, password_digest can't be blank, session_token can't be blank",
		err.Error())

	u := s.NewUser("alice")
	require.NoError(t, s.SetPassword(u, "starwars"))
	assert.NoError(t, s.Validate(u))
}

func TestRegister_ReportsPasswordWithOtherFields(t *testing.T) {
	s, _ := newMemoryStore(t)

	_, err := s.Register(context.Background(), "", "short")
	var verr *common.ValidationError
	require.True(t, errors.As(err, &verr))
	require.Len(t, verr.Fields, 2)
	assert.Equal(t, "username", verr.Fields[0].Field)
	assert.Equal(t, "password", verr.Fields[1].Field)
}

func TestSave_UpdatesExistingRecord(t *testing.T) {
	ctx := context.Background()
	s, _ := newMemoryStore(t)
	u := register(t, s, "alice", "starwars")

	u.UserName = "alicia"
	require.NoError(t, s.Save(ctx, u))

	got, err := s.FindByCredentials(ctx, "alicia", "starwars")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, u.ID, got.ID)

	u.PasswordDigest = ""
	assert.ErrorIs(t, s.Save(ctx, u), common.ErrorValidation)
}

func TestSave_TrimsUserName(t *testing.T) {
	ctx := context.Background()
	s, _ := newMemoryStore(t)
	u := register(t, s, "bob", "starwars")

	u.UserName = " alice "
	require.NoError(t, s.Save(ctx, u))
	assert.Equal(t, "alice", u.UserName)

	got, err := s.FindByCredentials(ctx, " alice ", "starwars")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, u.ID, got.ID)

	_, err = s.Register(ctx, "alice", "another1")
	assert.ErrorIs(t, err, common.ErrorAlreadyExists)

	fresh := s.NewUser("carol")
	require.NoError(t, s.SetPassword(fresh, "starwars"))
	fresh.UserName = "\talice\n"
	assert.ErrorIs(t, s.Save(ctx, fresh), common.ErrorAlreadyExists)
}

func TestLogInAndLogOut(t *testing.T) {
	ctx := context.Background()
	s, _ := newMemoryStore(t)
	u := register(t, s, "alice", "starwars")
	registered := u.SessionToken

	_, err := s.LogIn(ctx, "alice", "startrek")
	assert.ErrorIs(t, err, common.ErrorUnauthorized)
	_, err = s.LogIn(ctx, "nobody", "starwars")
	assert.ErrorIs(t, err, common.ErrorUnauthorized)

	still, err := s.FindBySessionToken(ctx, registered)
	require.NoError(t, err)
	require.NotNil(t, still, "failed logins must not rotate the token")

	session, err := s.LogIn(ctx, " alice ", "starwars")
	require.NoError(t, err)
	assert.NotEqual(t, registered, session.SessionToken)

	me, err := s.FindBySessionToken(ctx, session.SessionToken)
	require.NoError(t, err)
	require.NotNil(t, me)
	assert.Equal(t, u.ID, me.ID)

	loggedIn := session.SessionToken
	require.NoError(t, s.LogOut(ctx, session))

	gone, err := s.FindBySessionToken(ctx, loggedIn)
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestFindBySessionToken_Empty(t *testing.T) {
	s, _ := newMemoryStore(t)
	u, err := s.FindBySessionToken(context.Background(), "")
	assert.NoError(t, err)
	assert.Nil(t, u)
}

func TestChangePassword(t *testing.T) {
	ctx := context.Background()
	s, _ := newMemoryStore(t)
	u := register(t, s, "alice", "starwars")
	oldToken := u.SessionToken

	t.Run("too short leaves user untouched", func(t *testing.T) {
		digest := u.PasswordDigest
		err := s.ChangePassword(ctx, u, "tiny")
		assert.ErrorIs(t, err, common.ErrorValidation)
		assert.Equal(t, digest, u.PasswordDigest)
		assert.Equal(t, oldToken, u.SessionToken)
	})

	t.Run("rotates token", func(t *testing.T) {
		require.NoError(t, s.ChangePassword(ctx, u, "startrek"))
		assert.NotEqual(t, oldToken, u.SessionToken)

		got, err := s.FindByCredentials(ctx, "alice", "starwars")
		require.NoError(t, err)
		assert.Nil(t, got)

		got, err = s.FindByCredentials(ctx, "alice", "startrek")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, u.SessionToken, got.SessionToken)

		stale, err := s.FindBySessionToken(ctx, oldToken)
		require.NoError(t, err)
		assert.Nil(t, stale)
	})

	t.Run("unsaved user", func(t *testing.T) {
		err := s.ChangePassword(ctx, s.NewUser("bob"), "password")
		assert.ErrorIs(t, err, common.ErrorNotFound)
	})
}

func TestChangePassword_KeepsConcurrentRename(t *testing.T) {
	ctx := context.Background()
	s, _ := newMemoryStore(t)
	u := register(t, s, "alice", "starwars")
	stale := *u

	u.UserName = "alicia"
	require.NoError(t, s.Save(ctx, u))

	require.NoError(t, s.ChangePassword(ctx, &stale, "startrek"))

	stored, err := s.repomanager.Users(nil).FindOneBy(ctx, users.FieldID, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "alicia", stored.UserName, "rename must survive a password change")
	assert.Equal(t, stale.SessionToken, stored.SessionToken)

	got, err := s.FindByCredentials(ctx, "alicia", "startrek")
	require.NoError(t, err)
	assert.NotNil(t, got)
}

func TestArgon2Store(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()
	h := cryptox.NewArgon2Hasher(cryptox.Argon2Params{Memory: 8 * 1024, Time: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32})
	s := NewStore(nil, repomanager.NewMemoryRepositoryManager(), h,
		random.NewCryptoSource(cfg.SessionTokenBytes), cfg, logging.Discard())

	u := register(t, s, "alice", "starwars")
	assert.True(t, strings.HasPrefix(u.PasswordDigest, "$argon2id$"))

	got, err := s.FindByCredentials(ctx, "alice", "starwars")
	require.NoError(t, err)
	assert.NotNil(t, got)
}
