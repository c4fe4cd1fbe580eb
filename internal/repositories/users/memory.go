package users

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/credstore/internal/common"
	"github.com/dmitrijs2005/credstore/internal/models"
)

// MemoryRepository keeps users in process memory. Each write checks both
// unique indexes and applies the change under one lock, which gives the same
// atomicity the database constraint does. Usernames compare case-sensitively.
type MemoryRepository struct {
	mu      sync.Mutex
	byID    map[string]models.User
	byName  map[string]string
	byToken map[string]string
	now     func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byID:    make(map[string]models.User),
		byName:  make(map[string]string),
		byToken: make(map[string]string),
		now:     time.Now,
	}
}

func (r *MemoryRepository) FindOneBy(ctx context.Context, field Field, value string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var id string
	switch field {
	case FieldID:
		id = value
	case FieldUserName:
		id = r.byName[value]
	case FieldSessionToken:
		id = r.byToken[value]
	default:
		return nil, fmt.Errorf("%w: %q", common.ErrorInvalidField, field)
	}

	u, ok := r.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &u, nil
}

func (r *MemoryRepository) Create(ctx context.Context, u *models.User) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[u.ID]; exists {
		return nil, &common.UniquenessError{Field: "id"}
	}
	if err := r.checkUnique("", u.UserName, u.SessionToken); err != nil {
		return nil, err
	}

	now := r.now()
	u.CreatedAt, u.UpdatedAt = now, now
	r.put(*u)
	return u, nil
}

func (r *MemoryRepository) Update(ctx context.Context, u *models.User) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	old, ok := r.byID[u.ID]
	if !ok {
		return nil, common.ErrorNotFound
	}
	if err := r.checkUnique(u.ID, u.UserName, u.SessionToken); err != nil {
		return nil, err
	}

	u.CreatedAt = old.CreatedAt
	u.UpdatedAt = r.now()
	r.drop(old)
	r.put(*u)
	return u, nil
}

func (r *MemoryRepository) UpdateSessionToken(ctx context.Context, id string, token string) (time.Time, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[id]
	if !ok {
		return time.Time{}, common.ErrorNotFound
	}
	if err := r.checkUnique(id, u.UserName, token); err != nil {
		return time.Time{}, err
	}

	r.drop(u)
	u.SessionToken = token
	u.UpdatedAt = r.now()
	r.put(u)
	return u.UpdatedAt, nil
}

func (r *MemoryRepository) UpdatePassword(ctx context.Context, id string, digest string, token string) (time.Time, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[id]
	if !ok {
		return time.Time{}, common.ErrorNotFound
	}
	if err := r.checkUnique(id, u.UserName, token); err != nil {
		return time.Time{}, err
	}

	r.drop(u)
	u.PasswordDigest = digest
	u.SessionToken = token
	u.UpdatedAt = r.now()
	r.put(u)
	return u.UpdatedAt, nil
}

func (r *MemoryRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[id]
	if !ok {
		return common.ErrorNotFound
	}
	r.drop(u)
	return nil
}

// checkUnique must be called with mu held. self is the id allowed to own the
// values already.
func (r *MemoryRepository) checkUnique(self, userName, token string) error {
	if owner, taken := r.byName[userName]; taken && owner != self {
		return &common.UniquenessError{Field: "username"}
	}
	if owner, taken := r.byToken[token]; taken && owner != self {
		return &common.UniquenessError{Field: "session_token"}
	}
	return nil
}

func (r *MemoryRepository) put(u models.User) {
	r.byID[u.ID] = u
	r.byName[u.UserName] = u.ID
	r.byToken[u.SessionToken] = u.ID
}

func (r *MemoryRepository) drop(u models.User) {
	delete(r.byID, u.ID)
	delete(r.byName, u.UserName)
	delete(r.byToken, u.SessionToken)
}
