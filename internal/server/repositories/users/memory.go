package users

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/google/uuid"
)

// MemoryRepository keeps users in process memory. Uniqueness checks and
// writes happen under one lock, so concurrent duplicates are still rejected.
type MemoryRepository struct {
	mu    sync.RWMutex
	byID  map[string]*models.User
	order []string // insertion order, oldest first
	now   func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byID: make(map[string]*models.User),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

func (r *MemoryRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.findBy(func(u *models.User) bool { return u.Email == email }) != nil, nil
}

func (r *MemoryRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.findBy(func(u *models.User) bool { return u.Username == username }) != nil, nil
}

func (r *MemoryRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.checkUnique("", &user.Email, &user.Username); err != nil {
		return nil, err
	}

	now := r.now()
	stored := &models.User{
		ID:           uuid.NewString(),
		Email:        user.Email,
		Username:     user.Username,
		PasswordHash: user.PasswordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	r.byID[stored.ID] = stored
	r.order = append(r.order, stored.ID)

	return copyUser(stored), nil
}

func (r *MemoryRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u := r.findBy(func(u *models.User) bool { return u.Email == email })
	if u == nil {
		return nil, common.ErrorNotFound
	}
	return copyUser(u), nil
}

func (r *MemoryRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return withoutHash(u), nil
}

// List returns newest users first.
func (r *MemoryRepository) List(ctx context.Context, limit, offset int) (*models.UserPage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if offset < 0 {
		offset = 0
	}
	page := &models.UserPage{Users: []*models.User{}, Total: int64(len(r.order))}
	for i := len(r.order) - 1 - offset; i >= 0 && len(page.Users) < limit; i-- {
		page.Users = append(page.Users, withoutHash(r.byID[r.order[i]]))
	}
	return page, nil
}

func (r *MemoryRepository) Update(ctx context.Context, id string, upd models.UserUpdate) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	if err := r.checkUnique(id, upd.Email, upd.Username); err != nil {
		return nil, err
	}

	if upd.Email != nil {
		u.Email = *upd.Email
	}
	if upd.Username != nil {
		u.Username = *upd.Username
	}
	if upd.PasswordHash != nil {
		u.PasswordHash = *upd.PasswordHash
	}
	u.UpdatedAt = r.now()

	return withoutHash(u), nil
}

func (r *MemoryRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[id]; !ok {
		return common.ErrorNotFound
	}
	delete(r.byID, id)
	for i, v := range r.order {
		if v == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

// checkUnique must be called with the write lock held. selfID is skipped so
// a user may "change" a field to its current value.
func (r *MemoryRepository) checkUnique(selfID string, email, username *string) error {
	for id, u := range r.byID {
		if id == selfID {
			continue
		}
		if email != nil && u.Email == *email {
			return common.ErrEmailTaken
		}
		if username != nil && u.Username == *username {
			return common.ErrUsernameTaken
		}
	}
	return nil
}

func (r *MemoryRepository) findBy(match func(*models.User) bool) *models.User {
	for _, u := range r.byID {
		if match(u) {
			return u
		}
	}
	return nil
}

func copyUser(u *models.User) *models.User {
	c := *u
	return &c
}

func withoutHash(u *models.User) *models.User {
	c := copyUser(u)
	c.PasswordHash = ""
	return c
}
