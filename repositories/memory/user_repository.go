// Package memory is an in-process user directory for tests and local runs.
// Writes apply immediately; rolling back a transaction does not undo them.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/phantask/auth-service/models"
	"github.com/phantask/auth-service/repositories"
)

// UserRepository keeps users in a map keyed by username
type UserRepository struct {
	mu    sync.RWMutex
	users map[string]*models.User
}

// NewUserRepository creates an empty directory seeded with users
func NewUserRepository(users ...*models.User) *UserRepository {
	r := &UserRepository{users: make(map[string]*models.User, len(users))}
	for _, u := range users {
		r.users[u.Username] = clone(u)
	}
	return r
}

// GetByUsername implements repositories.UserRepository
func (r *UserRepository) GetByUsername(_ context.Context, username string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[username]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return clone(u), nil
}

// ExistsByUsername implements repositories.UserRepository
func (r *UserRepository) ExistsByUsername(_ context.Context, username string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.users[username]
	return ok, nil
}

// Create implements repositories.UserRepository
func (r *UserRepository) Create(_ context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[user.Username]; ok {
		return repositories.ErrDuplicate
	}
	r.users[user.Username] = clone(user)
	return nil
}

// UpdatePassword implements repositories.UserRepository
func (r *UserRepository) UpdatePassword(_ context.Context, username, passwordHash string, firstLogin bool) error {
	return r.update(username, func(u *models.User) {
		u.PasswordHash = passwordHash
		u.FirstLogin = firstLogin
	})
}

// SetEnabled implements repositories.UserRepository
func (r *UserRepository) SetEnabled(_ context.Context, username string, enabled bool) error {
	return r.update(username, func(u *models.User) {
		u.Enabled = enabled
	})
}

// UpdateEmail implements repositories.UserRepository
func (r *UserRepository) UpdateEmail(_ context.Context, username, email string) error {
	return r.update(username, func(u *models.User) {
		u.Email = email
	})
}

// ListByEnabled implements repositories.UserRepository
func (r *UserRepository) ListByEnabled(_ context.Context, enabled bool) ([]*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users := make([]*models.User, 0, len(r.users))
	for _, u := range r.users {
		if u.Enabled == enabled {
			users = append(users, clone(u))
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })
	return users, nil
}

// WithTx implements repositories.UserRepository; the same map is shared
func (r *UserRepository) WithTx(repositories.Transaction) repositories.UserRepository {
	return r
}

func (r *UserRepository) update(username string, fn func(u *models.User)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[username]
	if !ok {
		return repositories.ErrNotFound
	}
	fn(u)
	u.UpdatedAt = time.Now()
	return nil
}

func clone(u *models.User) *models.User {
	c := *u
	c.Roles = append([]models.Role(nil), u.Roles...)
	return &c
}

// TransactionManager hands out no-op transactions
type TransactionManager struct{}

// NewTransactionManager creates a TransactionManager
func NewTransactionManager() *TransactionManager {
	return &TransactionManager{}
}

// Begin implements repositories.TransactionManager
func (TransactionManager) Begin(ctx context.Context) (repositories.Transaction, error) {
	return &transaction{ctx: ctx}, nil
}

// InTransaction implements repositories.TransactionManager
func (tm TransactionManager) InTransaction(ctx context.Context, fn func(ctx context.Context, tx repositories.Transaction) error) error {
	tx, _ := tm.Begin(ctx)
	return fn(tx.Context(), tx)
}

type transaction struct {
	ctx context.Context
}

func (t *transaction) Commit() error            { return nil }
func (t *transaction) Rollback() error          { return nil }
func (t *transaction) Context() context.Context { return t.ctx }
