package repositories

import (
	"context"
	"errors"

	"github.com/phantask/auth-service/models"
)

var (
	// ErrNotFound is returned when a lookup matches no row
	ErrNotFound = errors.New("record not found")

	// ErrDuplicate is returned when a unique constraint is violated
	ErrDuplicate = errors.New("record already exists")
)

// TransactionManager manages database transactions
type TransactionManager interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) (Transaction, error)

	// InTransaction executes a function within a transaction
	// Automatically commits if function succeeds, rolls back on error
	InTransaction(ctx context.Context, fn func(ctx context.Context, tx Transaction) error) error
}

// Transaction represents a database transaction
type Transaction interface {
	// Commit commits the transaction
	Commit() error

	// Rollback rolls back the transaction
	Rollback() error

	// Context returns a context carrying the transaction; repositories
	// called with it run their statements inside the transaction
	Context() context.Context
}

// UserRepository handles user directory operations
type UserRepository interface {
	// GetByUsername retrieves a user and their roles by username.
	// Returns ErrNotFound when no such user exists.
	GetByUsername(ctx context.Context, username string) (*models.User, error)

	// ExistsByUsername reports whether the username is taken
	ExistsByUsername(ctx context.Context, username string) (bool, error)

	// Create inserts a user and their role assignments.
	// Returns ErrDuplicate when the username is taken.
	Create(ctx context.Context, user *models.User) error

	// UpdatePassword replaces the password hash and sets the first-login flag
	UpdatePassword(ctx context.Context, username, passwordHash string, firstLogin bool) error

	// SetEnabled activates or deactivates an account
	SetEnabled(ctx context.Context, username string, enabled bool) error

	// UpdateEmail replaces the account's email address
	UpdateEmail(ctx context.Context, username, email string) error

	// ListByEnabled returns every user whose enabled flag matches, ordered by username
	ListByEnabled(ctx context.Context, enabled bool) ([]*models.User, error)

	// WithTx returns a new repository instance bound to the transaction
	WithTx(tx Transaction) UserRepository
}

// Repositories aggregates all repository interfaces
type Repositories struct {
	Users UserRepository
}
