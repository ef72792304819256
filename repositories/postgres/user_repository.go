package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/phantask/auth-service/models"
	"github.com/phantask/auth-service/repositories"
	"go.uber.org/zap"
)

// uniqueViolation is the PostgreSQL SQLSTATE for unique_violation
const uniqueViolation = "23505"

// UserRepository implements the repositories.UserRepository interface
type UserRepository struct {
	db     *DB
	tx     *Transaction
	logger *zap.Logger
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *DB, logger *zap.Logger) repositories.UserRepository {
	return &UserRepository{
		db:     db,
		logger: logger,
	}
}

func (r *UserRepository) executor(ctx context.Context) Executor {
	if r.tx != nil {
		return r.tx.tx
	}
	return GetExecutor(ctx, r.db)
}

// GetByUsername retrieves a user and their roles by username
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	query := `
		SELECT u.id, u.username, u.email, u.password_hash, u.enabled, u.first_login,
		       u.created_at, u.updated_at,
		       COALESCE(array_agg(r.name ORDER BY r.name) FILTER (WHERE r.name IS NOT NULL), '{}')
		FROM users u
		LEFT JOIN user_roles ur ON ur.user_id = u.id
		LEFT JOIN roles r ON r.id = ur.role_id
		WHERE u.username = $1
		GROUP BY u.id
	`

	user, err := scanUser(r.executor(ctx).QueryRowContext(ctx, query, username))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user %q: %w", username, repositories.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// ListByEnabled returns users with the given enabled flag, ordered by username
func (r *UserRepository) ListByEnabled(ctx context.Context, enabled bool) ([]*models.User, error) {
	query := `
		SELECT u.id, u.username, u.email, u.password_hash, u.enabled, u.first_login,
		       u.created_at, u.updated_at,
		       COALESCE(array_agg(r.name ORDER BY r.name) FILTER (WHERE r.name IS NOT NULL), '{}')
		FROM users u
		LEFT JOIN user_roles ur ON ur.user_id = u.id
		LEFT JOIN roles r ON r.id = ur.role_id
		WHERE u.enabled = $1
		GROUP BY u.id
		ORDER BY u.username
	`

	rows, err := r.executor(ctx).QueryContext(ctx, query, enabled)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	users := make([]*models.User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate users: %w", err)
	}

	return users, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(row rowScanner) (*models.User, error) {
	user := &models.User{}
	var roles []string

	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.Enabled,
		&user.FirstLogin,
		&user.CreatedAt,
		&user.UpdatedAt,
		pq.Array(&roles),
	)
	if err != nil {
		return nil, err
	}

	user.Roles = make([]models.Role, 0, len(roles))
	for _, name := range roles {
		user.Roles = append(user.Roles, models.Role(name))
	}
	return user, nil
}

// ExistsByUsername reports whether the username is taken
func (r *UserRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM users WHERE username = $1)`

	var exists bool
	if err := r.executor(ctx).QueryRowContext(ctx, query, username).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check username: %w", err)
	}
	return exists, nil
}

// Create inserts a user and their role assignments. Call it inside a
// transaction so a failed role assignment does not leave a role-less user.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	insertUser := `
		INSERT INTO users (id, username, email, password_hash, enabled, first_login, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	executor := r.executor(ctx)
	_, err := executor.ExecContext(ctx, insertUser,
		user.ID,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.Enabled,
		user.FirstLogin,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return fmt.Errorf("user %q: %w", user.Username, repositories.ErrDuplicate)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	if len(user.Roles) > 0 {
		assignRoles := `
			INSERT INTO user_roles (user_id, role_id)
			SELECT $1, r.id FROM roles r WHERE r.name = ANY($2)
		`
		names := user.RoleNames()
		result, err := executor.ExecContext(ctx, assignRoles, user.ID, pq.Array(names))
		if err != nil {
			return fmt.Errorf("failed to assign roles: %w", err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if int(n) != len(names) {
			return fmt.Errorf("unknown role in %v", names)
		}
	}

	r.logger.Debug("user created",
		zap.String("id", user.ID.String()),
		zap.String("username", user.Username),
		zap.Strings("roles", user.RoleNames()),
	)
	return nil
}

// UpdatePassword replaces the password hash and sets the first-login flag
func (r *UserRepository) UpdatePassword(ctx context.Context, username, passwordHash string, firstLogin bool) error {
	query := `
		UPDATE users
		SET password_hash = $2,
		    first_login = $3,
		    updated_at = NOW()
		WHERE username = $1
	`

	result, err := r.executor(ctx).ExecContext(ctx, query, username, passwordHash, firstLogin)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	if err := requireOneRow(result, username); err != nil {
		return err
	}

	r.logger.Debug("user password updated", zap.String("username", username))
	return nil
}

// SetEnabled activates or deactivates an account
func (r *UserRepository) SetEnabled(ctx context.Context, username string, enabled bool) error {
	query := `UPDATE users SET enabled = $2, updated_at = NOW() WHERE username = $1`

	result, err := r.executor(ctx).ExecContext(ctx, query, username, enabled)
	if err != nil {
		return fmt.Errorf("failed to update user status: %w", err)
	}
	if err := requireOneRow(result, username); err != nil {
		return err
	}

	r.logger.Info("user status changed", zap.String("username", username), zap.Bool("enabled", enabled))
	return nil
}

// UpdateEmail replaces the account's email address
func (r *UserRepository) UpdateEmail(ctx context.Context, username, email string) error {
	query := `UPDATE users SET email = $2, updated_at = NOW() WHERE username = $1`

	result, err := r.executor(ctx).ExecContext(ctx, query, username, email)
	if err != nil {
		return fmt.Errorf("failed to update email: %w", err)
	}
	if err := requireOneRow(result, username); err != nil {
		return err
	}

	r.logger.Debug("user email updated", zap.String("username", username))
	return nil
}

// WithTx returns a new repository instance bound to the transaction
func (r *UserRepository) WithTx(tx repositories.Transaction) repositories.UserRepository {
	pgTx, ok := tx.(*Transaction)
	if !ok {
		return r
	}
	return &UserRepository{
		db:     r.db,
		tx:     pgTx,
		logger: r.logger,
	}
}

func requireOneRow(result sql.Result, username string) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("user %q: %w", username, repositories.ErrNotFound)
	}
	return nil
}
