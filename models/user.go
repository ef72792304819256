package models

import (
	"time"

	"github.com/google/uuid"
)

// Role represents a role name held by a user (e.g. STUDENT, ADMIN)
type Role string

const (
	RoleAdmin   Role = "ADMIN"
	RoleStudent Role = "STUDENT"
)

// AuthorityPrefix marks a role name as a granted authority
const AuthorityPrefix = "ROLE_"

// User represents an identity owned by the user directory
type User struct {
	ID           uuid.UUID `json:"id" db:"id"`
	Username     string    `json:"username" db:"username"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	Enabled      bool      `json:"enabled" db:"enabled"`
	FirstLogin   bool      `json:"first_login" db:"first_login"`
	Roles        []Role    `json:"roles" db:"-"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// NewUser creates a new enabled User instance
func NewUser(username, email, passwordHash string, roles ...Role) *User {
	now := time.Now()
	return &User{
		ID:           uuid.New(),
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		Enabled:      true,
		Roles:        roles,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// RoleNames returns the user's roles as plain strings
func (u *User) RoleNames() []string {
	names := make([]string, 0, len(u.Roles))
	for _, r := range u.Roles {
		names = append(names, string(r))
	}
	return names
}

// HasRole returns true if the user holds the given role
func (u *User) HasRole(role Role) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Authorities maps roles to granted authorities ("STUDENT" -> "ROLE_STUDENT").
// Duplicates are dropped, order is preserved.
func Authorities(roles []Role) []string {
	seen := make(map[string]struct{}, len(roles))
	out := make([]string, 0, len(roles))
	for _, r := range roles {
		if r == "" {
			continue
		}
		a := AuthorityPrefix + string(r)
		if _, ok := seen[a]; ok {
			continue
		}
		seen[a] = struct{}{}
		out = append(out, a)
	}
	return out
}
