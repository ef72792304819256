package middleware

import (
	"context"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/phantask/auth-service/models"
)

// Context key type to avoid collisions
type contextKey string

// PrincipalKey is the context key for the authenticated principal
const PrincipalKey contextKey = "principal"

// Principal is the identity authenticated for the current request
type Principal struct {
	Username    string
	Roles       []models.Role
	Authorities []string
	Enabled     bool
}

// NewPrincipal derives a Principal and its authorities from user
func NewPrincipal(user *models.User) *Principal {
	return &Principal{
		Username:    user.Username,
		Roles:       append([]models.Role(nil), user.Roles...),
		Authorities: models.Authorities(user.Roles),
		Enabled:     user.Enabled,
	}
}

// HasRole reports whether the principal holds role
func (p *Principal) HasRole(role models.Role) bool {
	for _, r := range p.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// GetRequestIDFromContext retrieves the request ID set by chi's RequestID middleware
func GetRequestIDFromContext(ctx context.Context) string {
	return chimw.GetReqID(ctx)
}

// GetPrincipalFromContext retrieves the authenticated principal, or nil
func GetPrincipalFromContext(ctx context.Context) *Principal {
	if val := ctx.Value(PrincipalKey); val != nil {
		if p, ok := val.(*Principal); ok {
			return p
		}
	}
	return nil
}

// WithPrincipal attaches an authenticated principal to the context
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, PrincipalKey, p)
}
