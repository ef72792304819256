package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/phantask/auth-service/models"
	"github.com/phantask/auth-service/services"
	"github.com/phantask/auth-service/tokens"
	"github.com/phantask/auth-service/utils"
	"go.uber.org/zap"
)

const (
	// AuthPathPrefix marks endpoints reachable without a prior token
	AuthPathPrefix = "/api/auth/"

	bearerPrefix = "Bearer "

	// TokenExpiredMessage is returned when the gate sees an expired bearer token
	TokenExpiredMessage = "Token expired, please login again"
)

// TokenValidator verifies bearer tokens
type TokenValidator interface {
	ExtractSubject(token string) (string, error)
	IsValid(token, username string) bool
}

// UserLookup resolves identities by username
type UserLookup interface {
	GetByUsername(ctx context.Context, username string) (*models.User, error)
}

// AuthMiddleware provides authentication middleware functionality
type AuthMiddleware struct {
	validator TokenValidator
	users     UserLookup
	logger    *zap.Logger
}

// NewAuthMiddleware creates a new AuthMiddleware
func NewAuthMiddleware(validator TokenValidator, users UserLookup, logger *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		validator: validator,
		users:     users,
		logger:    logger,
	}
}

// Authenticate attaches a Principal to the request when it carries a valid
// bearer token. Requests without one proceed unauthenticated; an expired
// token aborts the request with 401. Paths under /api/auth/ are not inspected.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, AuthPathPrefix) {
			next.ServeHTTP(w, r)
			return
		}

		token, ok := ExtractBearerToken(r)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		ctx := r.Context()
		requestID := GetRequestIDFromContext(ctx)

		username, err := m.validator.ExtractSubject(token)
		if err != nil {
			if errors.Is(err, tokens.ErrTokenExpired) {
				m.logger.Info("expired bearer token rejected",
					zap.String("request_id", requestID),
					zap.String("path", r.URL.Path))
				_ = utils.WriteUnauthorized(w, TokenExpiredMessage)
				return
			}
			m.logger.Debug("bearer token not accepted",
				zap.String("request_id", requestID),
				zap.Error(err))
			next.ServeHTTP(w, r)
			return
		}

		if GetPrincipalFromContext(ctx) != nil {
			next.ServeHTTP(w, r)
			return
		}

		user, err := m.users.GetByUsername(ctx, username)
		if err != nil {
			m.logger.Debug("token subject could not be resolved",
				zap.String("request_id", requestID),
				zap.String("username", username),
				zap.Error(err))
			next.ServeHTTP(w, r)
			return
		}

		if !m.validator.IsValid(token, user.Username) {
			next.ServeHTTP(w, r)
			return
		}

		principal := NewPrincipal(user)
		m.logger.Debug("authentication successful",
			zap.String("request_id", requestID),
			zap.String("username", principal.Username),
			zap.Strings("authorities", principal.Authorities))

		next.ServeHTTP(w, r.WithContext(WithPrincipal(ctx, principal)))
	})
}

// RequireAuth rejects requests without an authenticated, enabled principal
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		requestID := GetRequestIDFromContext(ctx)

		principal := GetPrincipalFromContext(ctx)
		if principal == nil {
			m.logger.Warn("unauthenticated request",
				zap.String("request_id", requestID),
				zap.String("path", r.URL.Path))
			_ = utils.WriteUnauthorized(w, "Authentication required")
			return
		}

		if !principal.Enabled {
			m.logger.Warn("deactivated account rejected",
				zap.String("request_id", requestID),
				zap.String("username", principal.Username))
			_ = utils.WriteErrorCode(w, http.StatusForbidden,
				services.ErrAccountDeactivated.Code, services.ErrAccountDeactivated.Message, nil)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// RequireRole is a middleware that requires a specific role
func (m *AuthMiddleware) RequireRole(role models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			requestID := GetRequestIDFromContext(ctx)

			principal := GetPrincipalFromContext(ctx)
			if principal == nil {
				m.logger.Error("principal not found in context",
					zap.String("request_id", requestID))
				_ = utils.WriteUnauthorized(w, "Authentication required")
				return
			}

			if !principal.HasRole(role) {
				m.logger.Warn("insufficient permissions",
					zap.String("request_id", requestID),
					zap.String("required_role", string(role)),
					zap.Strings("authorities", principal.Authorities))
				_ = utils.WriteForbidden(w, "Insufficient permissions")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// ExtractBearerToken returns the token following "Bearer " in the Authorization header
func ExtractBearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, bearerPrefix) {
		return "", false
	}
	return strings.TrimSpace(authHeader[len(bearerPrefix):]), true
}
