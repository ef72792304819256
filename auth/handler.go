// Package auth serves the session endpoints under /api/auth/.
package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/phantask/auth-service/middleware"
	"github.com/phantask/auth-service/services"
	"github.com/phantask/auth-service/utils"
	"go.uber.org/zap"
)

const (
	// MissingHeaderMessage is returned by /me when no bearer token is sent
	MissingHeaderMessage = "Missing or invalid Authorization header"

	// PasswordChangedMessage is returned after a successful password change
	PasswordChangedMessage = "Password changed successfully"
)

// Sessions is the session use-case surface the handler drives
type Sessions interface {
	Login(ctx context.Context, username, password string) (*services.LoginResult, error)
	Refresh(ctx context.Context, refreshToken string) (string, error)
	Logout(ctx context.Context, token string) string
	CurrentUser(ctx context.Context, token string) (*services.Profile, error)
	ChangePassword(ctx context.Context, username, oldPassword, newPassword string) error
}

// ErrorResponder writes a service error as an HTTP response
type ErrorResponder func(w http.ResponseWriter, err error, logger *zap.Logger)

// LoginRequest is the body of POST /api/auth/login
type LoginRequest struct {
	Username string `json:"username" validate:"required,max=100"`
	Password string `json:"password" validate:"required,max=128"`
}

// ChangePasswordRequest is the body of POST /api/auth/change-password
type ChangePasswordRequest struct {
	Username    string `json:"username" validate:"required,max=100"`
	OldPassword string `json:"oldPassword" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,min=8,max=72,nefield=OldPassword"`
}

// RefreshResponse carries the newly minted access token
type RefreshResponse struct {
	Token string `json:"token"`
}

// MeResponse is the identity projection returned by /me
type MeResponse struct {
	Username string   `json:"username"`
	Roles    []string `json:"roles"`
	Enabled  bool     `json:"enabled"`
}

// Handler handles login, refresh, logout, /me and password changes
type Handler struct {
	sessions Sessions
	respond  ErrorResponder
	logger   *zap.Logger
}

// NewHandler creates a new auth handler
func NewHandler(sessions Sessions, respond ErrorResponder, logger *zap.Logger) *Handler {
	return &Handler{
		sessions: sessions,
		respond:  respond,
		logger:   logger,
	}
}

// HandleLogin handles POST /api/auth/login
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !h.decode(w, r, &req) {
		return
	}

	result, err := h.sessions.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		h.respond(w, err, h.logger)
		return
	}

	h.writeJSON(w, http.StatusOK, result)
}

// HandleRefresh handles POST /api/auth/refresh-token.
// The refresh token travels as a bearer token.
func (h *Handler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	token, ok := middleware.ExtractBearerToken(r)
	if !ok {
		h.respond(w, services.ErrMissingAuthHeader, h.logger)
		return
	}

	access, err := h.sessions.Refresh(r.Context(), token)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			h.writeError(w, http.StatusUnauthorized, services.ErrUserNotFound.Code, services.ErrUserNotFound.Message)
			return
		}
		h.respond(w, err, h.logger)
		return
	}

	h.writeJSON(w, http.StatusOK, RefreshResponse{Token: access})
}

// HandleLogout handles POST /api/auth/logout. It always succeeds.
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	token, _ := middleware.ExtractBearerToken(r)
	message := h.sessions.Logout(r.Context(), token)

	if err := utils.WriteMessage(w, http.StatusOK, message); err != nil {
		h.logger.Error("failed to write logout response", zap.Error(err))
	}
}

// HandleMe handles GET /api/auth/me. Every token failure is a 401.
func (h *Handler) HandleMe(w http.ResponseWriter, r *http.Request) {
	token, ok := middleware.ExtractBearerToken(r)
	if !ok || token == "" {
		h.writeError(w, http.StatusUnauthorized, services.ErrMissingAuthHeader.Code, MissingHeaderMessage)
		return
	}

	profile, err := h.sessions.CurrentUser(r.Context(), token)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrTokenExpired):
			h.writeError(w, http.StatusUnauthorized, services.ErrTokenExpired.Code, services.ErrTokenExpired.Message)
		case errors.Is(err, services.ErrTokenInvalid):
			h.writeError(w, http.StatusUnauthorized, services.ErrTokenInvalid.Code, services.ErrTokenInvalid.Message)
		default:
			h.respond(w, err, h.logger)
		}
		return
	}

	h.writeJSON(w, http.StatusOK, MeResponse{
		Username: profile.Username,
		Roles:    profile.Roles,
		Enabled:  profile.Enabled,
	})
}

// HandleChangePassword handles POST /api/auth/change-password.
// It is reachable without a token so first-login users can set a password.
func (h *Handler) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	var req ChangePasswordRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.sessions.ChangePassword(r.Context(), req.Username, req.OldPassword, req.NewPassword); err != nil {
		h.respond(w, err, h.logger)
		return
	}

	if err := utils.WriteMessage(w, http.StatusOK, PasswordChangedMessage); err != nil {
		h.logger.Error("failed to write change password response", zap.Error(err))
	}
}

// decode reads and validates a JSON body, writing a 400 on failure
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := utils.DecodeJSON(w, r, dst); err != nil {
		_ = utils.WriteBadRequest(w, err.Error(), nil)
		return false
	}
	if err := utils.ValidateStruct(dst); err != nil {
		details := make(map[string]interface{})
		for k, v := range utils.GetValidationFields(err) {
			details[k] = v
		}
		_ = utils.WriteBadRequest(w, "Validation failed", details)
		return false
	}
	return true
}

func (h *Handler) writeError(w http.ResponseWriter, status int, code, message string) {
	if err := utils.WriteErrorCode(w, status, code, message, nil); err != nil {
		h.logger.Error("failed to write error response", zap.Error(err))
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	if err := utils.WriteJSON(w, status, data); err != nil {
		h.logger.Error("failed to write response", zap.Error(err))
	}
}
