package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/phantask/auth-service/middleware"
	"github.com/phantask/auth-service/services"
	"github.com/phantask/auth-service/utils"
	"go.uber.org/zap"
)

// UserAccounts is the account management surface behind /api/users
type UserAccounts interface {
	Profile(ctx context.Context, username string) (*services.Profile, error)
	ChangePassword(ctx context.Context, username, oldPassword, newPassword string) error
	CreateStudent(ctx context.Context, username, email string) (*services.CreatedAccount, error)
	SetEnabled(ctx context.Context, username string, enabled bool) error
	UpdateProfile(ctx context.Context, username, email string) (*services.Profile, error)
	ListUsers(ctx context.Context, enabled bool) ([]*services.Profile, error)
}

// CreateStudentRequest is the body of POST /api/users/create-student
type CreateStudentRequest struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Email    string `json:"email" validate:"omitempty,email,max=255"`
}

// UpdatePasswordRequest is the body of POST /api/users/change-password
type UpdatePasswordRequest struct {
	OldPassword string `json:"oldPassword" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,min=8,max=72,nefield=OldPassword"`
}

// UpdateProfileRequest is the body of POST /api/users/update-profile
type UpdateProfileRequest struct {
	Email string `json:"email" validate:"required,email,max=255"`
}

// SetEnabledRequest is the body of PUT /api/users/{username}/enabled
type SetEnabledRequest struct {
	Enabled *bool `json:"enabled" validate:"required"`
}

// UserHandler serves the authenticated account endpoints
type UserHandler struct {
	accounts UserAccounts
	logger   *zap.Logger
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(accounts UserAccounts, logger *zap.Logger) *UserHandler {
	return &UserHandler{
		accounts: accounts,
		logger:   logger,
	}
}

// HandleProfile handles GET /api/users/profile
func (h *UserHandler) HandleProfile(w http.ResponseWriter, r *http.Request) {
	principal := middleware.GetPrincipalFromContext(r.Context())
	if principal == nil {
		_ = utils.WriteUnauthorized(w, "Authentication required")
		return
	}

	profile, err := h.accounts.Profile(r.Context(), principal.Username)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteJSON(w, http.StatusOK, profile)
}

// HandleChangePassword handles POST /api/users/change-password for the caller's own account
func (h *UserHandler) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	principal := middleware.GetPrincipalFromContext(r.Context())
	if principal == nil {
		_ = utils.WriteUnauthorized(w, "Authentication required")
		return
	}

	var req UpdatePasswordRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.accounts.ChangePassword(r.Context(), principal.Username, req.OldPassword, req.NewPassword); err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteMessage(w, http.StatusOK, "Password changed successfully")
}

// HandleUpdateProfile handles POST /api/users/update-profile for the caller's own account
func (h *UserHandler) HandleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	principal := middleware.GetPrincipalFromContext(r.Context())
	if principal == nil {
		_ = utils.WriteUnauthorized(w, "Authentication required")
		return
	}

	var req UpdateProfileRequest
	if !h.decode(w, r, &req) {
		return
	}

	profile, err := h.accounts.UpdateProfile(r.Context(), principal.Username, req.Email)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteJSON(w, http.StatusOK, profile)
}

// HandleListUsers returns a handler listing enabled or disabled accounts (ADMIN only)
func (h *UserHandler) HandleListUsers(enabled bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		profiles, err := h.accounts.ListUsers(r.Context(), enabled)
		if err != nil {
			HandleServiceError(w, err, h.logger)
			return
		}
		_ = utils.WriteOK(w, profiles)
	}
}

// HandleCreateStudent handles POST /api/users/create-student (ADMIN only)
func (h *UserHandler) HandleCreateStudent(w http.ResponseWriter, r *http.Request) {
	var req CreateStudentRequest
	if !h.decode(w, r, &req) {
		return
	}

	account, err := h.accounts.CreateStudent(r.Context(), req.Username, req.Email)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	h.logger.Info("student created",
		zap.String("request_id", middleware.GetRequestIDFromContext(r.Context())),
		zap.String("username", account.Username))
	_ = utils.WriteJSON(w, http.StatusCreated, account)
}

// HandleSetEnabled handles PUT /api/users/{username}/enabled (ADMIN only)
func (h *UserHandler) HandleSetEnabled(w http.ResponseWriter, r *http.Request) {
	username := strings.TrimSpace(chi.URLParam(r, "username"))
	if username == "" {
		_ = utils.WriteBadRequest(w, "username is required", nil)
		return
	}

	var req SetEnabledRequest
	if !h.decode(w, r, &req) {
		return
	}

	if principal := middleware.GetPrincipalFromContext(r.Context()); principal != nil &&
		principal.Username == username && !*req.Enabled {
		_ = utils.WriteBadRequest(w, "You cannot deactivate your own account", nil)
		return
	}

	if err := h.accounts.SetEnabled(r.Context(), username, *req.Enabled); err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	profile, err := h.accounts.Profile(r.Context(), username)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteJSON(w, http.StatusOK, profile)
}

func (h *UserHandler) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := utils.DecodeJSON(w, r, dst); err != nil {
		HandleValidationError(w, err, h.logger)
		return false
	}
	if err := utils.ValidateStruct(dst); err != nil {
		HandleValidationError(w, err, h.logger)
		return false
	}
	return true
}
