package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/phantask/auth-service/models"
	"github.com/phantask/auth-service/repositories"
	"github.com/phantask/auth-service/tokens"
	"go.uber.org/zap"
)

const (
	// LogoutMessage is returned by Logout
	LogoutMessage = "Logged out successfully"

	// PasswordChangeRequiredMessage accompanies a first-login response
	PasswordChangeRequiredMessage = "Password change required before login"

	// MinPasswordLength applies to passwords chosen by users
	MinPasswordLength = 8

	// Username length bounds for accounts created by an admin, after trimming
	MinUsernameLength = 3
	MaxUsernameLength = 50

	dummyPassword = "phantask-timing-equalizer"
)

// TokenIssuer mints access and refresh tokens
type TokenIssuer interface {
	IssueAccess(user *models.User) (string, error)
	IssueRefresh(user *models.User) (string, error)
}

// TokenVerifier verifies tokens minted by a TokenIssuer
type TokenVerifier interface {
	ExtractSubject(token string) (string, error)
	IsValid(token, username string) bool
}

// LoginResult is the outcome of a login. Tokens are empty while a password change is pending.
type LoginResult struct {
	Token                 string   `json:"token,omitempty"`
	RefreshToken          string   `json:"refreshToken,omitempty"`
	Role                  []string `json:"role,omitempty"`
	RequirePasswordChange bool     `json:"requirePasswordChange"`
	Message               string   `json:"message,omitempty"`
}

// Profile is the public projection of an identity
type Profile struct {
	Username string   `json:"username"`
	Email    string   `json:"email,omitempty"`
	Roles    []string `json:"roles"`
	Enabled  bool     `json:"enabled"`
}

// NewProfile projects user into a Profile
func NewProfile(user *models.User) *Profile {
	return &Profile{
		Username: user.Username,
		Email:    user.Email,
		Roles:    user.RoleNames(),
		Enabled:  user.Enabled,
	}
}

// CreatedAccount is returned when an admin creates an account
type CreatedAccount struct {
	Profile
	TemporaryPassword string `json:"temporaryPassword"`
	Message           string `json:"message"`
}

// AuthServiceConfig holds AuthService settings
type AuthServiceConfig struct {
	StudentTempPassword string
}

// AuthService orchestrates login, refresh, logout and account lifecycle
type AuthService struct {
	users    repositories.UserRepository
	txMgr    repositories.TransactionManager
	hasher   PasswordHasher
	issuer   TokenIssuer
	verifier TokenVerifier
	cfg      AuthServiceConfig
	logger   *zap.Logger

	dummyOnce sync.Once
	dummyHash string
}

// NewAuthService creates a new AuthService
func NewAuthService(
	users repositories.UserRepository,
	txMgr repositories.TransactionManager,
	hasher PasswordHasher,
	issuer TokenIssuer,
	verifier TokenVerifier,
	cfg AuthServiceConfig,
	logger *zap.Logger,
) *AuthService {
	if cfg.StudentTempPassword == "" {
		cfg.StudentTempPassword = "Temp@123"
	}
	return &AuthService{
		users:    users,
		txMgr:    txMgr,
		hasher:   hasher,
		issuer:   issuer,
		verifier: verifier,
		cfg:      cfg,
		logger:   logger,
	}
}

// Login verifies credentials and issues an access/refresh token pair.
// A disabled account is reported only after the password checks out.
func (s *AuthService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			s.compareDummy(password)
			s.logger.Info("login rejected: unknown user")
			return nil, ErrInvalidCredentials
		}
		return nil, WrapInternal("failed to load user", err)
	}

	if err := s.hasher.Compare(password, user.PasswordHash); err != nil {
		if errors.Is(err, ErrPasswordMismatch) {
			s.logger.Info("login rejected: bad password", zap.String("username", user.Username))
			return nil, ErrInvalidCredentials
		}
		return nil, WrapInternal("failed to verify password", err)
	}

	if !user.Enabled {
		s.logger.Info("login rejected: account deactivated", zap.String("username", user.Username))
		return nil, ErrAccountDeactivated
	}

	if user.FirstLogin {
		return &LoginResult{
			RequirePasswordChange: true,
			Message:               PasswordChangeRequiredMessage,
		}, nil
	}

	access, err := s.issuer.IssueAccess(user)
	if err != nil {
		return nil, WrapInternal("failed to issue access token", err)
	}
	refresh, err := s.issuer.IssueRefresh(user)
	if err != nil {
		return nil, WrapInternal("failed to issue refresh token", err)
	}

	s.logger.Info("login succeeded",
		zap.String("username", user.Username),
		zap.Strings("roles", user.RoleNames()),
	)

	return &LoginResult{
		Token:                 access,
		RefreshToken:          refresh,
		Role:                  user.RoleNames(),
		RequirePasswordChange: false,
	}, nil
}

// Refresh exchanges a refresh token for exactly one new access token.
// The refresh token itself is not rotated.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	username, err := s.verifier.ExtractSubject(refreshToken)
	if err != nil {
		if errors.Is(err, tokens.ErrTokenExpired) {
			return "", ErrRefreshTokenExpired
		}
		return "", ErrTokenInvalid.Wrap(err)
	}

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return "", ErrUserNotFound
		}
		return "", WrapInternal("failed to load user", err)
	}

	if !s.verifier.IsValid(refreshToken, user.Username) {
		return "", ErrRefreshTokenExpired
	}

	access, err := s.issuer.IssueAccess(user)
	if err != nil {
		return "", WrapInternal("failed to issue access token", err)
	}

	s.logger.Debug("access token refreshed", zap.String("username", user.Username))
	return access, nil
}

// Logout is stateless; tokens stay valid until they expire
func (s *AuthService) Logout(ctx context.Context, token string) string {
	return LogoutMessage
}

// CurrentUser resolves the identity behind an access token
func (s *AuthService) CurrentUser(ctx context.Context, token string) (*Profile, error) {
	username, err := s.verifier.ExtractSubject(token)
	if err != nil {
		if errors.Is(err, tokens.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid.Wrap(err)
	}

	user, err := s.Profile(ctx, username)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrTokenInvalid.Wrap(err)
		}
		return nil, err
	}
	return user, nil
}

// Profile loads the identity projection for username
func (s *AuthService) Profile(ctx context.Context, username string) (*Profile, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, WrapInternal("failed to load user", err)
	}
	return NewProfile(user), nil
}

// ChangePassword verifies oldPassword, stores a hash of newPassword and
// clears the first-login flag in one transaction. An unknown username and a
// wrong old password both yield ErrInvalidCredentials.
func (s *AuthService) ChangePassword(ctx context.Context, username, oldPassword, newPassword string) error {
	if err := validateNewPassword(oldPassword, newPassword); err != nil {
		return err
	}

	return WithTransaction(ctx, s.txMgr, func(ctx context.Context, tx repositories.Transaction) error {
		users := s.users.WithTx(tx)

		user, err := users.GetByUsername(ctx, username)
		if err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				s.compareDummy(oldPassword)
				return ErrInvalidCredentials
			}
			return WrapInternal("failed to load user", err)
		}

		if err := s.hasher.Compare(oldPassword, user.PasswordHash); err != nil {
			if errors.Is(err, ErrPasswordMismatch) {
				s.logger.Info("password change rejected: bad old password", zap.String("username", user.Username))
				return ErrInvalidCredentials
			}
			return WrapInternal("failed to verify password", err)
		}
		if !user.Enabled {
			return ErrAccountDeactivated
		}

		hash, err := s.hasher.Hash(newPassword)
		if err != nil {
			if errors.Is(err, ErrPasswordTooLong) {
				return ErrWeakPassword.Wrap(err)
			}
			return WrapInternal("failed to hash password", err)
		}
		if err := users.UpdatePassword(ctx, user.Username, hash, false); err != nil {
			return WrapInternal("failed to store password", err)
		}

		s.logger.Info("password changed", zap.String("username", user.Username))
		return nil
	})
}

// UpdateProfile replaces the caller's email address and returns the updated profile
func (s *AuthService) UpdateProfile(ctx context.Context, username, email string) (*Profile, error) {
	if err := s.users.UpdateEmail(ctx, username, strings.TrimSpace(email)); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, WrapInternal("failed to update profile", err)
	}

	s.logger.Info("profile updated", zap.String("username", username))
	return s.Profile(ctx, username)
}

// ListUsers returns the profiles of all enabled or all disabled accounts
func (s *AuthService) ListUsers(ctx context.Context, enabled bool) ([]*Profile, error) {
	users, err := s.users.ListByEnabled(ctx, enabled)
	if err != nil {
		return nil, WrapInternal("failed to list users", err)
	}

	profiles := make([]*Profile, 0, len(users))
	for _, u := range users {
		profiles = append(profiles, NewProfile(u))
	}
	return profiles, nil
}

// CreateStudent creates an enabled STUDENT account with the temporary
// password; the user must change it on first login
func (s *AuthService) CreateStudent(ctx context.Context, username, email string) (*CreatedAccount, error) {
	username = strings.TrimSpace(username)
	if n := utf8.RuneCountInString(username); n < MinUsernameLength || n > MaxUsernameLength {
		return nil, ErrInvalidUsername
	}

	hash, err := s.hasher.Hash(s.cfg.StudentTempPassword)
	if err != nil {
		return nil, WrapInternal("failed to hash password", err)
	}

	user := models.NewUser(username, strings.TrimSpace(email), hash, models.RoleStudent)
	user.FirstLogin = true

	if err := s.createUser(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("student account created", zap.String("username", user.Username))
	return &CreatedAccount{
		Profile:           *NewProfile(user),
		TemporaryPassword: s.cfg.StudentTempPassword,
		Message:           "Student account created successfully. Temporary password: " + s.cfg.StudentTempPassword,
	}, nil
}

// EnsureAdmin creates an ADMIN account unless username already exists
func (s *AuthService) EnsureAdmin(ctx context.Context, username, email, password string) (bool, error) {
	exists, err := s.users.ExistsByUsername(ctx, username)
	if err != nil {
		return false, WrapInternal("failed to check admin account", err)
	}
	if exists {
		return false, nil
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return false, WrapInternal("failed to hash password", err)
	}
	user := models.NewUser(username, email, hash, models.RoleAdmin)

	if err := s.createUser(ctx, user); err != nil {
		if errors.Is(err, ErrUsernameTaken) {
			return false, nil
		}
		return false, err
	}

	s.logger.Info("bootstrap admin created", zap.String("username", username))
	return true, nil
}

// SetEnabled activates or deactivates an account
func (s *AuthService) SetEnabled(ctx context.Context, username string, enabled bool) error {
	if err := s.users.SetEnabled(ctx, username, enabled); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrUserNotFound
		}
		return WrapInternal("failed to update account", err)
	}
	return nil
}

func (s *AuthService) createUser(ctx context.Context, user *models.User) error {
	return WithTransaction(ctx, s.txMgr, func(ctx context.Context, tx repositories.Transaction) error {
		if err := s.users.WithTx(tx).Create(ctx, user); err != nil {
			if errors.Is(err, repositories.ErrDuplicate) {
				return ErrUsernameTaken
			}
			return WrapInternal("failed to create user", err)
		}
		return nil
	})
}

// compareDummy runs one bcrypt comparison against a fixed hash so that an
// unknown username costs as much as a wrong password
func (s *AuthService) compareDummy(password string) {
	s.dummyOnce.Do(func() {
		hash, err := s.hasher.Hash(dummyPassword)
		if err != nil {
			s.logger.Warn("failed to prepare dummy hash", zap.Error(err))
			return
		}
		s.dummyHash = hash
	})
	if s.dummyHash != "" {
		_ = s.hasher.Compare(password, s.dummyHash)
	}
}

func validateNewPassword(oldPassword, newPassword string) error {
	if utf8.RuneCountInString(newPassword) < MinPasswordLength {
		return ErrWeakPassword.Wrap(fmt.Errorf("must be at least %d characters", MinPasswordLength))
	}
	if len(newPassword) > MaxPasswordBytes {
		return ErrWeakPassword.Wrap(fmt.Errorf("must be at most %d bytes", MaxPasswordBytes))
	}
	if newPassword == oldPassword {
		return ErrWeakPassword.Wrap(errors.New("must differ from the current password"))
	}
	return nil
}
