package tokens

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/phantask/auth-service/models"
)

// MinSecretLength is the minimum HS256 key size in bytes (256 bits)
const MinSecretLength = 32

var (
	// ErrMissingSecret is returned when no signing key is configured
	ErrMissingSecret = errors.New("jwt signing secret is not configured")

	// ErrWeakSecret is returned when the signing key is shorter than MinSecretLength
	ErrWeakSecret = fmt.Errorf("jwt signing secret must be at least %d bytes", MinSecretLength)
)

// Config holds token issuance configuration
type Config struct {
	Secret     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	// Now overrides the clock; defaults to time.Now
	Now func() time.Time
}

// Codec issues signed access and refresh tokens
type Codec struct {
	key        []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewCodec creates a new token codec. A missing or weak secret is an error.
func NewCodec(cfg Config) (*Codec, error) {
	key, err := signingKey(cfg.Secret)
	if err != nil {
		return nil, err
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = 15 * time.Minute
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = 24 * time.Hour
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Codec{
		key:        key,
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
		now:        cfg.Now,
	}, nil
}

// IssueAccess creates an access token carrying the user's authorities
func (c *Codec) IssueAccess(user *models.User) (string, error) {
	if user == nil || user.Username == "" {
		return "", fmt.Errorf("%w: sub", ErrMissingClaim)
	}
	token, err := c.sign(user.Username, models.Authorities(user.Roles), c.accessTTL)
	if err != nil {
		return "", fmt.Errorf("failed to create access token: %w", err)
	}
	return token, nil
}

// IssueRefresh creates a refresh token; it carries no role claims
func (c *Codec) IssueRefresh(user *models.User) (string, error) {
	if user == nil || user.Username == "" {
		return "", fmt.Errorf("%w: sub", ErrMissingClaim)
	}
	token, err := c.sign(user.Username, nil, c.refreshTTL)
	if err != nil {
		return "", fmt.Errorf("failed to create refresh token: %w", err)
	}
	return token, nil
}

// AccessTTL returns the configured access token lifetime
func (c *Codec) AccessTTL() time.Duration {
	return c.accessTTL
}

// RefreshTTL returns the configured refresh token lifetime
func (c *Codec) RefreshTTL() time.Duration {
	return c.refreshTTL
}

func (c *Codec) sign(subject string, roles []string, ttl time.Duration) (string, error) {
	now := c.now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	if len(roles) > 0 {
		claims.Roles = roles
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.key)
}

func signingKey(secret string) ([]byte, error) {
	if secret == "" {
		return nil, ErrMissingSecret
	}
	if len(secret) < MinSecretLength {
		return nil, ErrWeakSecret
	}
	return []byte(secret), nil
}
