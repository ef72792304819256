package tokens

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrMissingClaim is returned when a required claim is missing
	ErrMissingClaim = errors.New("missing required claim")
)

// Claims represents the claims carried by access and refresh tokens.
// Refresh tokens leave Roles empty.
type Claims struct {
	jwt.RegisteredClaims
	Roles []string `json:"roles,omitempty"`
}

func (c *Claims) subject() (string, error) {
	if c.Subject == "" {
		return "", fmt.Errorf("%w: sub", ErrMissingClaim)
	}
	return c.Subject, nil
}
