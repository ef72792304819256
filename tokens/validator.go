package tokens

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrTokenInvalid is returned for a bad signature, wrong algorithm or subject mismatch
	ErrTokenInvalid = errors.New("invalid token")

	// ErrTokenExpired is returned when a correctly signed token is past its expiry
	ErrTokenExpired = errors.New("token expired")

	// ErrTokenMalformed is returned when the token is not a well-formed JWS
	ErrTokenMalformed = errors.New("malformed token")
)

// Validator verifies tokens minted by a Codec sharing the same secret
type Validator struct {
	key    []byte
	parser *jwt.Parser
}

// NewValidator creates a new token validator. A missing or weak secret is an error.
func NewValidator(cfg Config) (*Validator, error) {
	key, err := signingKey(cfg.Secret)
	if err != nil {
		return nil, err
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if cfg.Now != nil {
		opts = append(opts, jwt.WithTimeFunc(cfg.Now))
	}

	return &Validator{
		key:    key,
		parser: jwt.NewParser(opts...),
	}, nil
}

// ParseClaims parses and verifies a token, returning its claims
func (v *Validator) ParseClaims(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := v.parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return v.key, nil
	})
	if err != nil {
		return nil, classify(err)
	}
	if !token.Valid {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

// ExtractSubject verifies the token and returns its subject (the username)
func (v *Validator) ExtractSubject(tokenString string) (string, error) {
	claims, err := v.ParseClaims(tokenString)
	if err != nil {
		return "", err
	}
	sub, err := claims.subject()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	return sub, nil
}

// Validate checks that the token verifies, is not expired, and belongs to username.
// It returns nil, ErrTokenExpired, or ErrTokenInvalid.
func (v *Validator) Validate(tokenString, username string) error {
	sub, err := v.ExtractSubject(tokenString)
	if err != nil {
		if errors.Is(err, ErrTokenExpired) {
			return ErrTokenExpired
		}
		return ErrTokenInvalid
	}
	if username == "" || sub != username {
		return ErrTokenInvalid
	}
	return nil
}

// IsValid is the boolean form of Validate
func (v *Validator) IsValid(tokenString, username string) bool {
	return v.Validate(tokenString, username) == nil
}

// classify maps jwt parser errors onto the package sentinels.
// Signature is checked before expiry, so an expired result implies a genuine token.
func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenMalformed):
		return fmt.Errorf("%w: %v", ErrTokenMalformed, err)
	default:
		return fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
}
