package services

import (
	"errors"
	"fmt"
)

// ErrorType represents the type/category of error
type ErrorType string

const (
	ErrorTypeNotFound     ErrorType = "not_found"
	ErrorTypeValidation   ErrorType = "validation"
	ErrorTypeUnauthorized ErrorType = "unauthorized"
	ErrorTypeForbidden    ErrorType = "forbidden"
	ErrorTypeRateLimit    ErrorType = "rate_limit"
	ErrorTypeConflict     ErrorType = "conflict"
	ErrorTypeInternal     ErrorType = "internal"
)

// DomainError represents a structured error with additional context.
// Code distinguishes errors that share a Type (e.g. an expired token vs bad credentials).
type DomainError struct {
	Type    ErrorType
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is. A target with a Code matches only that code;
// a target without one matches any error of the same Type.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	if t.Code != "" {
		return e.Code == t.Code
	}
	return e.Type == t.Type
}

// Wrap returns a copy of the error carrying cause
func (e *DomainError) Wrap(cause error) *DomainError {
	return &DomainError{
		Type:    e.Type,
		Code:    e.Code,
		Message: e.Message,
		Err:     cause,
	}
}

// NewDomainError creates a new domain error
func NewDomainError(errType ErrorType, message string, err error) *DomainError {
	return &DomainError{
		Type:    errType,
		Message: message,
		Err:     err,
	}
}

func newCodedError(errType ErrorType, code, message string) *DomainError {
	e := NewDomainError(errType, message, nil)
	e.Code = code
	return e
}

// Domain error variables

var (
	// Not Found Errors
	ErrUserNotFound = newCodedError(ErrorTypeNotFound, "USER_NOT_FOUND", "User not found")

	// Validation Errors
	ErrMissingAuthHeader = newCodedError(ErrorTypeValidation, "MISSING_AUTH_HEADER", "Invalid Authorization header")
	ErrTokenInvalid      = newCodedError(ErrorTypeValidation, "TOKEN_INVALID", "Invalid token")
	ErrWeakPassword      = newCodedError(ErrorTypeValidation, "WEAK_PASSWORD", "Password does not meet requirements")
	ErrInvalidUsername   = newCodedError(ErrorTypeValidation, "INVALID_USERNAME", "Username must be 3 to 50 characters")

	// Authorization Errors
	ErrInvalidCredentials  = newCodedError(ErrorTypeUnauthorized, "INVALID_CREDENTIALS", "Invalid username or password")
	ErrTokenExpired        = newCodedError(ErrorTypeUnauthorized, "TOKEN_EXPIRED", "Token expired")
	ErrRefreshTokenExpired = newCodedError(ErrorTypeUnauthorized, "REFRESH_TOKEN_EXPIRED", "Refresh token has expired")

	// Permission Errors
	ErrAccountDeactivated = newCodedError(ErrorTypeForbidden, "ACCOUNT_DEACTIVATED", "Your account has been deactivated. Please contact the administrator.")

	// Rate Limit Errors
	ErrTooManyAttempts = newCodedError(ErrorTypeRateLimit, "TOO_MANY_ATTEMPTS", "Too many login attempts, please try again later")

	// Conflict Errors
	ErrUsernameTaken = newCodedError(ErrorTypeConflict, "USERNAME_TAKEN", "Username already exists")
)

// Error type checking helper functions

// IsNotFoundError checks if an error is a not found error
func IsNotFoundError(err error) bool {
	return GetErrorType(err) == ErrorTypeNotFound
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return GetErrorType(err) == ErrorTypeValidation
}

// IsUnauthorizedError checks if an error is an unauthorized error
func IsUnauthorizedError(err error) bool {
	return GetErrorType(err) == ErrorTypeUnauthorized
}

// IsForbiddenError checks if an error is a forbidden error
func IsForbiddenError(err error) bool {
	return GetErrorType(err) == ErrorTypeForbidden
}

// IsRateLimitError checks if an error is a rate limit error
func IsRateLimitError(err error) bool {
	return GetErrorType(err) == ErrorTypeRateLimit
}

// IsConflictError checks if an error is a conflict error
func IsConflictError(err error) bool {
	return GetErrorType(err) == ErrorTypeConflict
}

// GetErrorType returns the ErrorType of a domain error, or empty string if not a domain error
func GetErrorType(err error) ErrorType {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type
	}
	return ""
}

// WrapInternal wraps an error as an internal error
func WrapInternal(message string, err error) error {
	return NewDomainError(ErrorTypeInternal, message, err)
}
