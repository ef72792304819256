package handlers

import (
	"errors"
	"net/http"

	"github.com/phantask/auth-service/services"
	"github.com/phantask/auth-service/utils"
	"go.uber.org/zap"
)

// HandleServiceError maps domain errors to HTTP responses.
// Only the domain error's public message reaches the client; causes are logged.
func HandleServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	if err == nil {
		return
	}

	var domainErr *services.DomainError
	if !errors.As(err, &domainErr) {
		logger.Error("unhandled error type", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "", "An unexpected error occurred", nil, logger)
		return
	}

	status := StatusForError(err)
	message := domainErr.Message
	if status == http.StatusInternalServerError {
		logger.Error("internal server error", zap.Error(err))
		message = "An internal error occurred"
	} else {
		logger.Debug("handled service error",
			zap.String("type", string(domainErr.Type)),
			zap.String("code", domainErr.Code),
			zap.Error(err))
	}

	writeError(w, status, domainErr.Code, message, nil, logger)
}

// StatusForError returns the HTTP status a domain error maps to
func StatusForError(err error) int {
	switch {
	case services.IsNotFoundError(err):
		return http.StatusNotFound
	case services.IsValidationError(err):
		return http.StatusBadRequest
	case services.IsUnauthorizedError(err):
		return http.StatusUnauthorized
	case services.IsForbiddenError(err):
		return http.StatusForbidden
	case services.IsRateLimitError(err):
		return http.StatusTooManyRequests
	case services.IsConflictError(err):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// HandleValidationError handles validation errors from request parsing
func HandleValidationError(w http.ResponseWriter, err error, logger *zap.Logger) {
	if utils.IsValidationError(err) {
		fields := utils.GetValidationFields(err)
		details := make(map[string]interface{}, len(fields))
		for k, v := range fields {
			details[k] = v
		}
		writeError(w, http.StatusBadRequest, "", "Validation failed", details, logger)
		return
	}

	writeError(w, http.StatusBadRequest, "", err.Error(), nil, logger)
}

func writeError(w http.ResponseWriter, status int, code, message string, details map[string]interface{}, logger *zap.Logger) {
	if err := utils.WriteErrorCode(w, status, code, message, details); err != nil {
		logger.Error("failed to write error response", zap.Int("status", status), zap.Error(err))
	}
}
