package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/custodia-labs/propdocs/internal/core/domain"
	"github.com/custodia-labs/propdocs/internal/logger"
)

// AppError represents an application error with an HTTP status code.
type AppError struct {
	Code    int
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError creates a new AppError.
func NewAppError(code int, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

// MapError maps a domain error to an AppError with an appropriate status code.
func MapError(err error) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	var validation *domain.ValidationError
	switch {
	case errors.As(err, &validation):
		return NewAppError(http.StatusBadRequest, validation.Error(), err)
	case errors.Is(err, domain.ErrInvalidInput):
		return NewAppError(http.StatusBadRequest, "Invalid request", err)
	case errors.Is(err, domain.ErrNotFound):
		return NewAppError(http.StatusNotFound, "Resource not found", err)
	case errors.Is(err, domain.ErrInvalidSignature):
		return NewAppError(http.StatusForbidden, "Invalid or expired link", err)
	case errors.Is(err, domain.ErrUnsupportedType):
		return NewAppError(http.StatusUnprocessableEntity, "Unsupported document type", err)
	case errors.Is(err, domain.ErrRateLimited):
		return NewAppError(http.StatusTooManyRequests, "Provider rate limit reached, retry later", err)
	case errors.Is(err, domain.ErrLLMUnavailable), errors.Is(err, domain.ErrEmbeddingUnavailable):
		return NewAppError(http.StatusServiceUnavailable, "AI provider is not configured", err)
	}
	return NewAppError(http.StatusInternalServerError, "Internal server error", err)
}

func handleError(c *gin.Context, err error) {
	appErr := MapError(err)
	if appErr.Code >= http.StatusInternalServerError {
		logger.Error("%s %s: %v", c.Request.Method, c.FullPath(), err)
	}
	c.AbortWithStatusJSON(appErr.Code, gin.H{"error": appErr.Message})
}
