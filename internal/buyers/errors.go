package buyers

import (
	"fmt"
	"leads/internal/models"
	"net/http"
)

// ServiceError represents errors from the buyers service with HTTP context
type ServiceError struct {
	Code       string
	Message    string
	StatusCode int
	Err        error
	Details    map[string]string
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// Error constructors for common service errors

func NewBuyerNotFoundError(id string) *ServiceError {
	return &ServiceError{
		Code:       models.ErrorCodeNotFound,
		Message:    fmt.Sprintf("buyer '%s' not found", id),
		StatusCode: http.StatusNotFound,
	}
}

func NewInvalidRequestError(message string, err error) *ServiceError {
	return &ServiceError{
		Code:       models.ErrorCodeBadRequest,
		Message:    message,
		StatusCode: http.StatusBadRequest,
		Err:        err,
	}
}

// NewValidationError reports field-level failures; each entry in errs ends up
// in the response details.
func NewValidationError(errs models.ValidationErrors) *ServiceError {
	return &ServiceError{
		Code:       models.ErrorCodeValidation,
		Message:    "Validation failed",
		StatusCode: http.StatusBadRequest,
		Err:        errs,
		Details:    errs,
	}
}

func NewInternalError(message string, err error) *ServiceError {
	return &ServiceError{
		Code:       models.ErrorCodeInternalError,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Err:        err,
	}
}

func NewConflictError(message string) *ServiceError {
	return &ServiceError{
		Code:       models.ErrorCodeConflict,
		Message:    message,
		StatusCode: http.StatusConflict,
	}
}
