// Package models - API response types and error handling.
//
// Response Design Principles:
// - Consistent error structure across all endpoints
// - Machine-readable error codes next to human-readable messages
// - Auth failures never reveal why a credential was rejected
package models

import (
	"time"
)

// ErrorResponse provides structured error information.
type ErrorResponse struct {
	Error     string            `json:"error"`             // Error type (always "error")
	Message   string            `json:"message"`           // Human-readable error description
	Code      string            `json:"code,omitempty"`    // Machine-readable error code
	Details   map[string]string `json:"details,omitempty"` // Field-specific error details
	Timestamp time.Time         `json:"timestamp"`
}

type OKResponse struct {
	OK bool `json:"ok"`
}

// CurrentUserResponse is returned by GET /api/auth. User is null when the
// caller carries no valid session.
type CurrentUserResponse struct {
	User *Identity `json:"user"`
}

type CreateBuyerResponse struct {
	OK    bool   `json:"ok"`
	Buyer *Buyer `json:"buyer"`
}

type ListBuyersResponse struct {
	Buyers   []*Buyer `json:"buyers"`
	Total    int      `json:"total"`
	Page     int      `json:"page"`
	PageSize int      `json:"pageSize"`
}

// BuyerDetailResponse is returned by GET /api/buyers/{id}. History is
// newest first.
type BuyerDetailResponse struct {
	Buyer   *Buyer          `json:"buyer"`
	History []*BuyerHistory `json:"history"`
}

type HealthCheckResponse struct {
	Status     string                     `json:"status"`
	Timestamp  time.Time                  `json:"timestamp"`
	Version    string                     `json:"version,omitempty"`
	Components map[string]ComponentHealth `json:"components,omitempty"`
}

type ComponentHealth struct {
	Status    string    `json:"status"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

const (
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
)

// Standard error codes
const (
	ErrorCodeNotFound          = "NOT_FOUND"           // 404
	ErrorCodeBadRequest        = "BAD_REQUEST"         // 400: malformed request body
	ErrorCodeValidation        = "VALIDATION_ERROR"    // 400: field validation failed
	ErrorCodeInternalError     = "INTERNAL_ERROR"      // 500
	ErrorCodeUnauthorized      = "UNAUTHORIZED"        // 401: no authenticated identity
	ErrorCodeConflict          = "CONFLICT"            // 409
	ErrorCodeRateLimitExceeded = "RATE_LIMIT_EXCEEDED" // 429
)

func NewErrorResponse(message string, code string) *ErrorResponse {
	return &ErrorResponse{
		Error:     "error",
		Message:   message,
		Code:      code,
		Timestamp: time.Now(),
	}
}

// NewValidationErrorResponse reports field-level validation failures.
func NewValidationErrorResponse(errs ValidationErrors) *ErrorResponse {
	resp := NewErrorResponse("Validation failed", ErrorCodeValidation)
	resp.Details = errs
	return resp
}

func NewHealthCheckResponse(status string) *HealthCheckResponse {
	return &HealthCheckResponse{
		Status:     status,
		Timestamp:  time.Now(),
		Components: make(map[string]ComponentHealth),
	}
}

func (h *HealthCheckResponse) AddComponent(name, status, message string) {
	h.Components[name] = ComponentHealth{
		Status:    status,
		Message:   message,
		Timestamp: time.Now(),
	}
}
