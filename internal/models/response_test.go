package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewErrorResponse(t *testing.T) {
	resp := NewErrorResponse("Too many requests", ErrorCodeRateLimitExceeded)

	assert.Equal(t, "error", resp.Error)
	assert.Equal(t, "Too many requests", resp.Message)
	assert.Equal(t, "RATE_LIMIT_EXCEEDED", resp.Code)
	assert.False(t, resp.Timestamp.IsZero())
	assert.Nil(t, resp.Details)
}

func TestNewValidationErrorResponse(t *testing.T) {
	resp := NewValidationErrorResponse(ValidationErrors{"phone": "must be 10 to 15 digits"})

	assert.Equal(t, ErrorCodeValidation, resp.Code)
	assert.Equal(t, "must be 10 to 15 digits", resp.Details["phone"])
}

func TestCurrentUserResponse_NullUser(t *testing.T) {
	data, err := json.Marshal(CurrentUserResponse{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"user":null}`, string(data))

	data, err = json.Marshal(CurrentUserResponse{User: &Identity{ID: "u1", Name: "Alice", Email: "alice@example.com"}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"user":{"id":"u1","name":"Alice","email":"alice@example.com"}}`, string(data))
}

func TestHealthCheckResponse_AddComponent(t *testing.T) {
	h := NewHealthCheckResponse(StatusHealthy)
	h.AddComponent("storage", StatusUnhealthy, "connection refused")

	require.Contains(t, h.Components, "storage")
	assert.Equal(t, StatusUnhealthy, h.Components["storage"].Status)
	assert.Equal(t, "connection refused", h.Components["storage"].Message)
}
