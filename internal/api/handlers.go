package api

import (
	"encoding/json"
	"errors"
	"leads/internal/buyers"
	"leads/internal/models"
	"leads/internal/session"
	"leads/internal/storage"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/getsentry/sentry-go"
	"github.com/gorilla/mux"
)

const maxJSONBodyBytes = 1 << 20

// Handlers contains HTTP handlers for the leads API
type Handlers struct {
	buyers   buyers.ServiceInterface
	sessions *session.Manager
	storage  storage.Storage
	version  string
}

// NewHandlers creates a new handlers instance
func NewHandlers(buyerService buyers.ServiceInterface, sessions *session.Manager, store storage.Storage, version string) *Handlers {
	return &Handlers{
		buyers:   buyerService,
		sessions: sessions,
		storage:  store,
		version:  version,
	}
}

// Login handles sign-in requests
// POST /api/auth
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeErrorResponse(w, http.StatusBadRequest, models.ErrorCodeBadRequest, "invalid")
		return
	}

	id, err := h.buyers.Login(r.Context(), &req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	if _, err := h.sessions.Issue(w, *id); err != nil {
		sentry.CaptureException(err)
		slog.ErrorContext(r.Context(), "Failed to issue session", "error", err)
		h.writeErrorResponse(w, http.StatusInternalServerError, models.ErrorCodeInternalError, "Failed to sign in")
		return
	}

	slog.InfoContext(r.Context(), "User signed in", "user_id", id.ID)
	h.writeJSONResponse(w, http.StatusOK, models.OKResponse{OK: true})
}

// CurrentUser returns the identity carried by the request, or null
// GET /api/auth
func (h *Handlers) CurrentUser(w http.ResponseWriter, r *http.Request) {
	h.writeJSONResponse(w, http.StatusOK, models.CurrentUserResponse{User: h.sessions.Identify(r)})
}

// Logout clears the session cookie and revokes the presented token
// DELETE /api/auth
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Revoke(r.Context(), w, r); err != nil {
		// The cookie is already cleared; the token stays usable until it
		// expires from clients that kept a copy.
		sentry.CaptureException(err)
		slog.ErrorContext(r.Context(), "Failed to revoke session", "error", err)
	}
	h.writeJSONResponse(w, http.StatusOK, models.OKResponse{OK: true})
}

// ListBuyers handles buyer list requests
// GET /api/buyers
// Requires authentication
func (h *Handlers) ListBuyers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := &models.ListBuyersRequest{
		City:         q.Get("city"),
		PropertyType: q.Get("propertyType"),
		Status:       q.Get("status"),
		Timeline:     q.Get("timeline"),
		Query:        q.Get("q"),
	}
	if page, err := strconv.Atoi(q.Get("page")); err == nil {
		req.Page = page
	}

	resp, err := h.buyers.ListBuyers(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	h.writeJSONResponse(w, http.StatusOK, resp)
}

// CreateBuyer handles buyer creation requests
// POST /api/buyers
// Requires authentication; rate limited per client
func (h *Handlers) CreateBuyer(w http.ResponseWriter, r *http.Request) {
	id := IdentityFromContext(r.Context())
	if id == nil {
		h.writeErrorResponse(w, http.StatusUnauthorized, models.ErrorCodeUnauthorized, "Authentication required")
		return
	}

	owner, err := h.buyers.ResolveOwner(r.Context(), *id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	var req models.CreateBuyerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeErrorResponse(w, http.StatusBadRequest, models.ErrorCodeBadRequest, "Invalid JSON body")
		return
	}

	buyer, err := h.buyers.CreateBuyer(r.Context(), owner, id.Email, &req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	h.writeJSONResponse(w, http.StatusOK, models.CreateBuyerResponse{OK: true, Buyer: buyer})
}

// GetBuyer returns a buyer with its change history
// GET /api/buyers/{id}
// Requires authentication
func (h *Handlers) GetBuyer(w http.ResponseWriter, r *http.Request) {
	resp, err := h.buyers.GetBuyer(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	h.writeJSONResponse(w, http.StatusOK, resp)
}

// HealthCheck handles health check requests
// GET /health
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response := models.NewHealthCheckResponse(models.StatusHealthy)
	response.Version = h.version

	status := http.StatusOK
	if err := h.storage.Ping(r.Context()); err != nil {
		slog.WarnContext(r.Context(), "Storage health check failed", "error", err)
		response.Status = models.StatusUnhealthy
		response.AddComponent("storage", models.StatusUnhealthy, "Storage is unreachable")
		status = http.StatusServiceUnavailable
	} else {
		response.AddComponent("storage", models.StatusHealthy, "Storage is operational")
	}
	response.AddComponent("api", models.StatusHealthy, "API is operational")

	h.writeJSONResponse(w, status, response)
}

// writeJSONResponse writes a JSON response
func (h *Handlers) writeJSONResponse(w http.ResponseWriter, statusCode int, data any) {
	writeJSON(w, statusCode, data)
}

// writeErrorResponse writes an error response
func (h *Handlers) writeErrorResponse(w http.ResponseWriter, statusCode int, errorCode, message string) {
	writeJSON(w, statusCode, models.NewErrorResponse(message, errorCode))
}

// writeServiceError maps a service error onto its HTTP response. Anything
// that is not a *buyers.ServiceError is treated as an internal error.
func (h *Handlers) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var svcErr *buyers.ServiceError
	if !errors.As(err, &svcErr) {
		svcErr = buyers.NewInternalError("Internal server error", err)
	}

	if svcErr.StatusCode >= http.StatusInternalServerError {
		sentry.CaptureException(err)
		slog.ErrorContext(r.Context(), "Request failed", "path", r.URL.Path, "error", err)
	}

	resp := models.NewErrorResponse(svcErr.Message, svcErr.Code)
	resp.Details = svcErr.Details
	writeJSON(w, svcErr.StatusCode, resp)
}

func writeJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Headers are already written.
		slog.Error("Error encoding JSON response", "error", err)
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)
	return json.NewDecoder(r.Body).Decode(dst)
}
