package api

import (
	"leads/internal/models"
	"net/http"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
)

type routeOptions struct {
	middlewares  []mux.MiddlewareFunc
	writeLimiter func(http.Handler) http.Handler
}

// RouteOption configures optional route behavior.
type RouteOption func(*routeOptions)

// WithOTelMiddleware adds OpenTelemetry HTTP instrumentation middleware.
func WithOTelMiddleware(serviceName string) RouteOption {
	return func(o *routeOptions) {
		o.middlewares = append(o.middlewares, otelmux.Middleware(serviceName,
			otelmux.WithFilter(func(r *http.Request) bool {
				return r.URL.Path != "/health" &&
					r.URL.Path != "/api/health" &&
					r.URL.Path != "/metrics"
			}),
		))
	}
}

// WithRateLimiter guards buyer creation with middleware. It runs before
// authentication, so unauthenticated floods are throttled too.
func WithRateLimiter(middleware func(http.Handler) http.Handler) RouteOption {
	return func(o *routeOptions) {
		o.writeLimiter = middleware
	}
}

// SetupRoutes configures the HTTP routes for the API
func SetupRoutes(handlers *Handlers, opts ...RouteOption) *mux.Router {
	var o routeOptions
	for _, opt := range opts {
		opt(&o)
	}

	router := mux.NewRouter()
	for _, mw := range o.middlewares {
		router.Use(mw)
	}

	authenticated := requireIdentity(handlers.sessions)

	createBuyer := authenticated(http.HandlerFunc(handlers.CreateBuyer))
	if o.writeLimiter != nil {
		createBuyer = o.writeLimiter(createBuyer)
	}

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/auth", handlers.Login).Methods(http.MethodPost)
	api.HandleFunc("/auth", handlers.CurrentUser).Methods(http.MethodGet)
	api.HandleFunc("/auth", handlers.Logout).Methods(http.MethodDelete)
	api.Handle("/buyers", authenticated(http.HandlerFunc(handlers.ListBuyers))).Methods(http.MethodGet)
	api.Handle("/buyers", createBuyer).Methods(http.MethodPost)
	api.Handle("/buyers/{id}", authenticated(http.HandlerFunc(handlers.GetBuyer))).Methods(http.MethodGet)
	api.HandleFunc("/health", handlers.HealthCheck).Methods(http.MethodGet)

	router.HandleFunc("/health", handlers.HealthCheck).Methods(http.MethodGet)

	router.Use(loggingMiddleware)
	router.Use(recoveryMiddleware)

	// Router middleware only wraps matched routes.
	router.MethodNotAllowedHandler = loggingMiddleware(http.HandlerFunc(methodNotAllowedHandler))
	router.NotFoundHandler = loggingMiddleware(http.HandlerFunc(notFoundHandler))

	return router
}

func notFoundHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, models.NewErrorResponse("Not found", models.ErrorCodeNotFound))
}

// methodNotAllowedHandler handles requests with invalid HTTP methods
func methodNotAllowedHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusMethodNotAllowed, models.NewErrorResponse("Method not allowed", models.ErrorCodeBadRequest))
}
