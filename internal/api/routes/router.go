package routes

import (
	"net/http"

	"github.com/zatekoja/localeventfinder/internal/api/handlers"
	"github.com/zatekoja/localeventfinder/internal/api/middleware"
	"github.com/zatekoja/localeventfinder/internal/infrastructure/observability"
)

// Router holds all route handlers
type Router struct {
	mux *http.ServeMux

	eventHandler   *handlers.EventHandler
	metricsHandler http.Handler

	rateLimiter    *middleware.RateLimiter
	allowedOrigins []string
	metrics        *observability.Metrics
}

// Options configures the middleware chain
type Options struct {
	// MetricsHandler serves GET /metrics when set
	MetricsHandler http.Handler
	// RateLimiter throttles /api routes when set
	RateLimiter    *middleware.RateLimiter
	AllowedOrigins []string
	Metrics        *observability.Metrics
}

// NewRouter creates a new router
func NewRouter(eventHandler *handlers.EventHandler, opts Options) *Router {
	return &Router{
		mux:            http.NewServeMux(),
		eventHandler:   eventHandler,
		metricsHandler: opts.MetricsHandler,
		rateLimiter:    opts.RateLimiter,
		allowedOrigins: opts.AllowedOrigins,
		metrics:        opts.Metrics,
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes() http.Handler {
	r.mux.HandleFunc("GET /health", r.eventHandler.Health)
	if r.metricsHandler != nil {
		r.mux.Handle("GET /metrics", r.metricsHandler)
	}

	// Event endpoints
	api := http.NewServeMux()
	api.HandleFunc("POST /api/events/search", r.eventHandler.SearchEvents)
	api.HandleFunc("GET /api/events/nearby", r.eventHandler.NearbyEvents)
	api.HandleFunc("GET /api/events/categories", r.eventHandler.ListCategories)
	api.HandleFunc("GET /api/events/sources", r.eventHandler.ListSources)
	api.HandleFunc("GET /api/events/{source}/{id}", r.eventHandler.GetEvent)
	api.HandleFunc("GET /api/events/{id}", r.eventHandler.GetEvent)

	var apiHandler http.Handler = middleware.ObservabilityMiddleware(r.metrics)(api)
	apiHandler = middleware.Compression(apiHandler)
	if r.rateLimiter != nil {
		apiHandler = r.rateLimiter.Limit(apiHandler)
	}
	r.mux.Handle("/api/", apiHandler)

	// Apply middleware in reverse order (last middleware wraps first)
	var handler http.Handler = r.mux
	handler = middleware.LoggingMiddleware(handler)
	handler = middleware.RequestIDMiddleware(handler)

	// CORS wraps everything so preflight requests skip the rate limiter
	handler = middleware.CORSMiddleware(r.allowedOrigins)(handler)

	return handler
}
