package routes

import (
	"net/http"

	"github.com/BradenHooton/gatekeeper/internal/handlers"
	"github.com/BradenHooton/gatekeeper/internal/middleware"
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all application routes.
// A zero RequestsPerMinute leaves /login without the per-IP limiter.
func RegisterRoutes(
	router chi.Router,
	loginHandler *handlers.LoginHandler,
	health http.HandlerFunc,
	rateLimitConfig middleware.RateLimitConfig,
) {
	router.Get("/health", health)

	router.Group(func(r chi.Router) {
		if rateLimitConfig.RequestsPerMinute > 0 {
			r.Use(middleware.RateLimitByIP(rateLimitConfig))
		}
		r.Post("/login", loginHandler.Login)
	})
}
