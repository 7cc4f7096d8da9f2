package router

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/tendant/backend-resources/pkg/client"
	"github.com/tendant/backend-resources/pkg/ratelimit"
	userapi "github.com/tendant/backend-resources/pkg/user/api"
)

// Config holds the dependencies needed to setup routes
type Config struct {
	// APIPrefix is prepended to every route, e.g. "/api/v1".
	APIPrefix string

	UserHandle *userapi.Handle

	// Verifier validates the bearer token and leaves its claims on the
	// request context. Either client.Verifier or client.OIDCVerifier.
	Verifier func(http.Handler) http.Handler

	// RequiredRoles gates every /users route. Empty means any
	// authenticated caller.
	RequiredRoles []string

	// RateLimit is optional.
	RateLimit *ratelimit.Middleware
}

// UsersPath returns the mount point of the user routes.
func (cfg Config) UsersPath() string {
	return cfg.APIPrefix + "/users"
}

// SetupRoutes mounts the authenticated user routes on router.
func SetupRoutes(router chi.Router, cfg Config) {
	router.Group(func(r chi.Router) {
		if cfg.Verifier != nil {
			r.Use(cfg.Verifier)
		}
		r.Use(client.AuthUserMiddleware)

		if cfg.RateLimit != nil {
			r.Use(cfg.RateLimit.Handler)
		}

		if len(cfg.RequiredRoles) > 0 {
			r.Use(client.RequireRole(cfg.RequiredRoles...))
		}

		r.Mount(cfg.UsersPath(), userapi.Handler(cfg.UserHandle))
	})

	slog.Info("User routes mounted", "prefix", cfg.UsersPath(), "roles", cfg.RequiredRoles)
}
