package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-chi/jwtauth/v5"
	"github.com/joho/godotenv"
	"github.com/tendant/backend-resources/pkg/client"
	"github.com/tendant/backend-resources/pkg/config"
	"github.com/tendant/backend-resources/pkg/keycloak"
	"github.com/tendant/backend-resources/pkg/ratelimit"
	"github.com/tendant/backend-resources/pkg/router"
	"github.com/tendant/backend-resources/pkg/user"
	userapi "github.com/tendant/backend-resources/pkg/user/api"
	"github.com/tendant/chi-demo/app"
)

func main() {
	level := new(slog.LevelVar)
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		AddSource: true,
		Level:     level,
	}))
	slog.SetDefault(logger)

	slog.Info("Starting backend-resources")

	loadEnvFile()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	level.Set(cfg.SlogLevel())

	kc, err := keycloak.NewClient(cfg.Keycloak)
	if err != nil {
		slog.Error("Failed to create Keycloak client", "error", err)
		os.Exit(1)
	}

	verifier, err := newVerifier(context.Background(), cfg.Auth)
	if err != nil {
		slog.Error("Failed to set up token verification", "error", err)
		os.Exit(1)
	}

	userService := user.NewUserService(kc, cfg.Keycloak.Realm)
	userHandle := userapi.NewHandle(userService,
		userapi.WithExposeNotFound(cfg.Users.ExposeNotFound),
		userapi.WithExposeConflict(cfg.Users.ExposeConflict),
	)

	var rateLimit *ratelimit.Middleware
	if cfg.RateLimit.Enabled {
		rateLimit = ratelimit.NewMiddleware(ratelimit.ConfigFrom(cfg.RateLimit))
		defer rateLimit.Stop()
	}

	server := app.DefaultApp()
	app.RegisterHealthzRoutes(server.R)

	router.SetupRoutes(server.R, router.Config{
		APIPrefix:     cfg.APIPrefix,
		UserHandle:    userHandle,
		Verifier:      verifier,
		RequiredRoles: cfg.Auth.RequiredRoles,
		RateLimit:     rateLimit,
	})

	slog.Info("backend-resources ready",
		"keycloak", cfg.Keycloak.BaseURL,
		"realm", cfg.Keycloak.Realm,
		"users", cfg.APIPrefix+"/users")

	server.Run()
}

// newVerifier prefers the OIDC issuer's keys and falls back to a shared
// HS256 secret.
func newVerifier(ctx context.Context, cfg config.AuthConfig) (func(http.Handler) http.Handler, error) {
	if cfg.OIDCIssuer != "" {
		v, err := client.NewOIDCVerifier(ctx, cfg.OIDCIssuer, cfg.OIDCClientID)
		if err != nil {
			return nil, fmt.Errorf("oidc issuer %s: %w", cfg.OIDCIssuer, err)
		}
		slog.Info("Verifying bearer tokens with OIDC issuer", "issuer", cfg.OIDCIssuer)
		return client.OIDCVerifier(v), nil
	}

	slog.Info("Verifying bearer tokens with HS256 secret")
	return client.Verifier(jwtauth.New("HS256", []byte(cfg.JWTSecret), nil)), nil
}

// loadEnvFile loads environment variables from .env file if it exists
func loadEnvFile() {
	envFile := ".env"
	if execPath, err := os.Executable(); err == nil {
		candidate := filepath.Join(filepath.Dir(execPath), ".env")
		if _, err := os.Stat(candidate); err == nil {
			envFile = candidate
		}
	}

	if _, err := os.Stat(envFile); os.IsNotExist(err) {
		slog.Debug("No .env file found (using environment variables or defaults)")
		return
	}

	slog.Info("Loading configuration from .env file", "path", envFile)
	if err := godotenv.Load(envFile); err != nil {
		slog.Warn("Failed to load .env file", "error", err)
	}
}
