package client

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/go-chi/jwtauth/v5"
	apperrors "github.com/tendant/backend-resources/pkg/errors"
)

// NewOIDCVerifier discovers issuer and returns a verifier for its access
// tokens. An empty clientID disables the audience check, since Keycloak
// access tokens are usually issued for the "account" audience.
func NewOIDCVerifier(ctx context.Context, issuer, clientID string) (*oidc.IDTokenVerifier, error) {
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("discover oidc issuer %s: %w", issuer, err)
	}
	return provider.Verifier(&oidc.Config{
		ClientID:          clientID,
		SkipClientIDCheck: clientID == "",
	}), nil
}

// OIDCVerifier verifies the bearer token with verifier and stores its claims
// under VerifiedClaimsKey. Requests without a token pass through so that
// AuthUserMiddleware can reject them; invalid tokens are rejected here.
func OIDCVerifier(verifier *oidc.IDTokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := jwtauth.TokenFromHeader(r)
			if raw == "" {
				next.ServeHTTP(w, r)
				return
			}

			token, err := verifier.Verify(r.Context(), raw)
			if err != nil {
				slog.Warn("Token verification failed", "error", err)
				renderError(w, r, apperrors.Unauthorized("invalid token"))
				return
			}

			var claims map[string]interface{}
			if err := token.Claims(&claims); err != nil {
				slog.Error("failed to decode token claims", "error", err)
				renderError(w, r, apperrors.Unauthorized("invalid token claims"))
				return
			}

			ctx := context.WithValue(r.Context(), VerifiedClaimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
