package client

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/jwtauth/v5"
	"github.com/go-chi/render"
	apperrors "github.com/tendant/backend-resources/pkg/errors"
)

// Verifier verifies HS256/RS256 bearer tokens issued for jwtauth.
func Verifier(ja *jwtauth.JWTAuth) func(http.Handler) http.Handler {
	return jwtauth.Verify(ja, jwtauth.TokenFromHeader)
}

// AuthUserMiddleware turns verified claims into an AuthUser on the request
// context. Claims left by the OIDC verifier win over jwtauth's.
// Returns 401 Unauthorized when no valid token was presented.
func AuthUserMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, _ := r.Context().Value(VerifiedClaimsKey).(map[string]interface{})

		if claims == nil {
			_, jwtClaims, err := jwtauth.FromContext(r.Context())
			if err != nil {
				slog.Debug("missing or invalid JWT", "error", err)
				renderError(w, r, apperrors.Unauthorized("missing or invalid token"))
				return
			}
			claims = jwtClaims
		}

		if len(claims) == 0 {
			renderError(w, r, apperrors.Unauthorized("missing token claims"))
			return
		}

		authUser, err := AuthUserFromClaims(claims)
		if err != nil {
			slog.Error("failed to parse token claims", "error", err)
			renderError(w, r, apperrors.Unauthorized("invalid token claims"))
			return
		}

		if authUser.UserId == "" {
			renderError(w, r, apperrors.Unauthorized("missing user ID in token"))
			return
		}

		slog.Debug("authenticated user", "authUser", authUser)

		next.ServeHTTP(w, r.WithContext(WithAuthUser(r.Context(), authUser)))
	})
}

// RequireRole returns a middleware that checks if the authenticated user has any of the specified roles.
// Returns 401 Unauthorized if not authenticated.
// Returns 403 Forbidden if authenticated but missing required role.
// Must be used after AuthUserMiddleware.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authUser, ok := GetAuthUser(r)
			if !ok {
				slog.Debug("Unauthenticated request to role-protected resource", "requiredRoles", roles)
				renderError(w, r, apperrors.Unauthorized(http.StatusText(http.StatusUnauthorized)))
				return
			}

			if !authUser.HasAnyRole(roles...) {
				slog.Warn("User lacks required role",
					"authUser", authUser,
					"requiredRoles", roles)
				renderError(w, r, apperrors.Forbidden("insufficient permissions"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// renderError writes err in the JSON error format used by every route.
func renderError(w http.ResponseWriter, r *http.Request, err *apperrors.Error) {
	render.Status(r, err.HTTPStatusCode())
	render.JSON(w, r, err.Response())
}
