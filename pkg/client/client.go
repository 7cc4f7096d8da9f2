package client

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
)

type ExtraClaims struct {
	Username string   `json:"username,omitempty"`
	Email    string   `json:"email,omitempty"`
	Roles    []string `json:"roles,omitempty"`
}

// AuthUser is the authenticated caller of a request.
type AuthUser struct {
	UserId      string      `json:"user_id,omitempty"`
	ExtraClaims ExtraClaims `json:"extra_claims,omitempty"`
}

func (i AuthUser) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("user", i.UserId),
		slog.Any("extra_claims", i.ExtraClaims),
	)
}

// HasAnyRole reports whether the user holds at least one of roles.
func (i *AuthUser) HasAnyRole(roles ...string) bool {
	if i == nil {
		return false
	}
	for _, have := range i.ExtraClaims.Roles {
		for _, want := range roles {
			if have == want {
				return true
			}
		}
	}
	return false
}

// contextKey is a value for use with context.WithValue. It's used as
// a pointer so it fits in an interface{} without allocation.
type contextKey struct {
	name string
}

func (k *contextKey) String() string {
	return "backend-resources context value " + k.name
}

var (
	AuthUserKey = &contextKey{"AuthUser"}
	// VerifiedClaimsKey holds claims of a token verified outside jwtauth (OIDC).
	VerifiedClaimsKey = &contextKey{"VerifiedClaims"}
)

// GetAuthUser returns the caller stored by AuthUserMiddleware.
func GetAuthUser(r *http.Request) (*AuthUser, bool) {
	authUser, ok := r.Context().Value(AuthUserKey).(*AuthUser)
	return authUser, ok && authUser != nil
}

// WithAuthUser stores authUser on ctx.
func WithAuthUser(ctx context.Context, authUser *AuthUser) context.Context {
	return context.WithValue(ctx, AuthUserKey, authUser)
}

func LoadFromMap[T any](m map[string]interface{}, c *T) error {
	data, err := json.Marshal(m)
	if err == nil {
		err = json.Unmarshal(data, c)
	}
	return err
}

// keycloakClaims are the standard claims of a Keycloak access token.
type keycloakClaims struct {
	Subject           string `json:"sub"`
	PreferredUsername string `json:"preferred_username"`
	Email             string `json:"email"`
	RealmAccess       struct {
		Roles []string `json:"roles"`
	} `json:"realm_access"`
	Roles []string `json:"roles"`
}

// AuthUserFromClaims builds the caller from verified token claims. Both
// Keycloak access tokens (sub, preferred_username, realm_access.roles) and
// tokens carrying user_id plus extra_claims are understood.
func AuthUserFromClaims(claims map[string]interface{}) (*AuthUser, error) {
	authUser := new(AuthUser)
	if err := LoadFromMap(claims, authUser); err != nil {
		return nil, err
	}

	var kc keycloakClaims
	if err := LoadFromMap(claims, &kc); err != nil {
		return nil, err
	}

	if authUser.UserId == "" {
		authUser.UserId = kc.Subject
	}
	if authUser.ExtraClaims.Username == "" {
		authUser.ExtraClaims.Username = kc.PreferredUsername
	}
	if authUser.ExtraClaims.Email == "" {
		authUser.ExtraClaims.Email = kc.Email
	}
	if len(authUser.ExtraClaims.Roles) == 0 {
		authUser.ExtraClaims.Roles = kc.RealmAccess.Roles
	}
	if len(authUser.ExtraClaims.Roles) == 0 {
		authUser.ExtraClaims.Roles = kc.Roles
	}

	return authUser, nil
}
