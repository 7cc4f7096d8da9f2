package client

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/jwtauth/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// CreateTestToken creates an HS256 token shaped like a Keycloak access token
func CreateTestToken(userID string, extraClaims ExtraClaims, secret []byte) (string, error) {
	tokenAuth := jwtauth.New("HS256", secret, nil)

	claims := map[string]interface{}{
		"sub":                userID,
		"exp":                time.Now().Add(time.Hour).Unix(),
		"preferred_username": extraClaims.Username,
		"email":              extraClaims.Email,
		"realm_access": map[string]interface{}{
			"roles": extraClaims.Roles,
		},
	}

	_, tokenString, err := tokenAuth.Encode(claims)
	return tokenString, err
}

func TestCreateTestToken(t *testing.T) {
	secret := []byte("test-jwt-secret-key")
	userID := uuid.New().String()

	tokenString, err := CreateTestToken(userID, ExtraClaims{
		Username: "testuser",
		Email:    "test@example.com",
		Roles:    []string{"MODERATOR"},
	}, secret)
	require.NoError(t, err, "Failed to create test token")
	require.NotEmpty(t, tokenString, "Token string should not be empty")

	token, err := jwtauth.New("HS256", secret, nil).Decode(tokenString)
	require.NoError(t, err, "Failed to decode token")

	tokenClaims, err := token.AsMap(context.Background())
	require.NoError(t, err)
	assert.Equal(t, userID, tokenClaims["sub"])
	assert.Equal(t, "testuser", tokenClaims["preferred_username"])
}

func TestAuthUserFromClaims(t *testing.T) {
	userID := "515c3ab4-f966-11ed-be56-0242ac120002"

	tests := []struct {
		name     string
		claims   map[string]interface{}
		expected AuthUser
	}{
		{
			name: "keycloak access token",
			claims: map[string]interface{}{
				"sub":                userID,
				"preferred_username": "johndoe",
				"email":              "test@mail.ru",
				"realm_access": map[string]interface{}{
					"roles": []interface{}{"MODERATOR", "offline_access"},
				},
			},
			expected: AuthUser{
				UserId: userID,
				ExtraClaims: ExtraClaims{
					Username: "johndoe",
					Email:    "test@mail.ru",
					Roles:    []string{"MODERATOR", "offline_access"},
				},
			},
		},
		{
			name: "user_id with extra claims",
			claims: map[string]interface{}{
				"sub":     "ignored",
				"user_id": userID,
				"extra_claims": map[string]interface{}{
					"username": "johndoe",
					"roles":    []interface{}{"ADMIN"},
				},
			},
			expected: AuthUser{
				UserId: userID,
				ExtraClaims: ExtraClaims{
					Username: "johndoe",
					Roles:    []string{"ADMIN"},
				},
			},
		},
		{
			name: "top level roles and non uuid subject",
			claims: map[string]interface{}{
				"sub":   "service-account",
				"roles": []interface{}{"MODERATOR"},
			},
			expected: AuthUser{
				UserId: "service-account",
				ExtraClaims: ExtraClaims{
					Roles: []string{"MODERATOR"},
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			authUser, err := AuthUserFromClaims(tt.claims)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, *authUser)
		})
	}
}

func TestAuthUserFromClaims_InvalidExtraClaims(t *testing.T) {
	_, err := AuthUserFromClaims(map[string]interface{}{
		"sub":          "x",
		"extra_claims": "not-an-object",
	})
	assert.Error(t, err)
}

func authChain(secret []byte, next http.Handler) http.Handler {
	return Verifier(jwtauth.New("HS256", secret, nil))(AuthUserMiddleware(next))
}

func TestAuthUserMiddleware(t *testing.T) {
	secret := []byte("test-jwt-secret-key")
	userID := uuid.New().String()

	var got *AuthUser
	handler := authChain(secret, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = GetAuthUser(r)
		w.WriteHeader(http.StatusOK)
	}))

	t.Run("valid token", func(t *testing.T) {
		token, err := CreateTestToken(userID, ExtraClaims{Username: "johndoe", Roles: []string{"MODERATOR"}}, secret)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		require.NotNil(t, got)
		assert.Equal(t, userID, got.UserId)
		assert.Equal(t, "johndoe", got.ExtraClaims.Username)
		assert.Equal(t, []string{"MODERATOR"}, got.ExtraClaims.Roles)
	})

	t.Run("missing token", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "UNAUTHORIZED", decodeErrorCode(t, w))
	})

	t.Run("wrong secret", func(t *testing.T) {
		token, err := CreateTestToken(userID, ExtraClaims{}, []byte("another-secret"))
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestRequireRole(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := RequireRole("MODERATOR", "ADMIN")(ok)

	tests := []struct {
		name     string
		authUser *AuthUser
		status   int
		code     string
	}{
		{name: "unauthenticated", authUser: nil, status: http.StatusUnauthorized, code: "UNAUTHORIZED"},
		{name: "missing role", authUser: &AuthUser{UserId: "u", ExtraClaims: ExtraClaims{Roles: []string{"USER"}}}, status: http.StatusForbidden, code: "FORBIDDEN"},
		{name: "has role", authUser: &AuthUser{UserId: "u", ExtraClaims: ExtraClaims{Roles: []string{"USER", "ADMIN"}}}, status: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.authUser != nil {
				req = req.WithContext(WithAuthUser(req.Context(), tt.authUser))
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)
			assert.Equal(t, tt.status, w.Code)
			if tt.code != "" {
				assert.Contains(t, w.Header().Get("Content-Type"), "application/json")
				assert.Equal(t, tt.code, decodeErrorCode(t, w))
			}
		})
	}
}

func decodeErrorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.NotEmpty(t, body.Message)
	return body.Code
}

func TestAuthUser_LogValue(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	logger.Info("caller", "authUser", &AuthUser{
		UserId:      "515c3ab4-f966-11ed-be56-0242ac120002",
		ExtraClaims: ExtraClaims{Username: "johndoe", Roles: []string{"MODERATOR"}},
	})

	assert.Contains(t, buf.String(), "authUser.user=515c3ab4-f966-11ed-be56-0242ac120002")
	assert.Contains(t, buf.String(), "authUser.extra_claims=")
}
