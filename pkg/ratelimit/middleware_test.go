package ratelimit

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/backend-resources/pkg/client"
	"github.com/tendant/backend-resources/pkg/config"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func serve(h http.Handler, ip, userID string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/users/hello", nil)
	req.RemoteAddr = ip + ":1234"
	if userID != "" {
		req = req.WithContext(client.WithAuthUser(req.Context(), &client.AuthUser{UserId: userID}))
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestMiddleware_PerIP(t *testing.T) {
	m := NewMiddleware(&Config{
		PerIPEnabled:    true,
		PerIPCapacity:   2,
		PerIPRefillRate: 0.001,
		IncludeHeaders:  true,
	})
	defer m.Stop()
	h := m.Handler(okHandler)

	w := serve(h, "10.0.0.1", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "2", w.Header().Get("X-RateLimit-Limit-IP"))
	assert.Equal(t, http.StatusOK, serve(h, "10.0.0.1", "").Code)

	w = serve(h, "10.0.0.1", "")
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "RATE_LIMIT_EXCEEDED", body["code"])
	assert.Equal(t, "ip", body["details"].(map[string]interface{})["type"])

	// another client is unaffected
	assert.Equal(t, http.StatusOK, serve(h, "10.0.0.2", "").Code)
}

func TestMiddleware_PerUser(t *testing.T) {
	m := NewMiddleware(&Config{
		PerUserEnabled:    true,
		PerUserCapacity:   1,
		PerUserRefillRate: 0.001,
	})
	defer m.Stop()
	h := m.Handler(okHandler)

	assert.Equal(t, http.StatusOK, serve(h, "10.0.0.1", "alice").Code)
	// same caller from another address is still limited
	assert.Equal(t, http.StatusTooManyRequests, serve(h, "10.0.0.2", "alice").Code)
	assert.Equal(t, http.StatusOK, serve(h, "10.0.0.1", "bob").Code)
	// anonymous requests are not counted per user
	assert.Equal(t, http.StatusOK, serve(h, "10.0.0.1", "").Code)
}

func TestMiddleware_Disabled(t *testing.T) {
	m := NewMiddleware(ConfigFrom(config.RateLimitConfig{Enabled: false}))
	h := m.Handler(okHandler)

	for i := 0; i < 10; i++ {
		assert.Equal(t, http.StatusOK, serve(h, "10.0.0.1", "alice").Code)
	}
	assert.Empty(t, m.GetStats())
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name     string
		headers  map[string]string
		remote   string
		expected string
	}{
		{name: "forwarded for", headers: map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.1"}, remote: "10.0.0.1:80", expected: "203.0.113.7"},
		{name: "real ip", headers: map[string]string{"X-Real-IP": " 203.0.113.8 "}, remote: "10.0.0.1:80", expected: "203.0.113.8"},
		{name: "remote addr", remote: "192.0.2.1:5555", expected: "192.0.2.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.expected, getClientIP(req))
		})
	}
}
