package ratelimit

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/jwtauth/v5"
	"github.com/go-chi/render"
	"github.com/tendant/backend-resources/pkg/client"
	"github.com/tendant/backend-resources/pkg/config"
	apperrors "github.com/tendant/backend-resources/pkg/errors"
)

const retryAfterSeconds = 60

// Config holds rate limiting configuration
type Config struct {
	PerIPEnabled    bool
	PerIPCapacity   int
	PerIPRefillRate float64 // requests per second

	// Applies to authenticated callers, keyed by user id
	PerUserEnabled    bool
	PerUserCapacity   int
	PerUserRefillRate float64

	// How long to keep inactive buckets in memory
	BucketTTL time.Duration

	IncludeHeaders bool
}

// ConfigFrom converts the env-driven settings into a middleware Config.
func ConfigFrom(c config.RateLimitConfig) *Config {
	return &Config{
		PerIPEnabled:      c.Enabled,
		PerIPCapacity:     c.PerIPCapacity,
		PerIPRefillRate:   c.PerIPRefillRate,
		PerUserEnabled:    c.Enabled,
		PerUserCapacity:   c.PerUserCapacity,
		PerUserRefillRate: c.PerUserRefillRate,
		BucketTTL:         time.Hour,
		IncludeHeaders:    c.IncludeHeaders,
	}
}

// Middleware protects the identity provider from request bursts
type Middleware struct {
	config      *Config
	ipLimiter   *RateLimiter
	userLimiter *RateLimiter
}

// NewMiddleware creates a new rate limiting middleware
func NewMiddleware(config *Config) *Middleware {
	m := &Middleware{config: config}

	if config.PerIPEnabled {
		m.ipLimiter = NewRateLimiter(config.PerIPCapacity, config.PerIPRefillRate, config.BucketTTL)
	}
	if config.PerUserEnabled {
		m.userLimiter = NewRateLimiter(config.PerUserCapacity, config.PerUserRefillRate, config.BucketTTL)
	}

	return m
}

// Handler returns the rate limiting middleware handler. It reads the caller
// set by client.AuthUserMiddleware, so mount it after authentication to get
// per-user limits.
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := getClientIP(r)
		if m.ipLimiter != nil && ip != "" && !m.ipLimiter.Allow(ip) {
			m.rateLimitExceeded(w, r, "ip")
			return
		}

		userID := getUserID(r)
		if m.userLimiter != nil && userID != "" && !m.userLimiter.Allow(userID) {
			m.rateLimitExceeded(w, r, "user")
			return
		}

		if m.config.IncludeHeaders {
			if m.ipLimiter != nil && ip != "" {
				w.Header().Set("X-RateLimit-Limit-IP", strconv.Itoa(m.config.PerIPCapacity))
			}
			if m.userLimiter != nil && userID != "" {
				w.Header().Set("X-RateLimit-Limit-User", strconv.Itoa(m.config.PerUserCapacity))
			}
		}

		next.ServeHTTP(w, r)
	})
}

// Stop releases the limiters' background goroutines
func (m *Middleware) Stop() {
	if m.ipLimiter != nil {
		m.ipLimiter.Stop()
	}
	if m.userLimiter != nil {
		m.userLimiter.Stop()
	}
}

// GetStats returns statistics about all rate limiters
func (m *Middleware) GetStats() map[string]Stats {
	stats := make(map[string]Stats)
	if m.ipLimiter != nil {
		stats["ip"] = m.ipLimiter.GetStats()
	}
	if m.userLimiter != nil {
		stats["user"] = m.userLimiter.GetStats()
	}
	return stats
}

func (m *Middleware) rateLimitExceeded(w http.ResponseWriter, r *http.Request, limitType string) {
	slog.Warn("Rate limit exceeded",
		"type", limitType,
		"ip", getClientIP(r),
		"user", getUserID(r),
		"path", r.URL.Path,
		"method", r.Method,
	)

	retryAfter := strconv.Itoa(retryAfterSeconds)
	w.Header().Set("Retry-After", retryAfter)

	body := apperrors.RateLimitExceeded(retryAfter).WithDetail("type", limitType)
	render.Status(r, http.StatusTooManyRequests)
	render.JSON(w, r, body.Response())
}

// getClientIP extracts the client IP address from the request
func getClientIP(r *http.Request) string {
	// X-Forwarded-For can contain multiple IPs, the first one is the client
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		ip, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(ip)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	// RemoteAddr is "IP:port"
	addr := r.RemoteAddr
	if idx := strings.LastIndex(addr, ":"); idx != -1 {
		return addr[:idx]
	}
	return addr
}

// getUserID returns the authenticated caller id, falling back to the
// subject of a jwtauth-verified token.
func getUserID(r *http.Request) string {
	if authUser, ok := client.GetAuthUser(r); ok {
		return authUser.UserId
	}

	_, claims, err := jwtauth.FromContext(r.Context())
	if err != nil || claims == nil {
		return ""
	}
	if sub, ok := claims["sub"].(string); ok {
		return sub
	}
	return ""
}
