package config

import (
	"log/slog"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/tendant/chi-demo/app"
)

const (
	GrantTypePassword          = "password"
	GrantTypeClientCredentials = "client_credentials"
)

// Config is the complete service configuration, read once at start-up.
type Config struct {
	LogLevel  string `env:"LOG_LEVEL" env-default:"info"`
	APIPrefix string `env:"API_PREFIX" env-default:""`

	Keycloak  KeycloakConfig
	Auth      AuthConfig
	Users     UsersConfig
	RateLimit RateLimitConfig

	// Server
	AppConfig app.AppConfig
}

// KeycloakConfig describes how to reach the identity provider admin API.
type KeycloakConfig struct {
	BaseURL string `env:"KEYCLOAK_URL" env-default:"http://localhost:8080"`
	// Realm holding the managed users
	Realm string `env:"KEYCLOAK_REALM" env-default:"backend-resources"`
	// Realm used to obtain the admin token
	AuthRealm    string        `env:"KEYCLOAK_AUTH_REALM" env-default:"master"`
	GrantType    string        `env:"KEYCLOAK_GRANT_TYPE" env-default:"password"`
	ClientID     string        `env:"KEYCLOAK_CLIENT_ID" env-default:"admin-cli"`
	ClientSecret string        `env:"KEYCLOAK_CLIENT_SECRET" env-default:""`
	Username     string        `env:"KEYCLOAK_ADMIN_USERNAME" env-default:"admin"`
	Password     string        `env:"KEYCLOAK_ADMIN_PASSWORD" env-default:""`
	Timeout      time.Duration `env:"KEYCLOAK_TIMEOUT" env-default:"10s"`
}

// TokenURL returns the OpenID Connect token endpoint of the auth realm.
func (c KeycloakConfig) TokenURL() string {
	return strings.TrimRight(c.BaseURL, "/") + "/realms/" + c.AuthRealm + "/protocol/openid-connect/token"
}

// AuthConfig controls how callers are authenticated.
type AuthConfig struct {
	// When set, bearer tokens are verified against the issuer's published keys.
	OIDCIssuer   string `env:"AUTH_OIDC_ISSUER" env-default:""`
	OIDCClientID string `env:"AUTH_OIDC_CLIENT_ID" env-default:""`
	// HS256 secret used when no issuer is configured
	JWTSecret     string   `env:"AUTH_JWT_SECRET" env-default:""`
	RequiredRoles []string `env:"AUTH_REQUIRED_ROLES" env-separator:"," env-default:"MODERATOR"`
}

// UsersConfig holds behavior switches of the user endpoints.
type UsersConfig struct {
	// ExposeNotFound reports unknown users as 404 instead of 500.
	ExposeNotFound bool `env:"USERS_EXPOSE_NOT_FOUND" env-default:"false"`
	// ExposeConflict reports duplicate users as 409 instead of 500.
	ExposeConflict bool `env:"USERS_EXPOSE_CONFLICT" env-default:"false"`
}

// RateLimitConfig contains rate limiting settings.
type RateLimitConfig struct {
	Enabled bool `env:"RATELIMIT_ENABLED" env-default:"true"`

	// Per-IP rate limiting
	PerIPCapacity   int     `env:"RATELIMIT_PER_IP_CAPACITY" env-default:"100"`
	PerIPRefillRate float64 `env:"RATELIMIT_PER_IP_REFILL_RATE" env-default:"1.67"` // tokens per second

	// Per-caller rate limiting (authenticated requests)
	PerUserCapacity   int     `env:"RATELIMIT_PER_USER_CAPACITY" env-default:"200"`
	PerUserRefillRate float64 `env:"RATELIMIT_PER_USER_REFILL_RATE" env-default:"3.33"` // tokens per second

	IncludeHeaders bool `env:"RATELIMIT_INCLUDE_HEADERS" env-default:"true"`
}

// Load reads the configuration from the environment and validates it.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks every section and reports all problems at once.
func (c *Config) Validate() error {
	return Validate(
		func() ValidationErrors {
			return CollectErrors(
				RequireOneOf("LOG_LEVEL", strings.ToLower(c.LogLevel), []string{"debug", "info", "warn", "error"}),
				WhenSet(c.APIPrefix, func() *ValidationError {
					if !strings.HasPrefix(c.APIPrefix, "/") {
						return &ValidationError{Field: "API_PREFIX", Message: "must start with /"}
					}
					return nil
				}),
			)
		},
		c.Keycloak.validate,
		c.Auth.validate,
		c.RateLimit.validate,
	)
}

// SlogLevel converts LogLevel to a slog.Level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (c KeycloakConfig) validate() ValidationErrors {
	errs := CollectErrors(
		RequireValidURL("KEYCLOAK_URL", c.BaseURL),
		RequireNonEmpty("KEYCLOAK_REALM", c.Realm),
		RequireNonEmpty("KEYCLOAK_AUTH_REALM", c.AuthRealm),
		RequireNonEmpty("KEYCLOAK_CLIENT_ID", c.ClientID),
		RequireOneOf("KEYCLOAK_GRANT_TYPE", c.GrantType, []string{GrantTypePassword, GrantTypeClientCredentials}),
		RequirePositiveDuration("KEYCLOAK_TIMEOUT", c.Timeout),
	)
	switch c.GrantType {
	case GrantTypePassword:
		errs = append(errs, CollectErrors(
			RequireNonEmpty("KEYCLOAK_ADMIN_USERNAME", c.Username),
			RequireNonEmpty("KEYCLOAK_ADMIN_PASSWORD", c.Password),
		)...)
	case GrantTypeClientCredentials:
		errs = append(errs, CollectErrors(
			RequireNonEmpty("KEYCLOAK_CLIENT_SECRET", c.ClientSecret),
		)...)
	}
	return errs
}

func (c AuthConfig) validate() ValidationErrors {
	errs := CollectErrors(
		WhenSet(c.OIDCIssuer, func() *ValidationError {
			return RequireValidURL("AUTH_OIDC_ISSUER", c.OIDCIssuer)
		}),
		RequireNonEmptySlice("AUTH_REQUIRED_ROLES", c.RequiredRoles),
	)
	if c.OIDCIssuer == "" && c.JWTSecret == "" {
		errs = append(errs, ValidationError{
			Field:   "AUTH_JWT_SECRET",
			Message: "is required when AUTH_OIDC_ISSUER is not set",
		})
	}
	return errs
}

func (c RateLimitConfig) validate() ValidationErrors {
	if !c.Enabled {
		return nil
	}
	return CollectErrors(
		RequirePositive("RATELIMIT_PER_IP_CAPACITY", c.PerIPCapacity),
		RequirePositive("RATELIMIT_PER_USER_CAPACITY", c.PerUserCapacity),
		requirePositiveRate("RATELIMIT_PER_IP_REFILL_RATE", c.PerIPRefillRate),
		requirePositiveRate("RATELIMIT_PER_USER_REFILL_RATE", c.PerUserRefillRate),
	)
}
