// Package config loads and validates the backend-resources configuration.
//
// Configuration comes from environment variables (optionally seeded from a
// .env file by the binary) and is read once with cleanenv:
//
//	cfg, err := config.Load()
//	if err != nil {
//		slog.Error("Invalid configuration", "error", err)
//		os.Exit(1)
//	}
//
// Validation collects every problem before failing, so a misconfigured
// deployment reports all missing keys in one go:
//
//	configuration validation failed:
//	  - KEYCLOAK_ADMIN_PASSWORD: is required
//	  - AUTH_JWT_SECRET: is required when AUTH_OIDC_ISSUER is not set
//
// # Identity provider
//
// KEYCLOAK_GRANT_TYPE selects how the admin token is obtained:
//   - password: KEYCLOAK_ADMIN_USERNAME and KEYCLOAK_ADMIN_PASSWORD against
//     KEYCLOAK_CLIENT_ID (admin-cli by default)
//   - client_credentials: KEYCLOAK_CLIENT_ID and KEYCLOAK_CLIENT_SECRET of a
//     service-account client
package config
