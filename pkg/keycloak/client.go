package keycloak

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/tendant/backend-resources/pkg/config"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

var (
	// ErrNotFound is returned when the admin API answers 404.
	ErrNotFound = errors.New("keycloak: resource not found")
	// ErrConflict is returned when the admin API answers 409.
	ErrConflict = errors.New("keycloak: resource already exists")
)

const maxErrorBody = 4 << 10

// StatusError is returned for any other unexpected admin API status.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("keycloak: %s %s: unexpected status %d", e.Method, e.Path, e.StatusCode)
}

// Client talks to the Keycloak admin REST API. Every request carries an
// admin bearer token that is fetched once and reused until it expires.
// Client is safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient builds a client authenticating with the grant configured in cfg.
func NewClient(cfg config.KeycloakConfig) (*Client, error) {
	base := &http.Client{Timeout: cfg.Timeout}
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, base)

	ts, err := newTokenSource(ctx, cfg)
	if err != nil {
		return nil, err
	}

	httpClient := oauth2.NewClient(ctx, ts)
	httpClient.Timeout = cfg.Timeout

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: httpClient,
	}, nil
}

func newTokenSource(ctx context.Context, cfg config.KeycloakConfig) (oauth2.TokenSource, error) {
	switch cfg.GrantType {
	case config.GrantTypeClientCredentials:
		cc := &clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.TokenURL(),
			AuthStyle:    oauth2.AuthStyleInParams,
		}
		return cc.TokenSource(ctx), nil
	case config.GrantTypePassword, "":
		conf := &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint: oauth2.Endpoint{
				TokenURL:  cfg.TokenURL(),
				AuthStyle: oauth2.AuthStyleInParams,
			},
		}
		return oauth2.ReuseTokenSource(nil, &passwordTokenSource{
			ctx:      ctx,
			conf:     conf,
			username: cfg.Username,
			password: cfg.Password,
		}), nil
	default:
		return nil, fmt.Errorf("keycloak: unsupported grant type %q", cfg.GrantType)
	}
}

// passwordTokenSource logs in with the admin credentials every time a new
// token is needed.
type passwordTokenSource struct {
	ctx      context.Context
	conf     *oauth2.Config
	username string
	password string
}

func (s *passwordTokenSource) Token() (*oauth2.Token, error) {
	slog.Debug("Requesting keycloak admin token", "tokenURL", s.conf.Endpoint.TokenURL, "username", s.username)
	return s.conf.PasswordCredentialsToken(s.ctx, s.username, s.password)
}

// CreateUser creates rep in realm and returns the id assigned by Keycloak.
func (c *Client) CreateUser(ctx context.Context, realm string, rep UserRepresentation) (string, error) {
	p := usersPath(realm)

	resp, err := c.do(ctx, http.MethodPost, p, rep)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusCreated:
	case http.StatusConflict:
		return "", ErrConflict
	default:
		return "", statusError(resp, http.MethodPost, p)
	}

	location := resp.Header.Get("Location")
	if location == "" {
		return "", errors.New("keycloak: create user: missing Location header")
	}
	return path.Base(location), nil
}

// GetUser reads the user representation.
func (c *Client) GetUser(ctx context.Context, realm, id string) (UserRepresentation, error) {
	var rep UserRepresentation
	err := c.getJSON(ctx, usersPath(realm, id), &rep)
	return rep, err
}

// GetRealmRoleMappings returns the realm-level roles mapped to the user.
func (c *Client) GetRealmRoleMappings(ctx context.Context, realm, id string) ([]RoleRepresentation, error) {
	var mappings MappingsRepresentation
	if err := c.getJSON(ctx, usersPath(realm, id, "role-mappings"), &mappings); err != nil {
		return nil, err
	}
	return mappings.RealmMappings, nil
}

// GetGroups returns the groups the user belongs to.
func (c *Client) GetGroups(ctx context.Context, realm, id string) ([]GroupRepresentation, error) {
	var groups []GroupRepresentation
	if err := c.getJSON(ctx, usersPath(realm, id, "groups"), &groups); err != nil {
		return nil, err
	}
	return groups, nil
}

func (c *Client) getJSON(ctx context.Context, p string, out interface{}) error {
	resp, err := c.do(ctx, http.MethodGet, p, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return ErrNotFound
	default:
		return statusError(resp, http.MethodGet, p)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("keycloak: decode %s: %w", p, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, p string, body interface{}) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("keycloak: encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+p, reader)
	if err != nil {
		return nil, fmt.Errorf("keycloak: new request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("keycloak: %s %s: %w", method, p, err)
	}
	slog.Debug("Keycloak admin request", "method", method, "path", p, "status", resp.StatusCode)
	return resp, nil
}

func statusError(resp *http.Response, method, p string) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &StatusError{
		Method:     method,
		Path:       p,
		StatusCode: resp.StatusCode,
		Body:       string(body),
	}
}

func usersPath(realm string, segments ...string) string {
	var b strings.Builder
	b.WriteString("/admin/realms/")
	b.WriteString(url.PathEscape(realm))
	b.WriteString("/users")
	for _, s := range segments {
		b.WriteString("/")
		b.WriteString(url.PathEscape(s))
	}
	return b.String()
}
