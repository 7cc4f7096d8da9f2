package user

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	apperrors "github.com/tendant/backend-resources/pkg/errors"
	"github.com/tendant/backend-resources/pkg/keycloak"
	"golang.org/x/sync/errgroup"
)

// IdentityProvider is the subset of the Keycloak admin API the service needs.
// Implementations return keycloak.ErrNotFound and keycloak.ErrConflict for
// 404 and 409 answers.
type IdentityProvider interface {
	CreateUser(ctx context.Context, realm string, rep keycloak.UserRepresentation) (string, error)
	GetUser(ctx context.Context, realm, id string) (keycloak.UserRepresentation, error)
	GetRealmRoleMappings(ctx context.Context, realm, id string) ([]keycloak.RoleRepresentation, error)
	GetGroups(ctx context.Context, realm, id string) ([]keycloak.GroupRepresentation, error)
}

type UserService struct {
	provider IdentityProvider
	realm    string
}

func NewUserService(provider IdentityProvider, realm string) *UserService {
	return &UserService{
		provider: provider,
		realm:    realm,
	}
}

// CreateUser validates req and registers it with the identity provider.
// Nothing is sent to the provider when validation fails.
func (s *UserService) CreateUser(ctx context.Context, req UserCreateRequest) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}

	rep, err := BuildUserRepresentation(req, BuildCredential(req.Password))
	if err != nil {
		return "", apperrors.InternalWrap(err, "failed to build user representation")
	}

	id, err := s.provider.CreateUser(ctx, s.realm, rep)
	if err != nil {
		if errors.Is(err, keycloak.ErrConflict) {
			slog.Info("User already exists", "username", req.Username, "realm", s.realm)
			return "", apperrors.UserAlreadyExists(err)
		}
		slog.Error("Failed to create user", "username", req.Username, "realm", s.realm, "error", err)
		return "", apperrors.UpstreamUnavailable(err)
	}

	slog.Info("User created", "userId", id, "username", req.Username, "realm", s.realm)
	return id, nil
}

// GetUserByID assembles the user summary from three provider reads. Roles and
// groups are only fetched once the user is known to exist; if either of them
// fails the whole lookup fails.
func (s *UserService) GetUserByID(ctx context.Context, id uuid.UUID) (UserSummaryResponse, error) {
	userID := id.String()

	rep, err := s.provider.GetUser(ctx, s.realm, userID)
	if err != nil {
		if errors.Is(err, keycloak.ErrNotFound) {
			return UserSummaryResponse{}, apperrors.UserNotFound(userID)
		}
		slog.Error("Failed to get user", "userId", userID, "realm", s.realm, "error", err)
		return UserSummaryResponse{}, apperrors.UpstreamUnavailable(err)
	}

	var (
		roles  []keycloak.RoleRepresentation
		groups []keycloak.GroupRepresentation
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		roles, err = s.provider.GetRealmRoleMappings(gctx, s.realm, userID)
		return err
	})
	g.Go(func() error {
		var err error
		groups, err = s.provider.GetGroups(gctx, s.realm, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		slog.Error("Failed to get user roles or groups", "userId", userID, "realm", s.realm, "error", err)
		return UserSummaryResponse{}, apperrors.UpstreamUnavailable(err)
	}

	return ToSummaryResponse(rep, roles, groups), nil
}

// Hello returns the authenticated caller id unchanged.
func (s *UserService) Hello(callerID string) string {
	return callerID
}
