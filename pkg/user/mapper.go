package user

import (
	"fmt"

	"github.com/jinzhu/copier"
	"github.com/tendant/backend-resources/pkg/keycloak"
)

// BuildCredential wraps a plaintext password as a permanent password credential.
func BuildCredential(password string) keycloak.CredentialRepresentation {
	return keycloak.CredentialRepresentation{
		Type:      keycloak.CredentialTypePassword,
		Value:     password,
		Temporary: false,
	}
}

// BuildUserRepresentation converts a create request into an enabled provider
// user carrying exactly one credential. The id is left for the provider to assign.
func BuildUserRepresentation(req UserCreateRequest, cred keycloak.CredentialRepresentation) (keycloak.UserRepresentation, error) {
	var rep keycloak.UserRepresentation
	if err := copier.Copy(&rep, &req); err != nil {
		return keycloak.UserRepresentation{}, fmt.Errorf("copy create request: %w", err)
	}
	rep.ID = ""
	rep.Enabled = true
	rep.Credentials = []keycloak.CredentialRepresentation{cred}
	return rep, nil
}

// ToSummaryResponse projects the provider user, roles and groups onto the
// response shape, keeping the provider's ordering.
func ToSummaryResponse(rep keycloak.UserRepresentation, roles []keycloak.RoleRepresentation, groups []keycloak.GroupRepresentation) UserSummaryResponse {
	resp := UserSummaryResponse{
		FirstName: rep.FirstName,
		LastName:  rep.LastName,
		Email:     rep.Email,
		Roles:     make([]string, 0, len(roles)),
		Groups:    make([]string, 0, len(groups)),
	}
	for _, r := range roles {
		resp.Roles = append(resp.Roles, r.Name)
	}
	for _, g := range groups {
		resp.Groups = append(resp.Groups, g.Name)
	}
	return resp
}
