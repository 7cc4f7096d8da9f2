package keycloak

// CredentialTypePassword is the only credential type this service creates.
const CredentialTypePassword = "password"

// UserRepresentation mirrors the admin API user resource.
type UserRepresentation struct {
	ID               string                     `json:"id,omitempty"`
	Username         string                     `json:"username"`
	FirstName        string                     `json:"firstName"`
	LastName         string                     `json:"lastName"`
	Email            string                     `json:"email"`
	Enabled          bool                       `json:"enabled"`
	EmailVerified    bool                       `json:"emailVerified"`
	CreatedTimestamp int64                      `json:"createdTimestamp,omitempty"`
	Credentials      []CredentialRepresentation `json:"credentials,omitempty"`
}

// CredentialRepresentation is a credential attached on user creation.
type CredentialRepresentation struct {
	Type      string `json:"type"`
	Value     string `json:"value"`
	Temporary bool   `json:"temporary"`
}

type RoleRepresentation struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Composite   bool   `json:"composite"`
	ClientRole  bool   `json:"clientRole"`
	ContainerID string `json:"containerId,omitempty"`
}

type GroupRepresentation struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Path string `json:"path"`
}

// ClientMappingsRepresentation holds the roles a user has on one client.
type ClientMappingsRepresentation struct {
	ID       string               `json:"id"`
	Client   string               `json:"client"`
	Mappings []RoleRepresentation `json:"mappings"`
}

// MappingsRepresentation is the body of GET .../users/{id}/role-mappings.
type MappingsRepresentation struct {
	RealmMappings  []RoleRepresentation                    `json:"realmMappings"`
	ClientMappings map[string]ClientMappingsRepresentation `json:"clientMappings,omitempty"`
}
