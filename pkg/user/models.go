package user

// UserCreateRequest is the body of POST /users.
type UserCreateRequest struct {
	Username  string `json:"username" validate:"required,notblank"`
	FirstName string `json:"firstName" validate:"required,notblank"`
	LastName  string `json:"lastName" validate:"required,notblank"`
	Email     string `json:"email" validate:"required,notblank,email"`
	Password  string `json:"password" validate:"required,notblank"`
}

// UserSummaryResponse is the reduced view returned by GET /users/{id}.
// Roles and Groups are never nil so they always encode as JSON arrays.
type UserSummaryResponse struct {
	FirstName string   `json:"firstName"`
	LastName  string   `json:"lastName"`
	Email     string   `json:"email"`
	Roles     []string `json:"roles"`
	Groups    []string `json:"groups"`
}
