package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"
	"github.com/google/uuid"
	"github.com/tendant/backend-resources/pkg/client"
	apperrors "github.com/tendant/backend-resources/pkg/errors"
	"github.com/tendant/backend-resources/pkg/user"
)

type Handle struct {
	userService    *user.UserService
	exposeNotFound bool
	exposeConflict bool
}

// Option is a function that configures a Handle
type Option func(*Handle)

// WithExposeNotFound reports unknown users as 404. By default they are
// reported as 500 so that lookups do not reveal which ids exist.
func WithExposeNotFound(expose bool) Option {
	return func(h *Handle) {
		h.exposeNotFound = expose
	}
}

// WithExposeConflict reports duplicate users as 409. By default they are
// reported as 500.
func WithExposeConflict(expose bool) Option {
	return func(h *Handle) {
		h.exposeConflict = expose
	}
}

func NewHandle(userService *user.UserService, opts ...Option) *Handle {
	h := &Handle{
		userService: userService,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// PostUsers creates a user
// (POST /users)
func (h *Handle) PostUsers(w http.ResponseWriter, r *http.Request) *Response {
	var request user.UserCreateRequest
	if err := render.DecodeJSON(r.Body, &request); err != nil {
		slog.Warn("Failed to decode create user request", "error", err)
		return h.errorResponse(apperrors.InvalidInput("body", "unable to parse request body"))
	}

	if _, err := h.userService.CreateUser(r.Context(), request); err != nil {
		return h.errorResponse(err)
	}

	return EmptyResponse(http.StatusOK)
}

// GetUser returns the summary of a user
// (GET /users/{id})
func (h *Handle) GetUser(w http.ResponseWriter, r *http.Request, id string) *Response {
	userID, err := uuid.Parse(id)
	if err != nil {
		return h.errorResponse(apperrors.InvalidFormat("id", "must be a UUID"))
	}

	summary, err := h.userService.GetUserByID(r.Context(), userID)
	if err != nil {
		return h.errorResponse(err)
	}

	return JSONResponse(http.StatusOK, summary)
}

// GetHello echoes the id of the authenticated caller
// (GET /users/hello)
func (h *Handle) GetHello(w http.ResponseWriter, r *http.Request) *Response {
	authUser, ok := client.GetAuthUser(r)
	if !ok {
		slog.Error("Failed getting AuthUser", "ok", ok)
		return h.errorResponse(apperrors.Unauthorized(http.StatusText(http.StatusUnauthorized)))
	}

	return TextResponse(http.StatusOK, h.userService.Hello(authUser.UserId))
}

// errorResponse maps a service error to its status and client-safe body.
func (h *Handle) errorResponse(err error) *Response {
	var appErr *apperrors.Error
	if !errors.As(err, &appErr) {
		slog.Error("Unstructured error", "error", err)
		appErr = apperrors.Internal("internal server error")
	}

	if appErr.Code == apperrors.ErrCodeUserNotFound && !h.exposeNotFound {
		slog.Info("User not found", "error", err)
		appErr = apperrors.Internal("internal server error")
	}

	if appErr.Code == apperrors.ErrCodeUserAlreadyExists && !h.exposeConflict {
		slog.Info("User already exists", "error", err)
		appErr = apperrors.Internal("internal server error")
	}

	code := appErr.HTTPStatusCode()

	if code >= http.StatusInternalServerError {
		slog.Error("Request failed", "code", appErr.Code, "error", err)
	}

	return JSONResponse(code, appErr.Response())
}
