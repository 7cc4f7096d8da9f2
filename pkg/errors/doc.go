// Package errors provides structured error handling with error codes for
// backend-resources.
//
// Services return *Error values carrying a typed code, a client-safe message,
// optional per-field details and the wrapped cause. HTTP handlers translate
// the code into a status with MapErrorCodeToHTTPStatus.
//
// # Basic Usage
//
//	err := errors.ValidationFailed(map[string]interface{}{
//		"email": "must be a valid email address",
//	})
//
//	rep, err := provider.GetUser(ctx, realm, id)
//	if err != nil {
//		return errors.UpstreamUnavailable(err)
//	}
//
// # Error Codes
//
// The user endpoints use:
//   - ErrCodeValidationFailed → 400 Bad Request
//   - ErrCodeInvalidFormat → 400 Bad Request
//   - ErrCodeUserNotFound → 404 Not Found
//   - ErrCodeUserAlreadyExists → 409 Conflict
//   - ErrCodeUpstreamUnavailable → 500 Internal Server Error
//
// # Error Inspection
//
//	if errors.IsCode(err, errors.ErrCodeUserNotFound) {
//		// Handle not found case
//	}
//
//	code := errors.GetCode(err)
//	details := errors.GetDetails(err)
package errors
