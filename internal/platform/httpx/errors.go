// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"

	"github.com/parley-chat/parley/internal/shared"
)

// RespondError maps domain errors to HTTP responses using RFC7807.
// Messages go through shared.UserSafeMessage so internals never leak.
func RespondError(w http.ResponseWriter, err error) {
	detail := shared.UserSafeMessage(err)
	switch {
	case errors.Is(err, shared.ErrInvalidInput):
		Problem(w, http.StatusBadRequest, "Validation Failed", detail)
	case errors.Is(err, shared.ErrInvalidCredentials),
		errors.Is(err, shared.ErrAccountInactive),
		errors.Is(err, shared.ErrAccountUnverified),
		errors.Is(err, shared.ErrApplicationToken):
		Problem(w, http.StatusUnauthorized, "Unauthorized", detail)
	case errors.Is(err, shared.ErrTenantMismatch), errors.Is(err, shared.ErrPermissionDenied):
		Problem(w, http.StatusForbidden, "Forbidden", detail)
	case errors.Is(err, shared.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", detail)
	case errors.Is(err, shared.ErrDuplicate):
		Problem(w, http.StatusConflict, "Duplicate", detail)
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
