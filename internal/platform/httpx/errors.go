// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"

	"github.com/cogivn/iwas/internal/access"
	"github.com/cogivn/iwas/internal/shared"
)

// RespondError maps domain errors to HTTP responses using RFC7807.
func RespondError(w http.ResponseWriter, err error) {
	var verr *access.ValidationError
	switch {
	case errors.As(err, &verr):
		Problem(w, http.StatusBadRequest, "Validation Failed", verr.Error())
	case errors.Is(err, shared.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", "resource not found")
	case errors.Is(err, shared.ErrDuplicate):
		Problem(w, http.StatusConflict, "Duplicate", "a record with the same unique value already exists")
	case errors.Is(err, shared.ErrInvalidCredentials):
		Problem(w, http.StatusUnauthorized, "Unauthorized", "invalid credentials")
	case errors.Is(err, shared.ErrForbidden):
		Forbidden(w)
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

// Forbidden writes the uniform denial response.
func Forbidden(w http.ResponseWriter) {
	Problem(w, http.StatusForbidden, "Forbidden", "access denied")
}
