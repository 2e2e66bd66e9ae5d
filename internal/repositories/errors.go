package repositories

import (
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
)

// NotFound returns a 404 error for a missing entity, suggestion, alias or job
func NotFound(format string, args ...any) error {
	return httperror.NewHTTPErrorf(http.StatusNotFound, format, args...)
}

// InvalidState returns a 409 error for acting on a record in the wrong state
func InvalidState(format string, args ...any) error {
	return httperror.NewHTTPErrorf(http.StatusConflict, format, args...)
}

// BadRequest returns a 400 error for malformed input
func BadRequest(format string, args ...any) error {
	return httperror.NewHTTPErrorf(http.StatusBadRequest, format, args...)
}

// PartialFailure returns the error raised when a best-effort sub-step failed
// and the caller asked for the whole operation to abort
func PartialFailure(format string, args ...any) error {
	return httperror.NewHTTPErrorf(http.StatusInternalServerError, "partial failure: "+format, args...)
}

// Internal returns a 500 error for store failures
func Internal(msg string) error {
	return httperror.NewHTTPError(http.StatusInternalServerError, msg)
}

func IsNotFound(err error) bool {
	return hasStatus(err, http.StatusNotFound)
}

func IsInvalidState(err error) bool {
	return hasStatus(err, http.StatusConflict)
}

func IsBadRequest(err error) bool {
	return hasStatus(err, http.StatusBadRequest)
}

func hasStatus(err error, status int) bool {
	if err == nil || !httperror.IsHTTPError(err) {
		return false
	}
	return httperror.GetStatusCode(err) == status
}
