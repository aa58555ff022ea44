package xerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Common reusable application errors
var (
	ErrNotFound        = errors.New("resource not found")
	ErrUnauthorized    = errors.New("unauthorized access")
	ErrForbidden       = errors.New("access denied")
	ErrInvalidInput    = errors.New("invalid input")
	ErrConflict        = errors.New("conflict")
	ErrInternal        = errors.New("internal server error")
	ErrRateLimited     = errors.New("too many requests")
	ErrQuotaExceeded   = errors.New("quota exceeded")
	ErrNothingToUpdate = errors.New("nothing to update: provide at least one valid field")
	ErrSchemaDrift     = errors.New("database schema is out of date: run pending migrations")
)

// Stable machine-readable reasons returned alongside error responses.
const (
	ReasonUnauthenticated = "unauthenticated"
	ReasonNotFound        = "not_found"
	ReasonAccessDenied    = "access_denied"
	ReasonQuotaExceeded   = "quota_exceeded"
	ReasonValidation      = "validation_error"
	ReasonNothingToUpdate = "nothing_to_update"
	ReasonConflict        = "conflict"
	ReasonRateLimited     = "rate_limited"
	ReasonSchemaDrift     = "schema_drift"
	ReasonInternal        = "internal_error"
)

// QuotaExceededError is returned when the entitlement gate denies a metered action.
// Reason is human readable and distinguishes a missing subscription from an
// exhausted quota; Code is the matching machine-readable decision code.
type QuotaExceededError struct {
	Action string
	Reason string
	Code   string
	Used   int
	Limit  int
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("%s denied: %s", e.Action, e.Reason)
}

func (e *QuotaExceededError) Is(target error) bool {
	return target == ErrQuotaExceeded
}

// Classify maps an error onto an HTTP status and a stable reason string.
// Unknown errors are internal.
func Classify(err error) (int, string) {
	switch {
	case err == nil:
		return http.StatusOK, ""
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized, ReasonUnauthenticated
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound, ReasonNotFound
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden, ReasonAccessDenied
	case errors.Is(err, ErrQuotaExceeded):
		return http.StatusForbidden, ReasonQuotaExceeded
	case errors.Is(err, ErrNothingToUpdate):
		return http.StatusBadRequest, ReasonNothingToUpdate
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest, ReasonValidation
	case errors.Is(err, ErrConflict):
		return http.StatusConflict, ReasonConflict
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, ReasonRateLimited
	case errors.Is(err, ErrSchemaDrift):
		return http.StatusInternalServerError, ReasonSchemaDrift
	default:
		return http.StatusInternalServerError, ReasonInternal
	}
}

// Wrap adds context to an error (similar to fmt.Errorf("%w")).
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Is allows checking whether an error is a specific sentinel error.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// MessageOrDefault returns err.Error() or a fallback message if err is nil.
func MessageOrDefault(err error, fallback string) string {
	if err != nil {
		return err.Error()
	}
	return fallback
}
