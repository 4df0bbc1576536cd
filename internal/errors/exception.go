package errors

import (
	"errors"
	"net/http"
)

// Exception is a request-scoped business failure. Details carries structured
// context (offending SKUs, current picker) so clients can explain the conflict
// without a second round-trip.
type Exception struct {
	Message    string
	StatusCode int
	Details    map[string]any
}

func (e *Exception) Error() string {
	return e.Message
}

// WithDetails returns a copy of the exception carrying the given context.
func (e *Exception) WithDetails(details map[string]any) *Exception {
	return &Exception{
		Message:    e.Message,
		StatusCode: e.StatusCode,
		Details:    details,
	}
}

func StatusCode(err error) int {
	var appErr *Exception
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}
	return http.StatusInternalServerError
}

func Details(err error) map[string]any {
	var appErr *Exception
	if errors.As(err, &appErr) {
		return appErr.Details
	}
	return nil
}

// Is matches exceptions by message and status, so sentinel values still work
// after WithDetails copies.
func (e *Exception) Is(target error) bool {
	var other *Exception
	if !errors.As(target, &other) {
		return false
	}
	return e.Message == other.Message && e.StatusCode == other.StatusCode
}
