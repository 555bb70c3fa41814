package session

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/Hersthz/SWP391---EV-Charging-Station-Management-System-sub001/internal/shared"
)

// StatusError is returned for any non-2xx response.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Headers    http.Header
	Body       []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.StatusCode)
}

func (e *StatusError) Unwrap() error {
	switch {
	case e.StatusCode == http.StatusUnauthorized:
		return shared.ErrUnauthorized
	case e.StatusCode == http.StatusServiceUnavailable:
		return shared.ErrServiceUnavailable
	default:
		return shared.ErrAPIRequest
	}
}

// AuthRedirectError is the synthetic failure for a 2xx login page served in place of an API payload.
//
// Blocked is set when critical mode kept the client from navigating to login.
type AuthRedirectError struct {
	Path        string
	ContentType string
	Blocked     bool
}

func (e *AuthRedirectError) Error() string {
	if e.Blocked {
		return fmt.Sprintf("%s: login redirect blocked during critical operation", e.Path)
	}
	return fmt.Sprintf("%s: auth gateway returned %s instead of an API response", e.Path, e.ContentType)
}

func (e *AuthRedirectError) Unwrap() []error {
	errs := []error{shared.ErrAuthRedirect, shared.ErrUnauthorized}
	if e.Blocked {
		errs = append(errs, shared.ErrCriticalActive)
	}
	return errs
}

// StatusOf returns the HTTP status carried by err, or 0 for transport-level failures.
//
// A disguised auth failure reports 401 so it is coordinated like one.
func StatusOf(err error) int {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode
	}

	var redirectErr *AuthRedirectError
	if errors.As(err, &redirectErr) {
		return http.StatusUnauthorized
	}

	return 0
}
