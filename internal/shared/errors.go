package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// Session errors
	ErrUnauthorized   = fmt.Errorf("session expired or unauthorized")
	ErrAuthRedirect   = fmt.Errorf("auth gateway redirected to login")
	ErrRefreshFailed  = fmt.Errorf("session refresh failed")
	ErrSessionEnded   = fmt.Errorf("session ended")
	ErrCriticalActive = fmt.Errorf("critical mode active")

	// Transport errors
	ErrTransport          = fmt.Errorf("request failed")
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")

	// Cache errors
	ErrProfileNotFound = fmt.Errorf("cached profile not found")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)
