package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Common error types for the inventory admin client
var (
	// Authentication errors
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")

	// Token errors
	ErrInvalidToken   = errors.New("invalid token")
	ErrMalformedToken = errors.New("malformed token")

	// Session errors
	ErrSessionExpired = errors.New("session expired, please log in again")
	ErrNotLoggedIn    = errors.New("not logged in")

	// Navigation errors
	ErrRouteNotFound       = errors.New("route not found")
	ErrNavigationCancelled = errors.New("navigation cancelled")
	ErrTooManyRedirects    = errors.New("too many redirects")

	// General errors
	ErrNotFound       = errors.New("not found")
	ErrInvalidRequest = errors.New("invalid request")
	ErrInternal       = errors.New("internal error")
)

// APIError is a non-2xx response from the backend.
type APIError struct {
	Status  int    // HTTP status code
	Message string // Server provided message, may be empty
	Path    string // Request path
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %d %s", e.Path, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: %d %s", e.Path, e.Status, http.StatusText(e.Status))
}

// Is lets callers match an APIError against the status sentinels.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.Status == http.StatusUnauthorized
	case ErrForbidden:
		return e.Status == http.StatusForbidden
	case ErrNotFound:
		return e.Status == http.StatusNotFound
	case ErrInvalidRequest:
		return e.Status == http.StatusBadRequest || e.Status == http.StatusUnprocessableEntity
	}
	return false
}

// Message returns the server provided message carried by err, or fallback.
func Message(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
