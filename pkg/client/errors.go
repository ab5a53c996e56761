package client

import (
	"errors"
	"fmt"
)

// Common errors returned by the client.
var (
	// ErrRequestBlocked is returned while a rate limit back-off window is open.
	ErrRequestBlocked = errors.New("request blocked: rate limit back-off")
)

// APIError represents a failed marketplace request with additional context.
type APIError struct {
	StatusCode int
	ErrorClass ErrorClass
	Message    string
	Err        error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("marketplace %s error (status %d): %s: %v",
			e.ErrorClass, e.StatusCode, e.Message, e.Err)
	}
	return fmt.Sprintf("marketplace %s error (status %d): %s",
		e.ErrorClass, e.StatusCode, e.Message)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *APIError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether the error class may succeed on a later attempt.
// The client itself never retries; callers decide.
func IsTransient(errorClass ErrorClass) bool {
	switch errorClass {
	case ErrorClassServer, ErrorClassRateLimit, ErrorClassNetwork:
		return true
	default:
		return false
	}
}

// Transient reports whether err, anywhere in its chain, is a request
// failure that may succeed later: a transient *APIError or a request
// blocked by the back-off window.
func Transient(err error) bool {
	if errors.Is(err, ErrRequestBlocked) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return IsTransient(apiErr.ErrorClass)
	}
	return false
}
