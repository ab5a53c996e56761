package client

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name       string
		errorClass ErrorClass
		expected   bool
	}{
		{"client error", ErrorClassClient, false},
		{"server error", ErrorClassServer, true},
		{"rate limit", ErrorClassRateLimit, true},
		{"network error", ErrorClassNetwork, true},
		{"empty error class", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTransient(tt.errorClass); got != tt.expected {
				t.Errorf("IsTransient(%q) = %v, want %v", tt.errorClass, got, tt.expected)
			}
		})
	}
}

func TestTransient(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil", nil, false},
		{"plain error", errors.New("boom"), false},
		{"blocked", ErrRequestBlocked, true},
		{"wrapped blocked", fmt.Errorf("page 2: %w", ErrRequestBlocked), true},
		{"server", &APIError{StatusCode: 502, ErrorClass: ErrorClassServer}, true},
		{"wrapped network", fmt.Errorf("fetch: %w", &APIError{ErrorClass: ErrorClassNetwork}), true},
		{"client", &APIError{StatusCode: 404, ErrorClass: ErrorClassClient}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Transient(tt.err); got != tt.expected {
				t.Errorf("Transient(%v) = %v, want %v", tt.err, got, tt.expected)
			}
		})
	}
}

func TestAPIError_Error(t *testing.T) {
	tests := []struct {
		name     string
		apiError *APIError
		expected string
	}{
		{
			name: "error with wrapped error",
			apiError: &APIError{
				StatusCode: 500,
				ErrorClass: ErrorClassServer,
				Message:    "500 Internal Server Error",
				Err:        errors.New("connection reset"),
			},
			expected: "marketplace server error (status 500): 500 Internal Server Error: connection reset",
		},
		{
			name: "error without wrapped error",
			apiError: &APIError{
				StatusCode: 404,
				ErrorClass: ErrorClassClient,
				Message:    "404 Not Found",
			},
			expected: "marketplace client error (status 404): 404 Not Found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.apiError.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestAPIError_Unwrap(t *testing.T) {
	inner := errors.New("inner")
	err := error(&APIError{StatusCode: 502, ErrorClass: ErrorClassServer, Err: inner})

	if !errors.Is(err, inner) {
		t.Error("errors.Is should find the wrapped error")
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != 502 {
		t.Errorf("errors.As failed: %v", apiErr)
	}
}
