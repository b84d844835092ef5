package client

import (
	"errors"
	"strings"
	"testing"
)

func TestShouldRetry(t *testing.T) {
	tests := []struct {
		name       string
		errorClass ErrorClass
		expected   bool
	}{
		{"client error should not retry", ErrorClassClient, false},
		{"server error should retry", ErrorClassServer, true},
		{"rate limit should retry", ErrorClassRateLimit, true},
		{"network error should retry", ErrorClassNetwork, true},
		{"open circuit should not retry", ErrorClassCircuitOpen, false},
		{"empty error class should not retry", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := shouldRetry(tt.errorClass)
			if result != tt.expected {
				t.Errorf("shouldRetry(%q) = %v, want %v", tt.errorClass, result, tt.expected)
			}
		})
	}
}

func TestCatalogError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *CatalogError
		contains []string
	}{
		{
			name: "error with wrapped error",
			err: &CatalogError{
				StatusCode: 500,
				ErrorClass: ErrorClassServer,
				Message:    "500 Internal Server Error",
				Err:        errors.New("upstream"),
			},
			contains: []string{"server", "status 500", "upstream"},
		},
		{
			name: "error without wrapped error",
			err: &CatalogError{
				StatusCode: 404,
				ErrorClass: ErrorClassClient,
				Message:    "Anime not found",
			},
			contains: []string{"client", "status 404", "Anime not found"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, want := range tt.contains {
				if !strings.Contains(msg, want) {
					t.Errorf("Error() = %q, missing %q", msg, want)
				}
			}
		})
	}
}

func TestCatalogError_Unwrap(t *testing.T) {
	inner := errors.New("connection refused")
	err := &CatalogError{ErrorClass: ErrorClassNetwork, Err: inner}

	if !errors.Is(err, inner) {
		t.Error("errors.Is should find the wrapped error")
	}

	open := &CatalogError{ErrorClass: ErrorClassCircuitOpen, Err: ErrCircuitOpen}
	if !errors.Is(open, ErrCircuitOpen) {
		t.Error("errors.Is should find ErrCircuitOpen")
	}
}
