package maevex

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"
)

// TestDeviceErrorMessage tests error string formatting
func TestDeviceErrorMessage(t *testing.T) {
	plain := NewValidationError("bad name")
	if plain.Error() != "Validation Error: bad name" {
		t.Errorf("Error() = %q", plain.Error())
	}

	wrapped := NewParseError("bad payload", errors.New("unexpected EOF"))
	want := "Parse Error: bad payload (caused by: unexpected EOF)"
	if wrapped.Error() != want {
		t.Errorf("Error() = %q, want %q", wrapped.Error(), want)
	}
}

// TestDeviceErrorUnwrap tests that errors.Is sees through DeviceError
func TestDeviceErrorUnwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := NewNetworkError("request failed", fmt.Errorf("transport: %w", cause))

	if !errors.Is(err, cause) {
		t.Error("errors.Is should find the wrapped cause")
	}
}

// TestClassifyNetworkError tests error classification and retryability
func TestClassifyNetworkError(t *testing.T) {
	tests := []struct {
		name          string
		err           error
		wantType      ErrorType
		wantRetryable bool
	}{
		{
			name:          "Context cancellation is a timeout, not retryable",
			err:           context.Canceled,
			wantType:      ErrTypeTimeout,
			wantRetryable: false,
		},
		{
			name:          "Deadline exceeded is a timeout",
			err:           context.DeadlineExceeded,
			wantType:      ErrTypeTimeout,
			wantRetryable: false,
		},
		{
			name:          "DNS failure is not retryable",
			err:           &net.DNSError{Name: "encoder.local", Err: "no such host"},
			wantType:      ErrTypeNetwork,
			wantRetryable: false,
		},
		{
			name:          "Generic error is a retryable network error",
			err:           errors.New("connection reset"),
			wantType:      ErrTypeNetwork,
			wantRetryable: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			devErr := classifyNetworkError(tt.err, "10.0.0.1")
			if devErr.Type != tt.wantType {
				t.Errorf("Type = %v, want %v", devErr.Type, tt.wantType)
			}
			if devErr.Retryable != tt.wantRetryable {
				t.Errorf("Retryable = %v, want %v", devErr.Retryable, tt.wantRetryable)
			}
			if devErr.Host != "10.0.0.1" {
				t.Errorf("Host = %q, want %q", devErr.Host, "10.0.0.1")
			}
		})
	}
}

// TestHTTPErrorRetryability tests that only server errors retry
func TestHTTPErrorRetryability(t *testing.T) {
	tests := []struct {
		code      int
		retryable bool
	}{
		{400, false},
		{404, false},
		{500, true},
		{502, true},
		{503, true},
	}

	for _, tt := range tests {
		err := NewHTTPError(tt.code, "status")
		if IsRetryable(err) != tt.retryable {
			t.Errorf("status %d: IsRetryable = %v, want %v", tt.code, IsRetryable(err), tt.retryable)
		}
	}
}

// TestErrorPredicates tests the Is* helpers
func TestErrorPredicates(t *testing.T) {
	if !IsAuthError(NewAuthError("denied")) {
		t.Error("IsAuthError failed on auth error")
	}
	if !IsValidationError(NewValidationError("bad")) {
		t.Error("IsValidationError failed on validation error")
	}
	if !IsNetworkError(NewNetworkError("down", errors.New("x"))) {
		t.Error("IsNetworkError failed on network error")
	}
	if IsAuthError(errors.New("plain")) || IsValidationError(nil) || IsRetryable(nil) {
		t.Error("predicates should be false for non-device errors")
	}

	// Predicates must see through wrapping
	wrapped := fmt.Errorf("operation failed: %w", NewAuthError("denied"))
	if !IsAuthError(wrapped) {
		t.Error("IsAuthError should see through fmt.Errorf wrapping")
	}
}
