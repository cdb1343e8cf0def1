package deviceflow

import (
	"fmt"
	"net/http"
)

// DeviceCodeError indicates the device code request failed, either at the
// transport level or because the server response was missing one of the
// fields that have no safe default (device_code, user_code,
// verification_uri).
type DeviceCodeError struct {
	Err error
}

// Error implements the error interface.
func (e *DeviceCodeError) Error() string {
	return fmt.Sprintf("device code request failed: %v", e.Err)
}

// Unwrap returns the underlying error for error chain inspection.
func (e *DeviceCodeError) Unwrap() error {
	return e.Err
}

// APIKeyError indicates the key-issuance endpoint refused to mint an API
// key from the access token, or its response could not be used.
type APIKeyError struct {
	// StatusCode is the HTTP status of the issuance response, 0 for
	// transport failures.
	StatusCode int

	Err error
}

// Error implements the error interface.
func (e *APIKeyError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("API key derivation failed (status %d): %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("API key derivation failed: %v", e.Err)
}

// Unwrap returns the underlying error for error chain inspection.
func (e *APIKeyError) Unwrap() error {
	return e.Err
}

// TokenRejected reports whether the issuance endpoint rejected the access
// token itself, meaning the stored token is dead and re-authentication is
// required rather than a retry.
func (e *APIKeyError) TokenRejected() bool {
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}
