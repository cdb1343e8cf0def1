package auth

import (
	"fmt"
)

// AuthenticationError indicates a usable API key could not be produced:
// no access token is stored, the token was rejected upstream, or the
// derivation exchange failed. Ordinary unapproved/timed-out device flows
// are reported as boolean results, never as this error.
type AuthenticationError struct {
	Reason string
	Err    error
}

// Error implements the error interface.
func (e *AuthenticationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("authentication failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("authentication failed: %s", e.Reason)
}

// Unwrap returns the underlying error for error chain inspection.
func (e *AuthenticationError) Unwrap() error {
	return e.Err
}
