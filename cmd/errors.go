package cmd

import "fmt"

// authRequiredError signals that a command needs stored credentials that are
// not present. Execute maps it to ExitCodeAuthRequired.
type authRequiredError struct {
	Message string
}

func (e *authRequiredError) Error() string {
	return fmt.Sprintf("authentication required: %s", e.Message)
}
