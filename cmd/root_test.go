package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"copilotauth/internal/auth"

	"github.com/stretchr/testify/assert"
)

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{
			name: "generic error",
			err:  errors.New("boom"),
			want: ExitCodeError,
		},
		{
			name: "auth required",
			err:  &authRequiredError{Message: "no credentials"},
			want: ExitCodeAuthRequired,
		},
		{
			name: "auth failed",
			err:  &auth.AuthenticationError{Reason: "denied"},
			want: ExitCodeAuthFailed,
		},
		{
			name: "wrapped auth required",
			err:  fmt.Errorf("status: %w", &authRequiredError{Message: "missing"}),
			want: ExitCodeAuthRequired,
		},
		{
			name: "wrapped auth failed",
			err:  fmt.Errorf("login: %w", &auth.AuthenticationError{Reason: "rejected"}),
			want: ExitCodeAuthFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, getExitCode(tt.err))
		})
	}
}

func TestVersionCommand(t *testing.T) {
	SetVersion("1.2.3")
	defer SetVersion("")

	var out bytes.Buffer
	cmd := newVersionCmd()
	cmd.SetOut(&out)
	cmd.Run(cmd, nil)

	assert.Equal(t, "copilot-auth version 1.2.3\n", out.String())
	assert.Equal(t, "1.2.3", GetVersion())
}

func TestAuthRequiredErrorMessage(t *testing.T) {
	err := &authRequiredError{Message: "run login first"}
	assert.Equal(t, "authentication required: run login first", err.Error())
}

func TestYesNo(t *testing.T) {
	assert.Equal(t, "yes", yesNo(true))
	assert.Equal(t, "no", yesNo(false))
}
