package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"time"

	"copilotauth/internal/auth"

	"github.com/briandowns/spinner"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
)

// Login-specific flags
var (
	loginTimeout time.Duration
	loginForce   bool
)

// loginCmd represents the login command
var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Authenticate with GitHub via the device flow",
	Long: `Authenticate with GitHub using the OAuth 2.0 device authorization grant.

This command requests a device code from GitHub, shows you a verification URL
and a one-time user code, and waits for you to approve the request in your
browser. On approval the access token and the derived Copilot API key are
stored on disk.

Examples:
  copilot-auth login                  # Authenticate interactively
  copilot-auth login --timeout 5m     # Give up after five minutes
  copilot-auth login --force          # Re-authenticate even if already logged in`,
	RunE: runLogin,
}

func init() {
	loginCmd.Flags().DurationVar(&loginTimeout, "timeout", 15*time.Minute, "how long to wait for browser approval")
	loginCmd.Flags().BoolVar(&loginForce, "force", false, "re-authenticate even when valid credentials exist")

	rootCmd.AddCommand(loginCmd)
}

func runLogin(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	mgr, _, err := ensureManager()
	if err != nil {
		return err
	}

	if !loginForce && mgr.IsAuthenticated(ctx) {
		cliPrint("%s Already authenticated.\n", text.FgGreen.Sprint("✓"))
		return nil
	}
	if loginForce {
		if err := mgr.Revoke(); err != nil {
			return fmt.Errorf("failed to clear existing credentials: %w", err)
		}
	}

	var s *spinner.Spinner
	if !rootQuiet {
		s = spinner.New(spinner.CharSets[14], 100*time.Millisecond)
		s.Suffix = " Waiting for approval in the browser..."
	}

	// The spinner starts from the prompt callback so it does not clobber
	// the verification URL while the device code request is in flight.
	afterPrompt = func() {
		if s != nil {
			s.Start()
		}
	}
	defer func() { afterPrompt = nil }()

	result := <-mgr.AuthenticateAsync(ctx, loginTimeout)
	if s != nil {
		s.Stop()
	}

	if result.Err != nil {
		return &auth.AuthenticationError{Reason: "login failed", Err: result.Err}
	}
	if !result.OK {
		return &auth.AuthenticationError{Reason: "authentication was not completed in time"}
	}

	cliPrint("%s Authentication successful. Credentials stored.\n", text.FgGreen.Sprint("✓"))
	return nil
}
