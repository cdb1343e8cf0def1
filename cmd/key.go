package cmd

import (
	"errors"
	"fmt"

	"copilotauth/internal/auth"
	"copilotauth/internal/config"

	"github.com/spf13/cobra"
)

// Key-specific flags
var (
	keyShowSource bool
)

// keyCmd represents the key command
var keyCmd = &cobra.Command{
	Use:   "key",
	Short: "Print a usable Copilot API key",
	Long: `Print a usable Copilot API key to stdout.

The key is resolved in precedence order: a key derived from the stored OAuth
access token, then the ` + config.EnvFallbackToken + ` environment variable, then an explicit
api_key in the config file. The stored key is refreshed transparently when it
has expired.

The key is the command's output, so --quiet does not suppress it.

Examples:
  copilot-auth key                    # Print the key
  copilot-auth key --show-source      # Also report where the key came from`,
	RunE: runKey,
}

func init() {
	keyCmd.Flags().BoolVar(&keyShowSource, "show-source", false, "print the credential source on stderr")

	rootCmd.AddCommand(keyCmd)
}

func runKey(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	mgr, cfg, err := ensureManager()
	if err != nil {
		return err
	}

	key, source, err := config.ResolveAPIKey(ctx, mgr, cfg)
	if err != nil {
		var authErr *auth.AuthenticationError
		if errors.As(err, &authErr) || errors.Is(err, config.ErrNoCredentials) {
			return &authRequiredError{Message: err.Error()}
		}
		return err
	}

	if keyShowSource {
		fmt.Fprintf(cmd.ErrOrStderr(), "source: %s\n", source)
	}
	fmt.Fprintln(cmd.OutOrStdout(), key.Value())
	return nil
}
