package cmd

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
)

// logoutCmd represents the logout command
var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove stored credentials",
	Long: `Remove the stored GitHub access token and the derived Copilot API key.

This does not revoke the grant on GitHub's side; it only clears the local
credential files. Running logout when nothing is stored is not an error.`,
	RunE: runLogout,
}

func init() {
	rootCmd.AddCommand(logoutCmd)
}

func runLogout(cmd *cobra.Command, args []string) error {
	mgr, _, err := ensureManager()
	if err != nil {
		return err
	}

	if err := mgr.Revoke(); err != nil {
		return fmt.Errorf("failed to remove credentials: %w", err)
	}

	cliPrint("%s Credentials removed.\n", text.FgGreen.Sprint("✓"))
	return nil
}
