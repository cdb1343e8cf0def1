package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"

	"copilotauth/internal/auth"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
)

// Status-specific flags
var (
	statusCheck bool
	statusWatch bool
	statusJSON  bool
)

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the stored credential state",
	Long: `Show the current authentication status.

The status is assembled from the credential files on disk only; no network
requests are made. An expired API key with a stored access token still counts
as authenticated because the key is refreshed transparently on next use.

Examples:
  copilot-auth status           # Show the status table
  copilot-auth status --check   # Exit 0 if authenticated, 2 otherwise
  copilot-auth status --watch   # Re-render whenever the credential files change
  copilot-auth status --json    # Machine-readable output`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().BoolVar(&statusCheck, "check", false, "exit with code 0 if authenticated, 2 otherwise")
	statusCmd.Flags().BoolVar(&statusWatch, "watch", false, "keep running and re-render on credential changes")
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "print the status as JSON")

	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	mgr, _, err := ensureManager()
	if err != nil {
		return err
	}

	if statusCheck {
		st := mgr.Status()
		if !st.Authenticated {
			return &authRequiredError{Message: "no usable credentials stored; run 'copilot-auth login'"}
		}
		cliPrint("%s Authenticated.\n", text.FgGreen.Sprint("✓"))
		return nil
	}

	if err := renderStatus(mgr); err != nil {
		return err
	}
	if !statusWatch {
		return nil
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	watcher := auth.NewWatcher(auth.WatcherConfig{
		TokenDir: mgr.Status().TokenDir,
		OnChange: func() {
			if err := renderStatus(mgr); err != nil {
				fmt.Fprintf(os.Stderr, "failed to render status: %v\n", err)
			}
		},
	})
	if err := watcher.Start(); err != nil {
		return fmt.Errorf("failed to watch credential directory: %w", err)
	}
	defer watcher.Stop()

	<-ctx.Done()
	return nil
}

// renderStatus prints the status snapshot as JSON or a table.
func renderStatus(mgr *auth.Manager) error {
	st := mgr.Status()

	if statusJSON {
		data, err := json.MarshalIndent(st, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}

	authenticated := text.FgRed.Sprint("no")
	if st.Authenticated {
		authenticated = text.FgGreen.Sprint("yes")
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleRounded)
	t.AppendRows([]table.Row{
		{"Authenticated", authenticated},
		{"Credential directory", st.TokenDir},
		{"Access token stored", yesNo(st.HasAccessToken)},
		{"API key stored", yesNo(st.HasAPIKey)},
		{"API key expired", yesNo(st.APIKeyExpired)},
	})
	t.Render()
	return nil
}
