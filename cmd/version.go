package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newVersionCmd creates the Cobra command for displaying the application version.
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of copilot-auth",
		Long:  `All software has versions. This is copilot-auth's.`,
		Run: func(cmd *cobra.Command, args []string) {
			// rootCmd.Version is set in main.go at build time.
			fmt.Fprintf(cmd.OutOrStdout(), "copilot-auth version %s\n", rootCmd.Version)
		},
	}
}
