package cmd

import (
	"errors"
	"fmt"
	"os"

	"copilotauth/internal/auth"
	"copilotauth/internal/config"
	"copilotauth/pkg/logging"

	"github.com/spf13/cobra"
)

// Exit codes for CLI commands.
// These follow common conventions and are stable for scripting.
const (
	// ExitCodeSuccess indicates successful execution.
	ExitCodeSuccess = 0
	// ExitCodeError indicates a general error (command failed, invalid arguments).
	ExitCodeError = 1
	// ExitCodeAuthRequired indicates authentication is required but not available.
	ExitCodeAuthRequired = 2
	// ExitCodeAuthFailed indicates the device authorization flow failed.
	ExitCodeAuthFailed = 3
)

// Persistent flags shared by all subcommands.
var (
	rootConfigPath string
	rootTokenDir   string
	rootLogLevel   string
	rootQuiet      bool
)

// rootCmd represents the base command for the copilot-auth application.
var rootCmd = &cobra.Command{
	Use:   "copilot-auth",
	Short: "Manage GitHub Copilot credentials for the assistant",
	Long: `copilot-auth manages GitHub Copilot credentials via the OAuth 2.0
device authorization grant.

It stores the GitHub access token and the derived Copilot API key on disk,
refreshes the API key transparently when it expires, and exposes the key to
tools that need it.`,
	// SilenceUsage prevents Cobra from printing the usage message on errors
	// that are handled by the application.
	SilenceUsage:      true,
	PersistentPreRunE: setupLogging,
}

// SetVersion sets the version for the root command.
// This function is typically called from the main package to inject the application version at build time.
func SetVersion(v string) {
	rootCmd.Version = v
}

// GetVersion returns the current version of the application.
func GetVersion() string {
	return rootCmd.Version
}

// Execute is the main entry point for the CLI application.
// It is called by main.main().
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "copilot-auth version %s\n" .Version}}`)

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(getExitCode(err))
	}
}

// getExitCode determines the appropriate exit code based on the error type.
// This provides semantic exit codes for scripting and automation.
func getExitCode(err error) int {
	var authRequired *authRequiredError
	if errors.As(err, &authRequired) {
		return ExitCodeAuthRequired
	}

	var authFailed *auth.AuthenticationError
	if errors.As(err, &authFailed) {
		return ExitCodeAuthFailed
	}

	return ExitCodeError
}

// setupLogging initializes the logging subsystem from the persistent flags
// and the configuration file before any subcommand runs.
func setupLogging(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	levelName := cfg.LogLevel
	if rootLogLevel != "" {
		levelName = rootLogLevel
	}
	logging.Init(logging.ParseLevel(levelName), os.Stderr)
	return nil
}

// loadConfig loads the configuration file, honoring the --config flag.
// A missing file yields the built-in defaults.
func loadConfig() (config.Config, error) {
	path := rootConfigPath
	if path == "" {
		path = config.DefaultConfigPathOrPanic()
	}
	return config.LoadConfig(path)
}

// cliPrint prints only if the --quiet flag is not set.
// Use this for progress messages and non-essential output.
func cliPrint(format string, args ...interface{}) {
	if !rootQuiet {
		fmt.Printf(format, args...)
	}
}

// cliPrintln prints a line only if the --quiet flag is not set.
func cliPrintln(a ...interface{}) {
	if !rootQuiet {
		fmt.Println(a...)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&rootConfigPath, "config", "", "path to the config file (default is $HOME/.config/copilot-auth/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&rootTokenDir, "token-dir", "", "directory for stored credentials (default is $HOME/.config/copilot-auth/credentials)")
	rootCmd.PersistentFlags().StringVar(&rootLogLevel, "log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().BoolVarP(&rootQuiet, "quiet", "q", false, "suppress progress output")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newSelfUpdateCmd())
}
