package cmd

import (
	"fmt"

	"copilotauth/internal/auth"
	"copilotauth/internal/config"
	"copilotauth/internal/deviceflow"

	"github.com/jedib0t/go-pretty/v6/text"
)

// ensureManager builds (or returns the shared) auth manager from the loaded
// configuration and the persistent flags.
func ensureManager() (*auth.Manager, config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, config.Config{}, err
	}
	if rootTokenDir != "" {
		cfg.TokenDir = rootTokenDir
	}

	tokenDir, err := cfg.ResolveTokenDir()
	if err != nil {
		return nil, config.Config{}, fmt.Errorf("failed to resolve credential directory: %w", err)
	}

	flow := deviceflow.NewClient(deviceflow.Config{
		ClientID:      cfg.ClientID,
		Scope:         cfg.Scope,
		DeviceCodeURL: cfg.Endpoints.DeviceCode,
		TokenURL:      cfg.Endpoints.Token,
		APIKeyURL:     cfg.Endpoints.APIKey,
	})

	mgr, err := auth.Shared(auth.Config{
		TokenDir: tokenDir,
		Flow:     flow,
		Prompt:   printVerificationPrompt,
	})
	if err != nil {
		return nil, config.Config{}, err
	}
	return mgr, cfg, nil
}

// afterPrompt, when set, runs once the verification prompt has been printed.
// The login command uses it to start its spinner below the prompt.
var afterPrompt func()

// printVerificationPrompt tells the user where to enter the one-time code.
// The user code is the only secret-free value in the grant and is meant to be
// shown verbatim.
func printVerificationPrompt(grant *deviceflow.DeviceAuthorization) {
	cliPrint("\nPlease open this URL in your browser:\n  %s\n\n", text.FgCyan.Sprint(grant.VerificationURI))
	cliPrint("And enter the code: %s\n\n", text.Bold.Sprint(grant.UserCode))
	if afterPrompt != nil {
		afterPrompt()
	}
}

// yesNo renders a boolean for status output.
func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
