// Package config loads the copilot-auth configuration file and resolves
// which credential to hand to callers.
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"copilotauth/internal/auth"
	"copilotauth/pkg/credential"
	"copilotauth/pkg/logging"
)

const (
	userConfigDir  = ".config/copilot-auth"
	configFileName = "config.yaml"

	// EnvFallbackToken is the environment variable consulted when no
	// OAuth-derived key is available.
	EnvFallbackToken = "GITHUB_TOKEN"
)

// Credential sources, in resolution order.
const (
	SourceOAuth       = "oauth"
	SourceEnvironment = "environment"
	SourceConfig      = "config"
)

// ErrNoCredentials is returned by ResolveAPIKey when no source can provide
// a usable key.
var ErrNoCredentials = errors.New("no credential available")

// EndpointsConfig overrides the device-flow endpoints. Empty fields keep
// the GitHub defaults.
type EndpointsConfig struct {
	DeviceCode string `yaml:"deviceCode,omitempty"`
	Token      string `yaml:"token,omitempty"`
	APIKey     string `yaml:"apiKey,omitempty"`
}

// Config is the top-level configuration for copilot-auth.
type Config struct {
	// TokenDir is the credential directory. Default:
	// ~/.config/copilot-auth/credentials
	TokenDir string `yaml:"tokenDir,omitempty"`

	// APIKey is an explicitly configured key, the lowest-priority
	// credential source.
	APIKey string `yaml:"apiKey,omitempty"`

	// ClientID overrides the OAuth client identifier.
	ClientID string `yaml:"clientID,omitempty"`

	// Scope overrides the OAuth scope requested with the device code.
	Scope string `yaml:"scope,omitempty"`

	// Endpoints override the device-flow endpoints.
	Endpoints EndpointsConfig `yaml:"endpoints,omitempty"`

	// LogLevel is the minimum log level (debug, info, warn, error).
	LogLevel string `yaml:"logLevel,omitempty"`
}

// GetDefaultConfig returns the built-in defaults.
func GetDefaultConfig() Config {
	return Config{
		LogLevel: "info",
	}
}

// DefaultConfigPathOrPanic returns the user config directory, panicking
// when the home directory cannot be resolved. It is called once at CLI
// startup, where there is no useful recovery from a missing home.
func DefaultConfigPathOrPanic() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		panic(fmt.Errorf("could not determine user config directory: %w", err))
	}
	return filepath.Join(homeDir, userConfigDir)
}

// LoadConfig loads config.yaml from the given directory, applying
// defaults for everything the file omits. A missing file is not an
// error; a malformed one is.
func LoadConfig(configPath string) (Config, error) {
	configFilePath := filepath.Join(configPath, configFileName)
	config := GetDefaultConfig()

	data, err := os.ReadFile(configFilePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logging.Debug("Config", "no config.yaml at %s, using defaults", configFilePath)
			return config, nil
		}
		return Config{}, err
	}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Config{}, fmt.Errorf("error loading config from %s: %w", configFilePath, err)
	}

	logging.Debug("Config", "loaded configuration from %s", configFilePath)
	return config, nil
}

// ResolveTokenDir returns the configured credential directory, falling
// back to the default under the user config dir.
func (c Config) ResolveTokenDir() (string, error) {
	if c.TokenDir != "" {
		return c.TokenDir, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine credential directory: %w", err)
	}
	return filepath.Join(homeDir, auth.DefaultTokenDir), nil
}

// ResolveAPIKey picks the credential to hand to callers: the
// OAuth-derived key first, the GITHUB_TOKEN environment variable second,
// the explicitly configured key third. The returned source names the tier
// that supplied the value.
func ResolveAPIKey(ctx context.Context, mgr *auth.Manager, cfg Config) (credential.Redacted, string, error) {
	if mgr != nil {
		if key, err := mgr.APIKey(ctx); err == nil && key.Valid() {
			return credential.NewRedacted(key.Value), SourceOAuth, nil
		} else if err != nil {
			logging.Debug("Config", "no OAuth credential available: %v", err)
		}
	}

	if env := os.Getenv(EnvFallbackToken); env != "" {
		return credential.NewRedacted(env), SourceEnvironment, nil
	}

	if cfg.APIKey != "" {
		return credential.NewRedacted(cfg.APIKey), SourceConfig, nil
	}

	return credential.Redacted{}, "", fmt.Errorf(
		"%w: run 'copilot-auth login', set %s, or configure apiKey", ErrNoCredentials, EnvFallbackToken)
}
