package auth

import (
	"os"
	"path/filepath"
	"sync"

	"copilotauth/pkg/logging"
)

// DefaultTokenDir is the credential directory used when no explicit one
// is configured.
const DefaultTokenDir = ".config/copilot-auth/credentials"

var (
	registryMu sync.Mutex
	registry   = make(map[string]*Manager)
)

// Shared returns the process-wide Manager for the configured directory,
// creating it on first use. All callers that pass the same directory get
// the same instance, which keeps a single writer per directory within
// the process. Later calls ignore the rest of the config; the first
// caller's collaborators win.
//
// Callers that need full control over collaborators (tests, embedders
// with their own wiring) construct Managers directly with New and own
// the sharing themselves.
func Shared(cfg Config) (*Manager, error) {
	dir := cfg.TokenDir
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		dir = filepath.Join(home, DefaultTokenDir)
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}

	registryMu.Lock()
	defer registryMu.Unlock()

	if m, ok := registry[abs]; ok {
		return m, nil
	}

	cfg.TokenDir = abs
	m, err := New(cfg)
	if err != nil {
		return nil, err
	}
	registry[abs] = m
	logging.Debug("AuthManager", "shared manager registered for %s", abs)
	return m, nil
}
