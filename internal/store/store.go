// Package store provides file-backed persistence for Copilot credentials.
//
// Two artifacts live under the configured directory:
//
//	access-token   raw OAuth access token, one opaque string
//	api-key.json   derived short-lived API key with its expiry
//
// The directory is owned exclusively by the auth manager; nothing else
// writes into it. Files are created with 0600 permissions and the
// directory with 0700, since both artifacts are credentials.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"copilotauth/pkg/credential"
	"copilotauth/pkg/logging"
)

const (
	accessTokenFile = "access-token"
	apiKeyFile      = "api-key.json"

	dirPerm  = 0700
	filePerm = 0600
)

// Store persists the access token and API key for one credential directory.
// All methods are safe for concurrent use within a process; cross-process
// writers are last-writer-wins at the file level.
type Store struct {
	mu  sync.RWMutex
	dir string
}

// New creates a store rooted at dir. The directory itself is created
// lazily on the first save, so constructing a store never touches the
// filesystem.
func New(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the credential directory this store operates on.
func (s *Store) Dir() string {
	return s.dir
}

// LoadAccessToken reads the stored access token. The second return value
// is false when the token file is missing or unreadable; read failures are
// deliberately not surfaced because an unreadable token is equivalent to
// no token.
func (s *Store) LoadAccessToken() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(s.accessTokenPath())
	if err != nil {
		if !os.IsNotExist(err) {
			logging.Debug("Store", "access token unreadable: %v", err)
		}
		return "", false
	}

	token := strings.TrimSpace(string(data))
	if token == "" {
		return "", false
	}
	return token, true
}

// SaveAccessToken writes the access token, creating the credential
// directory if needed. Write failures surface as errors.
func (s *Store) SaveAccessToken(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureDirLocked(); err != nil {
		return err
	}
	if err := os.WriteFile(s.accessTokenPath(), []byte(token), filePerm); err != nil {
		return fmt.Errorf("failed to write access token: %w", err)
	}
	return nil
}

// LoadAPIKey reads the cached API key. It returns nil when the file is
// missing, unreadable, or malformed; corrupt cache content is treated as
// an absent key so the caller re-derives instead of failing hard. The
// returned key may be expired; callers check Valid().
func (s *Store) LoadAPIKey() *credential.APIKey {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(s.apiKeyPath())
	if err != nil {
		return nil
	}

	var key credential.APIKey
	if err := json.Unmarshal(data, &key); err != nil {
		logging.Debug("Store", "api-key.json is malformed, treating as absent: %v", err)
		return nil
	}
	if key.Value == "" {
		return nil
	}
	return &key
}

// SaveAPIKey writes the API key record, creating the credential directory
// if needed.
func (s *Store) SaveAPIKey(key *credential.APIKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if key == nil || key.Value == "" {
		return fmt.Errorf("refusing to persist empty API key")
	}
	if key.CreatedAt.IsZero() {
		key.CreatedAt = time.Now()
	}

	if err := s.ensureDirLocked(); err != nil {
		return err
	}

	data, err := json.MarshalIndent(key, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal API key: %w", err)
	}
	if err := os.WriteFile(s.apiKeyPath(), data, filePerm); err != nil {
		return fmt.Errorf("failed to write API key: %w", err)
	}
	return nil
}

// Clear removes both artifacts. Removing a file that does not exist is
// not an error, so Clear is idempotent.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, path := range []string{s.accessTokenPath(), s.apiKeyPath()} {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove %s: %w", filepath.Base(path), err)
		}
	}

	logging.Info("Store", "credentials cleared from %s", s.dir)
	return nil
}

// HasAccessToken reports whether the access token file exists, without
// reading or validating it.
func (s *Store) HasAccessToken() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fileExists(s.accessTokenPath())
}

// HasAPIKey reports whether the API key file exists, regardless of whether
// its content is usable.
func (s *Store) HasAPIKey() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fileExists(s.apiKeyPath())
}

// APIKeyExpired reports whether the cached API key has expired. A missing
// file is not expired (there is nothing to expire); a malformed file is,
// since its content cannot be trusted.
func (s *Store) APIKeyExpired() bool {
	s.mu.RLock()
	exists := fileExists(s.apiKeyPath())
	s.mu.RUnlock()

	if !exists {
		return false
	}

	key := s.LoadAPIKey()
	if key == nil {
		return true
	}
	return key.Expired()
}

// EnsureDir creates the credential directory eagerly. The auth manager
// calls this at construction so permission problems show up immediately
// rather than at the end of a device flow.
func (s *Store) EnsureDir() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ensureDirLocked()
}

func (s *Store) ensureDirLocked() error {
	if err := os.MkdirAll(s.dir, dirPerm); err != nil {
		return fmt.Errorf("failed to create credential directory: %w", err)
	}
	return nil
}

func (s *Store) accessTokenPath() string {
	return filepath.Join(s.dir, accessTokenFile)
}

func (s *Store) apiKeyPath() string {
	return filepath.Join(s.dir, apiKeyFile)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
