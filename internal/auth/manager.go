package auth

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"copilotauth/internal/deviceflow"
	"copilotauth/internal/store"
	"copilotauth/pkg/credential"
	"copilotauth/pkg/logging"
)

// FlowClient is the slice of the device-flow client the manager drives.
// *deviceflow.Client implements it; tests substitute fakes.
type FlowClient interface {
	RequestDeviceCode(ctx context.Context) (*deviceflow.DeviceAuthorization, error)
	PollOnce(ctx context.Context, deviceCode string) deviceflow.PollResult
	DeriveAPIKey(ctx context.Context, accessToken string) (*credential.APIKey, error)
}

// PromptFunc receives the device authorization so the verification URL and
// user code can be shown to the user. It is called exactly once per
// device-flow run, before polling starts.
type PromptFunc func(auth *deviceflow.DeviceAuthorization)

// Config configures a Manager.
type Config struct {
	// TokenDir is the credential directory. Required.
	TokenDir string

	// Flow is the device-flow client. Defaults to a GitHub-targeting
	// deviceflow.Client.
	Flow FlowClient

	// Prompt displays the verification URL and user code. Defaults to a
	// plain stderr printer.
	Prompt PromptFunc

	// SlowDownStep overrides the poller's slow-down increment. Zero keeps
	// the default.
	SlowDownStep time.Duration
}

// Manager composes the credential store, the device-flow client, and the
// polling scheduler behind the authentication surface the rest of the
// tool consumes. Authentication state is never stored separately; it is
// always recomputed from the on-disk artifacts.
type Manager struct {
	// mu serializes authentication attempts. Reads and key derivation do
	// not take it; they are safe against a concurrent attempt because the
	// store is the single source of truth.
	mu sync.Mutex

	store  *store.Store
	flow   FlowClient
	poller *deviceflow.Poller
	prompt PromptFunc

	// derive collapses concurrent API key derivations into one upstream
	// exchange.
	derive singleflight.Group
}

// New creates a Manager over the given credential directory, creating the
// directory eagerly so permission problems surface at construction rather
// than at the end of a device flow.
func New(cfg Config) (*Manager, error) {
	if cfg.TokenDir == "" {
		return nil, fmt.Errorf("token directory is required")
	}

	st := store.New(cfg.TokenDir)
	if err := st.EnsureDir(); err != nil {
		return nil, err
	}

	flow := cfg.Flow
	if flow == nil {
		flow = deviceflow.NewClient(deviceflow.Config{})
	}

	poller := deviceflow.NewPoller(flow)
	if cfg.SlowDownStep > 0 {
		poller.SlowDownStep = cfg.SlowDownStep
	}

	prompt := cfg.Prompt
	if prompt == nil {
		prompt = stderrPrompt
	}

	logging.Debug("AuthManager", "manager created for %s", cfg.TokenDir)
	return &Manager{
		store:  st,
		flow:   flow,
		poller: poller,
		prompt: prompt,
	}, nil
}

func stderrPrompt(auth *deviceflow.DeviceAuthorization) {
	fmt.Fprintf(os.Stderr, "Visit %s and enter code %s\n", auth.VerificationURI, auth.UserCode)
}

// TokenDir returns the credential directory this manager owns.
func (m *Manager) TokenDir() string {
	return m.store.Dir()
}

// IsAuthenticated reports whether a usable API key can be produced without
// user interaction. A fresh valid key on disk answers immediately; an
// access token without one triggers a silent derivation. All faults,
// including storage problems, degrade to false.
func (m *Manager) IsAuthenticated(ctx context.Context) bool {
	if m.store.LoadAPIKey().Valid() {
		return true
	}
	if _, ok := m.store.LoadAccessToken(); !ok {
		return false
	}

	key, err := m.APIKey(ctx)
	if err != nil {
		logging.Debug("AuthManager", "authentication check failed: %v", err)
		return false
	}
	return key.Valid()
}

// APIKey returns a valid API key, refreshing transparently from the
// stored access token when the cached key is expired, malformed, or
// absent. The refreshed key is persisted before it is returned, so
// IsAuthenticated and APIKey can never disagree about a key that was
// handed out.
func (m *Manager) APIKey(ctx context.Context) (*credential.APIKey, error) {
	if key := m.store.LoadAPIKey(); key.Valid() {
		return key, nil
	}

	token, ok := m.store.LoadAccessToken()
	if !ok {
		return nil, &AuthenticationError{Reason: "no access token stored; run login first"}
	}

	v, err, _ := m.derive.Do("derive", func() (interface{}, error) {
		// A concurrent caller may have refreshed while this one waited.
		if key := m.store.LoadAPIKey(); key.Valid() {
			return key, nil
		}
		return m.deriveAndPersist(ctx, token)
	})
	if err != nil {
		return nil, err
	}
	return v.(*credential.APIKey), nil
}

// deriveAndPersist mints a fresh API key from the access token and writes
// it to the store. A rejection of the access token itself clears all
// stored credentials: the upstream revoked them, and keeping the dead
// token would leave IsAuthenticated lying.
func (m *Manager) deriveAndPersist(ctx context.Context, accessToken string) (*credential.APIKey, error) {
	key, err := m.flow.DeriveAPIKey(ctx, accessToken)
	if err != nil {
		var keyErr *deviceflow.APIKeyError
		if errors.As(err, &keyErr) && keyErr.TokenRejected() {
			logging.Warn("AuthManager", "access token rejected upstream, clearing credentials")
			if clearErr := m.store.Clear(); clearErr != nil {
				logging.Error("AuthManager", clearErr, "failed to clear rejected credentials")
			}
			return nil, &AuthenticationError{Reason: "access token rejected upstream", Err: err}
		}
		return nil, &AuthenticationError{Reason: "could not derive API key", Err: err}
	}

	if err := m.store.SaveAPIKey(key); err != nil {
		// Storage faults surface as-is, distinct from authentication
		// errors.
		return nil, err
	}
	return key, nil
}

// Authenticate runs the full device flow, skipping it when a usable key
// already exists. It blocks until the user approves, the flow is denied
// or expires, or timeout elapses. Unapproved outcomes return (false, nil);
// only transport, protocol, and storage faults return an error.
func (m *Manager) Authenticate(ctx context.Context, timeout time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.IsAuthenticated(ctx) {
		logging.Info("AuthManager", "already authenticated")
		return true, nil
	}

	grant, err := m.flow.RequestDeviceCode(ctx)
	if err != nil {
		return false, err
	}

	m.prompt(grant)
	logging.Info("AuthManager", "device flow started, code expires in %ds", grant.ExpiresIn)

	status, accessToken, err := m.poller.Run(ctx, grant.DeviceCode,
		grant.PollInterval(), grant.Lifetime(), timeout)
	if err != nil {
		return false, err
	}

	switch status {
	case deviceflow.PollTimedOut:
		logging.Info("AuthManager", "device flow not approved before the deadline")
		return false, nil
	case deviceflow.PollExpiredOrDenied:
		logging.Info("AuthManager", "device flow expired or was denied")
		return false, nil
	}

	if err := m.store.SaveAccessToken(accessToken); err != nil {
		return false, err
	}

	// Mint the first API key right away so a successful login leaves the
	// tool immediately usable.
	if _, err := m.deriveAndPersist(ctx, accessToken); err != nil {
		return false, err
	}

	logging.Info("AuthManager", "authentication successful")
	return true, nil
}

// AuthResult is the outcome of a concurrent authentication attempt.
type AuthResult struct {
	// OK reports whether the flow completed with an approved, persisted
	// credential.
	OK bool

	// Err carries transport/protocol/storage faults. Ordinary unapproved
	// outcomes leave it nil with OK false.
	Err error
}

// AuthenticateAsync runs Authenticate on its own goroutine and delivers
// the result on the returned channel, leaving the caller's control flow
// free while the polling sleeps occur. The channel is buffered; the
// result is never lost if the caller collects it late.
func (m *Manager) AuthenticateAsync(ctx context.Context, timeout time.Duration) <-chan AuthResult {
	ch := make(chan AuthResult, 1)
	go func() {
		ok, err := m.Authenticate(ctx, timeout)
		ch <- AuthResult{OK: ok, Err: err}
	}()
	return ch
}

// Revoke deletes both stored credentials. Revoking an already-clean
// directory succeeds; the operation is idempotent.
func (m *Manager) Revoke() error {
	return m.store.Clear()
}

// Status is a read-only snapshot of the persisted authentication state.
type Status struct {
	// Authenticated reports whether credentials that should yield a key
	// are present, judged offline: a fresh API key, or an access token to
	// derive one from.
	Authenticated bool `json:"authenticated"`

	// TokenDir is the credential directory.
	TokenDir string `json:"token_dir"`

	// HasAccessToken reports whether the access token file exists.
	HasAccessToken bool `json:"has_access_token"`

	// HasAPIKey reports whether the API key file exists.
	HasAPIKey bool `json:"has_api_key"`

	// APIKeyExpired reports whether the cached key is expired or
	// unreadable. False when no key file exists.
	APIKeyExpired bool `json:"api_key_expired"`
}

// Status assembles the snapshot from store queries only. It performs no
// network I/O and mutates nothing, so it is safe to call concurrently
// with an in-progress authentication attempt.
func (m *Manager) Status() Status {
	hasAccessToken := m.store.HasAccessToken()
	keyValid := m.store.LoadAPIKey().Valid()

	return Status{
		Authenticated:  keyValid || hasAccessToken,
		TokenDir:       m.store.Dir(),
		HasAccessToken: hasAccessToken,
		HasAPIKey:      m.store.HasAPIKey(),
		APIKeyExpired:  m.store.APIKeyExpired(),
	}
}
