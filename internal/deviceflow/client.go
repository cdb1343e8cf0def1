package deviceflow

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"copilotauth/pkg/credential"
	"copilotauth/pkg/logging"
)

// GitHub endpoints for the Copilot device flow. The client ID is the one
// GitHub issues for Copilot editor integrations.
const (
	DefaultClientID      = "Iv1.b507a08c87ecfe98"
	DefaultScope         = "read:user"
	DefaultDeviceCodeURL = "https://github.com/login/device/code"
	DefaultTokenURL      = "https://github.com/login/oauth/access_token"
	DefaultAPIKeyURL     = "https://api.github.com/copilot_internal/v2/token"
)

// Editor identification headers required by the Copilot key-issuance
// endpoint.
const (
	defaultEditorVersion       = "vscode/1.85.0"
	defaultEditorPluginVersion = "copilot-chat/0.11.1"
	defaultUserAgent           = "GitHubCopilot/1.0"
)

// requestTimeout bounds a single HTTP exchange. The polling scheduler owns
// the overall deadline; this only guards against a hung connection.
const requestTimeout = 30 * time.Second

// Config configures the device-flow client. The zero value targets GitHub
// with the Copilot client ID; tests point the URLs at local fakes.
type Config struct {
	// ClientID is the OAuth client identifier.
	ClientID string

	// Scope is the OAuth scope requested with the device code.
	Scope string

	// DeviceCodeURL is the device authorization endpoint.
	DeviceCodeURL string

	// TokenURL is the token endpoint polled for user approval.
	TokenURL string

	// APIKeyURL is the Copilot key-issuance endpoint.
	APIKeyURL string

	// HTTPClient is the HTTP client for all exchanges. If nil, a client
	// with a request timeout is created.
	HTTPClient *http.Client
}

// Client performs the device-flow network exchanges: requesting a device
// code, polling for the access token, and deriving the short-lived API
// key. It holds no flow state; one Client serves any number of sessions.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// NewClient creates a device-flow client, filling unset config fields
// with the GitHub defaults.
func NewClient(cfg Config) *Client {
	if cfg.ClientID == "" {
		cfg.ClientID = DefaultClientID
	}
	if cfg.Scope == "" {
		cfg.Scope = DefaultScope
	}
	if cfg.DeviceCodeURL == "" {
		cfg.DeviceCodeURL = DefaultDeviceCodeURL
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = DefaultTokenURL
	}
	if cfg.APIKeyURL == "" {
		cfg.APIKeyURL = DefaultAPIKeyURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: requestTimeout}
	}

	return &Client{cfg: cfg, httpClient: httpClient}
}

// RequestDeviceCode starts an authentication attempt by requesting a
// device authorization from the server. A missing device_code, user_code,
// or verification_uri in the response is fatal to the call; expires_in
// and interval fall back to the RFC defaults.
func (c *Client) RequestDeviceCode(ctx context.Context) (*DeviceAuthorization, error) {
	form := url.Values{
		"client_id": {c.cfg.ClientID},
		"scope":     {c.cfg.Scope},
	}

	body, _, err := c.postForm(ctx, c.cfg.DeviceCodeURL, form)
	if err != nil {
		return nil, &DeviceCodeError{Err: err}
	}

	var auth DeviceAuthorization
	if err := json.Unmarshal(body, &auth); err != nil {
		return nil, &DeviceCodeError{Err: fmt.Errorf("malformed device code response: %w", err)}
	}

	if auth.DeviceCode == "" || auth.UserCode == "" || auth.VerificationURI == "" {
		return nil, &DeviceCodeError{Err: fmt.Errorf("device code response missing required fields")}
	}
	if auth.ExpiresIn <= 0 {
		auth.ExpiresIn = DefaultExpiresIn
	}
	if auth.Interval <= 0 {
		auth.Interval = DefaultInterval
	}

	logging.Debug("DeviceFlow", "device code issued, expires in %ds, poll interval %ds",
		auth.ExpiresIn, auth.Interval)
	return &auth, nil
}

// tokenResponse covers both shapes the token endpoint returns: a token on
// approval, or an OAuth error code while the flow is in progress. GitHub
// answers 200 in both cases, so classification is by body content.
type tokenResponse struct {
	AccessToken      string `json:"access_token"`
	TokenType        string `json:"token_type"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	Interval         int    `json:"interval"`
}

// PollOnce performs a single poll exchange for the given device code and
// classifies the server's answer. Pending and slow-down are ordinary
// outcomes; only transport faults carry an error.
func (c *Client) PollOnce(ctx context.Context, deviceCode string) PollResult {
	form := url.Values{
		"client_id":   {c.cfg.ClientID},
		"device_code": {deviceCode},
		"grant_type":  {"urn:ietf:params:oauth:grant-type:device_code"},
	}

	body, status, err := c.postForm(ctx, c.cfg.TokenURL, form)
	if err != nil {
		return PollResult{Outcome: OutcomeTransportError, Err: err}
	}

	var resp tokenResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return PollResult{
			Outcome: OutcomeTransportError,
			Err:     fmt.Errorf("malformed token response (status %d): %w", status, err),
		}
	}

	if resp.AccessToken != "" {
		return PollResult{Outcome: OutcomeApproved, AccessToken: resp.AccessToken}
	}

	switch resp.Error {
	case "authorization_pending":
		return PollResult{Outcome: OutcomePending}
	case "slow_down":
		var retryAfter time.Duration
		if resp.Interval > 0 {
			retryAfter = time.Duration(resp.Interval) * time.Second
		}
		return PollResult{Outcome: OutcomeSlowDown, RetryAfter: retryAfter}
	case "expired_token", "access_denied":
		logging.Debug("DeviceFlow", "poll terminal: %s", resp.Error)
		return PollResult{Outcome: OutcomeExpiredOrDenied}
	case "":
		return PollResult{
			Outcome: OutcomeTransportError,
			Err:     fmt.Errorf("token response carried neither a token nor an error code (status %d)", status),
		}
	default:
		return PollResult{
			Outcome: OutcomeTransportError,
			Err:     fmt.Errorf("token endpoint error %q: %s", resp.Error, resp.ErrorDescription),
		}
	}
}

// apiKeyResponse is the Copilot key-issuance response. Additional fields
// (refresh_in, endpoints) are ignored.
type apiKeyResponse struct {
	Token     string `json:"token"`
	ExpiresAt int64  `json:"expires_at"`
}

// DeriveAPIKey exchanges a long-lived access token for a short-lived
// Copilot API key. A 401/403 from the endpoint means the access token
// itself is no longer honored; the returned *APIKeyError reports that via
// TokenRejected.
func (c *Client) DeriveAPIKey(ctx context.Context, accessToken string) (*credential.APIKey, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.APIKeyURL, nil)
	if err != nil {
		return nil, &APIKeyError{Err: err}
	}
	req.Header.Set("Authorization", "token "+accessToken)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Editor-Version", defaultEditorVersion)
	req.Header.Set("Editor-Plugin-Version", defaultEditorPluginVersion)
	req.Header.Set("User-Agent", defaultUserAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &APIKeyError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, &APIKeyError{StatusCode: resp.StatusCode, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIKeyError{
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("key endpoint refused the access token: %s", strings.TrimSpace(string(body))),
		}
	}

	var keyResp apiKeyResponse
	if err := json.Unmarshal(body, &keyResp); err != nil {
		return nil, &APIKeyError{StatusCode: resp.StatusCode, Err: fmt.Errorf("malformed key response: %w", err)}
	}
	if keyResp.Token == "" || keyResp.ExpiresAt == 0 {
		return nil, &APIKeyError{StatusCode: resp.StatusCode, Err: fmt.Errorf("key response missing token or expiry")}
	}

	key := &credential.APIKey{
		Value:     keyResp.Token,
		ExpiresAt: keyResp.ExpiresAt,
		CreatedAt: time.Now(),
	}
	logging.Debug("DeviceFlow", "API key derived, expires at %s", key.Expiry().Format(time.RFC3339))
	return key, nil
}

// postForm posts a form and returns the body and status. Non-2xx statuses
// are not errors here; the token endpoint encodes flow state in 200
// bodies and callers classify by content.
func (c *Client) postForm(ctx context.Context, endpoint string, form url.Values) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, resp.StatusCode, err
	}
	return body, resp.StatusCode, nil
}
