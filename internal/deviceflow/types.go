package deviceflow

import (
	"time"
)

// Defaults applied when the authorization server omits the optional fields
// of the device authorization response (RFC 8628 section 3.2).
const (
	// DefaultExpiresIn is the device code lifetime assumed when the server
	// does not provide one.
	DefaultExpiresIn = 900

	// DefaultInterval is the minimum seconds between polls assumed when the
	// server does not provide one.
	DefaultInterval = 5
)

// DeviceAuthorization is the server's answer to a device code request.
// It lives for exactly one polling session and is never persisted.
type DeviceAuthorization struct {
	// DeviceCode is the opaque code used in poll requests. It is never
	// shown to the user.
	DeviceCode string `json:"device_code"`

	// UserCode is the short code the user types at the verification URL.
	UserCode string `json:"user_code"`

	// VerificationURI is the URL the user must visit to approve the request.
	VerificationURI string `json:"verification_uri"`

	// ExpiresIn is the device code lifetime in seconds.
	ExpiresIn int `json:"expires_in"`

	// Interval is the minimum seconds between poll attempts.
	Interval int `json:"interval"`
}

// PollInterval returns the server-requested poll interval as a duration.
func (d *DeviceAuthorization) PollInterval() time.Duration {
	return time.Duration(d.Interval) * time.Second
}

// Lifetime returns the device code lifetime as a duration.
func (d *DeviceAuthorization) Lifetime() time.Duration {
	return time.Duration(d.ExpiresIn) * time.Second
}

// Outcome classifies one poll exchange. Pending and SlowDown are ordinary
// control values, not errors; treating them as faults would abort flows
// that are simply waiting on the user.
type Outcome int

const (
	// OutcomeApproved means the user approved the request and an access
	// token was issued. Terminal.
	OutcomeApproved Outcome = iota

	// OutcomePending means the user has not completed authorization yet.
	// The caller waits and retries.
	OutcomePending

	// OutcomeSlowDown means the server wants a longer interval between
	// polls. The caller increases its wait and retries.
	OutcomeSlowDown

	// OutcomeExpiredOrDenied means the device code expired or the user
	// denied the request. Terminal; further polling is useless.
	OutcomeExpiredOrDenied

	// OutcomeTransportError means the exchange itself failed (network
	// fault, malformed body). The caller's retry policy decides.
	OutcomeTransportError
)

// String returns the outcome name for logging.
func (o Outcome) String() string {
	switch o {
	case OutcomeApproved:
		return "approved"
	case OutcomePending:
		return "pending"
	case OutcomeSlowDown:
		return "slow_down"
	case OutcomeExpiredOrDenied:
		return "expired_or_denied"
	case OutcomeTransportError:
		return "transport_error"
	default:
		return "unknown"
	}
}

// PollResult is the classified result of one poll exchange.
type PollResult struct {
	// Outcome is the classification.
	Outcome Outcome

	// AccessToken is set only when Outcome is OutcomeApproved.
	AccessToken string

	// RetryAfter is the server-requested interval accompanying a
	// slow_down response, if one was provided. Zero otherwise.
	RetryAfter time.Duration

	// Err is set only when Outcome is OutcomeTransportError.
	Err error
}
