// Package credential defines the credential types shared between the
// device-flow client, the on-disk store, and the auth manager.
package credential

import (
	"time"
)

// expiryBuffer is the margin applied when checking API key validity.
// This accounts for clock skew and for requests that are in flight when
// the key crosses its expiry.
const expiryBuffer = 60 * time.Second

// APIKey is the short-lived derived credential used for Copilot API calls.
// It is minted from a long-lived access token and cached on disk as
// api-key.json.
type APIKey struct {
	// Value is the key itself.
	Value string `json:"value"`

	// ExpiresAt is the absolute expiry as unix seconds, as reported by the
	// key-issuance endpoint.
	ExpiresAt int64 `json:"expires_at"`

	// CreatedAt is when the key was obtained.
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// Expired reports whether the key has passed its expiry. A key with no
// expiry set is treated as expired; the issuance endpoint always provides
// one, so its absence means the record is not trustworthy.
func (k *APIKey) Expired() bool {
	return k.expiredAt(time.Now())
}

// Valid reports whether the key can still be used, applying the expiry
// buffer so a key about to lapse is refreshed rather than returned.
func (k *APIKey) Valid() bool {
	if k == nil || k.Value == "" {
		return false
	}
	return !k.expiredAt(time.Now().Add(expiryBuffer))
}

func (k *APIKey) expiredAt(now time.Time) bool {
	if k == nil || k.ExpiresAt == 0 {
		return true
	}
	return k.ExpiresAt <= now.Unix()
}

// Expiry returns the expiry as a time.Time.
func (k *APIKey) Expiry() time.Time {
	if k == nil {
		return time.Time{}
	}
	return time.Unix(k.ExpiresAt, 0)
}
