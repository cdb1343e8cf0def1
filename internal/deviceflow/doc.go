// Package deviceflow implements the OAuth 2.0 device-authorization grant
// (RFC 8628) against GitHub, plus the Copilot key-issuance exchange.
//
// # Components
//
// Client performs the three network exchanges:
//   - RequestDeviceCode obtains the device/user code pair
//   - PollOnce checks the token endpoint once and classifies the answer
//   - DeriveAPIKey trades the access token for a short-lived Copilot key
//
// Poller drives PollOnce at the server-specified interval until the flow
// terminates: approval, expiry/denial, the caller's timeout, or the device
// code lifetime, whichever comes first.
//
// # Outcome classification
//
// Poll answers are classified into a closed Outcome enum rather than
// errors. "The user hasn't approved yet" is the normal state of a device
// flow for most of its life; only transport faults travel on the error
// channel.
package deviceflow
