// Package logging provides structured logging for copilot-auth built on the
// standard slog package.
//
// Log entries carry a subsystem tag so output can be filtered by area
// (DeviceFlow, Store, AuthManager, Config). Messages use printf-style
// formatting:
//
//	logging.Init(logging.LevelInfo, os.Stderr)
//	logging.Info("DeviceFlow", "requesting device code from %s", url)
//	logging.Error("Store", err, "failed to persist API key")
//
// Credential values must never be passed to this package. Use the
// redaction wrappers in pkg/credential when a token needs to appear in a
// message at all.
package logging
