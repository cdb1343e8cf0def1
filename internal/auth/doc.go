// Package auth is the authentication manager for copilot-auth.
//
// A Manager composes the credential store, the device-flow client, and
// the polling scheduler behind a small surface: IsAuthenticated, APIKey,
// Authenticate (blocking or async), Revoke, and Status. Authentication
// state is implicit in the persisted artifacts and always recomputed;
// there is no stored status that could drift from the files.
//
// Within a process, callers that share a credential directory should
// share a Manager, either through Shared or their own wiring, so there is
// a single writer per directory. Watcher covers the cross-process case by
// noticing credential changes made by another process.
package auth
