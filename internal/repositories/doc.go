// Package repositories implements SQLite persistence for the HTTP host's login sessions.
//
// Only login state is stored. Servers, libraries and play history are fetched per request and
// never written to disk.
//
// Key Implementations:
//   - [SessionRepository] : browser sessions carrying a PIN and, once authorized, a Plex token
//
// Delete is a soft delete that also blanks the stored token. [SessionRepository.DeleteExpired] later
// removes soft-deleted and expired rows for good. [NextSequence] numbers rows inside the insert's transaction.
package repositories
