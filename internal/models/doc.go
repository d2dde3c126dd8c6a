// Package models defines the records exchanged with plex.tv and media servers, and the persisted
// login session used by the HTTP host.
//
// The package contains two categories of types:
//
// 1. Value records: built from one JSON response and never mutated afterwards
//   - [Pin] : a PIN created for out-of-band authorization
//   - [User] : the account a token belongs to
//   - [Server] and [Connection] : a registered media server and its network endpoints
//   - [Library] : a content section on a server
//   - [PlayRecord] : one entry of play history
//   - [MusicLibrary] : a (server, library) pair whose library type is "artist"
//
// 2. Persistent entities: database-backed models with full lifecycle management
//   - [Session] : a browser login session carrying a PIN and, once authorized, a token
//
// Sessions implement [Expiring]; stores implement [ExpiringRepository] so stale logins can be purged.
package models
