// Package tasks orchestrates multi-step operations on top of the Plex client.
//
// Login helpers ([PinLogin], [TokenLogin], [PasswordLogin]) and [WaitForPin] own the polling
// policy so the client itself stays single shot. [WrappedEngine] discovers music libraries,
// fetches play history and builds a [Summary].
//
// Operations emit [ProgressUpdate] values on an optional channel. Sends never block: when the
// channel is full the update is dropped.
package tasks
