// Package services implements the Plex account and media-server protocol.
//
// # Authentication
//
// [Client] implements [Authenticator]. Two entry points converge on a token plus [models.User]:
//
//   - PIN flow: [Client.CreatePin], show [Client.AuthURL] to the user, then call
//     [Client.PollPinStatus] until it reports the PIN as authorized. Polling is single shot;
//     the retry loop belongs to the caller (see tasks.WaitForPin).
//   - Credentials: [Client.SignIn] posts a username or email and password.
//
// [Client.ExchangeClaimToken] turns a claim token (prefix "claim-") into a durable token and
// [Client.ValidateToken] checks any token against the account service.
//
// # Discovery
//
// [Client] implements [Directory]:
//
//   - [Client.ListServers] keeps resources whose capabilities include "server".
//   - [SelectBestURL] picks a remote https connection, falling back to the first one.
//   - [Client.ProbeServers] lists libraries on every server concurrently and returns one
//     [ServerOutcome] per server, in input order, carrying either libraries or an error.
//   - [Client.FindMusicLibraries] keeps the "artist" libraries of successful outcomes and logs
//     the failures.
//   - [Client.FetchPlayHistory] reads a single page of play history for one library section.
//
// # Error Handling
//
// Every non-2xx status becomes a [shared.UpstreamError] carrying the status code and reason.
// Rejected credentials and tokens become [shared.AuthenticationError]; a success response
// missing a required field becomes [shared.ProtocolError]. Tokens are never logged.
package services
