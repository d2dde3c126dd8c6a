// Package server is the HTTP host for browser logins and recaps.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support. [BasicRouter] registers
// [http.ServeMux] method patterns, and a [Handler] lists the patterns it serves in Routes.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// # Sessions
//
// POST /auth/login creates a PIN and a session row (see repositories.SessionRepository) that expires after
// [PinSessionTTL]. The browser gets only the [SessionCookie]. POST /api/auth/check-pin polls the PIN once;
// when plex.tv reports a token it is validated, stored on the session, and the session is extended to
// [AuthSessionTTL]. The token never leaves the server.
//
// [SessionMiddleware] loads the session for every request; [RequireAuth] guards the data routes.
//
// # Routes
//
//	POST /auth/login           create PIN, start session
//	POST /api/auth/check-pin   poll PIN once
//	POST /api/auth/logout      delete session
//	GET  /api/me               session user
//	GET  /api/libraries        music libraries for the session token
//	GET  /api/wrapped          recap (?server=&library=&year=&top=)
//	GET  /metrics              Prometheus, when a gatherer is configured
//	GET  /healthz
package server
