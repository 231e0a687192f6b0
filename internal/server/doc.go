// Package server provides HTTP routing, middleware, and the Tidal login and playlist handlers.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses gorilla/mux internally for method matching and path variables.
// Unknown routes and methods answer with a JSON error body.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
//
// # Login
//
// [AuthHandler] runs the browser side of the PKCE login:
//
//	GET  /auth/login     resolve the user, remember verifier and state for the session, redirect to Tidal
//	GET  /auth/callback  consume the pending login, check state, exchange the code, store the credential
//	GET  /auth/status    credential state without contacting Tidal
//	POST /auth/refresh   force a token refresh
//	POST /auth/logout    delete the stored credential and end the session
//
// Only login accepts an email query parameter. Status and the playlist routes use the session user, falling
// back to the configured default user; refresh and logout act on the session user alone.
//
// The pending login is erased when the callback reads it, so a replayed callback finds nothing.
// The CLI uses [AuthConfig].OnComplete to learn when the browser flow finished and shut the server down.
//
// # Sessions
//
// [Sessions] is an in-memory store behind the harmoniq_session cookie. Sessions are lost on restart,
// which only forces a new login. [Sessions.Sweep] drops expired sessions; serve runs it every minute.
package server
