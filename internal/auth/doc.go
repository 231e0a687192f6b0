// Package auth owns the Tidal credential lifecycle: the PKCE authorization flow, the token endpoint
// exchanges, the pending login attempt that correlates a callback with its login, and the [Manager]
// that hands out a currently valid bearer token for a user, refreshing it when needed.
//
// Errors are tagged with sentinels so callers can branch with [errors.Is] or switch on [KindOf].
package auth
