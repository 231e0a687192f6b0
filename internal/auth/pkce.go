package auth

import "golang.org/x/oauth2"

// GenerateCodeVerifier returns a 43 character verifier built from 32 random bytes (RFC 7636 section 4.1).
//
// A failing entropy source panics inside crypto/rand; there is no error to return.
func GenerateCodeVerifier() string {
	return oauth2.GenerateVerifier()
}

// GenerateCodeChallenge derives the S256 challenge for verifier.
func GenerateCodeChallenge(verifier string) string {
	return oauth2.S256ChallengeFromVerifier(verifier)
}

// GenerateState returns an unguessable value used to correlate the callback with its login.
// It has the same shape as a verifier: 32 random bytes, base64url without padding.
func GenerateState() string {
	return oauth2.GenerateVerifier()
}
