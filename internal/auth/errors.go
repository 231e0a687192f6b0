package auth

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration means a required client setting is missing; the flow never starts.
	ErrConfiguration = errors.New("auth: missing configuration")

	// ErrProtocol means the provider answered 2xx with a payload we cannot use.
	ErrProtocol = errors.New("auth: unexpected token response")

	// ErrRefreshTokenInvalid means the provider rejected the refresh token.
	ErrRefreshTokenInvalid = errors.New("auth: refresh token rejected")

	ErrStateMismatch   = errors.New("auth: state mismatch")
	ErrMissingVerifier = errors.New("auth: no pending login for this session")

	// ErrNoCredential means the user never authorized Tidal.
	ErrNoCredential = errors.New("auth: no tidal credential")

	// ErrReauthorize means the stored credential can no longer be renewed.
	ErrReauthorize = errors.New("auth: tidal authorization required")
)

// ProviderError is a non-2xx answer from the token endpoint.
type ProviderError struct {
	StatusCode int
	Body       string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("auth: token endpoint returned %d: %s", e.StatusCode, e.Body)
}

// Kind classifies an error from this package for switch-style handling.
type Kind int

const (
	KindTransient Kind = iota
	KindConfiguration
	KindReauthorize
	KindRefreshTokenInvalid
	KindNoCredential
	KindStateMismatch
	KindMissingVerifier
	KindProtocol
	KindProvider
)

func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindReauthorize:
		return "reauthorize"
	case KindRefreshTokenInvalid:
		return "refresh_token_invalid"
	case KindNoCredential:
		return "no_credential"
	case KindStateMismatch:
		return "state_mismatch"
	case KindMissingVerifier:
		return "missing_verifier"
	case KindProtocol:
		return "protocol"
	case KindProvider:
		return "provider"
	default:
		return "transient"
	}
}

// KindOf maps err to its [Kind]. Anything untagged (timeouts, dropped connections) is [KindTransient].
//
// A rejected refresh also matches [ProviderError]; the more specific kind wins.
func KindOf(err error) Kind {
	var pe *ProviderError
	switch {
	case err == nil:
		return KindTransient
	case errors.Is(err, ErrConfiguration):
		return KindConfiguration
	case errors.Is(err, ErrReauthorize):
		return KindReauthorize
	case errors.Is(err, ErrRefreshTokenInvalid):
		return KindRefreshTokenInvalid
	case errors.Is(err, ErrNoCredential):
		return KindNoCredential
	case errors.Is(err, ErrStateMismatch):
		return KindStateMismatch
	case errors.Is(err, ErrMissingVerifier):
		return KindMissingVerifier
	case errors.Is(err, ErrProtocol):
		return KindProtocol
	case errors.As(err, &pe):
		return KindProvider
	default:
		return KindTransient
	}
}

// NeedsAuthorization reports whether the user has to go through the login flow again.
func NeedsAuthorization(err error) bool {
	k := KindOf(err)
	return k == KindNoCredential || k == KindReauthorize
}
