package models

import (
	"fmt"
	"time"
)

// BearerPrefix is prepended to access tokens when building an Authorization header value.
const BearerPrefix = "Bearer "

// CredentialState is derived from a [Credential] at a point in time; it is never stored.
type CredentialState int

const (
	StateAbsent      CredentialState = iota // no credential row
	StateValid                              // access token usable beyond the safety buffer
	StateRefreshable                        // expiring or expired, refresh token present
	StateTerminal                           // expiring or expired, no refresh token
)

func (s CredentialState) String() string {
	switch s {
	case StateAbsent:
		return "absent"
	case StateValid:
		return "valid"
	case StateRefreshable:
		return "refreshable"
	case StateTerminal:
		return "terminal"
	default:
		return fmt.Sprintf("CredentialState(%d)", int(s))
	}
}

// Expiring reports whether the access token is inside the safety buffer or already past expiry.
func (s CredentialState) Expiring() bool {
	return s == StateRefreshable || s == StateTerminal
}

// Profile holds the Tidal account fields recorded after a profile sync.
type Profile struct {
	ProviderUserID string `json:"provider_user_id"`
	Email          string `json:"email"`
	Username       string `json:"username"`
	Country        string `json:"country"`
}

// Empty reports whether no profile sync has happened yet.
func (p Profile) Empty() bool {
	return p == Profile{}
}

// Credential is the Tidal grant stored for one application user.
//
// An empty RefreshToken means the credential cannot be renewed once it expires.
type Credential struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	AccessToken  string    `json:"-"`
	RefreshToken string    `json:"-"`
	TokenType    string    `json:"token_type"`
	Scope        string    `json:"scope"`
	ExpiresAt    time.Time `json:"expires_at"`
	Profile      Profile   `json:"profile"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// State classifies the credential at now. A token is valid only while more than buffer remains before ExpiresAt.
//
// A nil credential is [StateAbsent].
func (c *Credential) State(now time.Time, buffer time.Duration) CredentialState {
	if c == nil {
		return StateAbsent
	}
	if c.AccessToken != "" && c.ExpiresAt.Sub(now) > buffer {
		return StateValid
	}
	if c.RefreshToken != "" {
		return StateRefreshable
	}
	return StateTerminal
}

// Bearer returns the Authorization header value for the stored access token.
func (c *Credential) Bearer() string {
	return BearerPrefix + c.AccessToken
}

// Validate checks the invariants enforced before a credential is written.
func (c *Credential) Validate() error {
	if c.UserID == "" {
		return fmt.Errorf("credential owner is required")
	}
	if c.AccessToken == "" {
		return fmt.Errorf("access token is required")
	}
	if c.ExpiresAt.IsZero() {
		return fmt.Errorf("expiry is required when an access token is set")
	}
	return nil
}
