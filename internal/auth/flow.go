package auth

import (
	"golang.org/x/oauth2"
)

// Authorization is the result of starting a login: where to send the browser and what to remember.
type Authorization struct {
	URL          string
	CodeVerifier string
	State        string
}

// Flow builds Tidal authorization URLs. It holds no per-login state.
type Flow struct {
	cfg ServiceConfig
}

// NewFlow creates a [Flow] for the given client settings.
func NewFlow(cfg ServiceConfig) *Flow {
	return &Flow{cfg: cfg}
}

// Begin generates a PKCE pair and returns the authorization URL for it.
//
// When state is empty a random one is generated. Nothing is persisted: callers keep the returned
// verifier and state in a [PendingStore] until the callback arrives.
func (f *Flow) Begin(state string) (*Authorization, error) {
	if err := f.cfg.require("client_id", "redirect_uri", "authorize_url"); err != nil {
		return nil, err
	}

	verifier := GenerateCodeVerifier()
	if state == "" {
		state = GenerateState()
	}

	conf := &oauth2.Config{
		ClientID:    f.cfg.ClientID,
		RedirectURL: f.cfg.RedirectURI,
		Scopes:      f.cfg.Scopes,
		Endpoint:    oauth2.Endpoint{AuthURL: f.cfg.AuthorizeURL, TokenURL: f.cfg.TokenURL},
	}

	url := conf.AuthCodeURL(state, oauth2.S256ChallengeOption(verifier))

	return &Authorization{URL: url, CodeVerifier: verifier, State: state}, nil
}
