package auth

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/desertthunder/harmoniq/internal/shared"
)

// ServiceConfig carries the Tidal application credentials and endpoints.
//
// Built once at start and passed by value.
type ServiceConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	AuthorizeURL string
	TokenURL     string
	Scopes       []string
	APIBaseURL   string
	Timeout      time.Duration
}

// NewServiceConfig converts the file/env configuration into a [ServiceConfig].
func NewServiceConfig(c shared.TidalConfig) ServiceConfig {
	return ServiceConfig{
		ClientID:     strings.TrimSpace(c.ClientID),
		ClientSecret: strings.TrimSpace(c.ClientSecret),
		RedirectURI:  strings.TrimSpace(c.RedirectURI),
		AuthorizeURL: strings.TrimSpace(c.AuthorizeURL),
		TokenURL:     strings.TrimSpace(c.TokenURL),
		Scopes:       strings.Fields(c.Scopes),
		APIBaseURL:   strings.TrimSpace(c.APIBaseURL),
		Timeout:      c.Timeout(),
	}
}

// require returns ErrConfiguration naming the first empty setting.
func (c ServiceConfig) require(names ...string) error {
	values := map[string]string{
		"client_id":     c.ClientID,
		"client_secret": c.ClientSecret,
		"redirect_uri":  c.RedirectURI,
		"authorize_url": c.AuthorizeURL,
		"token_url":     c.TokenURL,
	}
	for _, n := range names {
		if values[n] == "" {
			return fmt.Errorf("%w: tidal %s is not set", ErrConfiguration, n)
		}
	}
	return nil
}

func (c ServiceConfig) httpClient() *http.Client {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &http.Client{Timeout: timeout}
}
