package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	maxTokenResponse = 1 << 20
	defaultExpiresIn = 86400
)

// TokenResult is a successful token endpoint response.
type TokenResult struct {
	AccessToken  string
	RefreshToken string // empty when the provider did not rotate it
	ExpiresIn    int
	TokenType    string
	Scope        string
}

// ExpiresAt is the absolute expiry measured from now.
func (t *TokenResult) ExpiresAt(now time.Time) time.Time {
	return now.Add(time.Duration(t.ExpiresIn) * time.Second)
}

type tokenResponse struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	ExpiresIn    json.Number `json:"expires_in"`
	TokenType    string      `json:"token_type"`
	Scope        string      `json:"scope"`
}

// TokenRefresher renews an access token from a refresh token. [*Exchanger] implements it.
type TokenRefresher interface {
	Refresh(ctx context.Context, refreshToken string) (*TokenResult, error)
}

// Exchanger talks to the Tidal token endpoint with form-encoded POSTs.
type Exchanger struct {
	cfg    ServiceConfig
	client *http.Client
}

// ExchangerOption configures an [Exchanger].
type ExchangerOption func(*Exchanger)

// WithHTTPClient replaces the default client (10 second timeout).
func WithHTTPClient(c *http.Client) ExchangerOption {
	return func(e *Exchanger) { e.client = c }
}

// NewExchanger creates an [Exchanger] for the given client settings.
func NewExchanger(cfg ServiceConfig, opts ...ExchangerOption) *Exchanger {
	e := &Exchanger{cfg: cfg, client: cfg.httpClient()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ExchangeCode trades an authorization code and its PKCE verifier for tokens.
func (e *Exchanger) ExchangeCode(ctx context.Context, code, verifier string) (*TokenResult, error) {
	if err := e.cfg.require("client_id", "client_secret", "token_url"); err != nil {
		return nil, err
	}

	form := url.Values{
		"grant_type":    {"authorization_code"},
		"client_id":     {e.cfg.ClientID},
		"code":          {code},
		"redirect_uri":  {e.cfg.RedirectURI},
		"code_verifier": {verifier},
	}

	result, err := e.post(ctx, form)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange code: %w", err)
	}
	return result, nil
}

// Refresh renews the access token. Public clients send no secret.
//
// A 400 answer means the refresh token is dead: the error matches both [ErrRefreshTokenInvalid] and [*ProviderError].
func (e *Exchanger) Refresh(ctx context.Context, refreshToken string) (*TokenResult, error) {
	if err := e.cfg.require("client_id", "token_url"); err != nil {
		return nil, err
	}

	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
		"client_id":     {e.cfg.ClientID},
	}

	result, err := e.post(ctx, form)
	if err != nil {
		return nil, fmt.Errorf("failed to refresh token: %w", err)
	}
	return result, nil
}

func (e *Exchanger) post(ctx context.Context, form url.Values) (*TokenResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.cfg.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxTokenResponse))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		pe := &ProviderError{StatusCode: resp.StatusCode, Body: string(body)}
		if resp.StatusCode == http.StatusBadRequest && form.Get("grant_type") == "refresh_token" {
			return nil, fmt.Errorf("%w: %w", ErrRefreshTokenInvalid, pe)
		}
		return nil, pe
	}

	return parseTokenResponse(body)
}

func parseTokenResponse(body []byte) (*TokenResult, error) {
	var raw tokenResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProtocol, err)
	}
	if raw.AccessToken == "" {
		return nil, fmt.Errorf("%w: access_token missing", ErrProtocol)
	}

	result := &TokenResult{
		AccessToken:  raw.AccessToken,
		RefreshToken: raw.RefreshToken,
		ExpiresIn:    defaultExpiresIn,
		TokenType:    raw.TokenType,
		Scope:        raw.Scope,
	}
	if result.TokenType == "" {
		result.TokenType = "Bearer"
	}
	if raw.ExpiresIn != "" {
		n, err := raw.ExpiresIn.Int64()
		if err != nil {
			return nil, fmt.Errorf("%w: expires_in %q", ErrProtocol, raw.ExpiresIn)
		}
		result.ExpiresIn = int(n)
	}
	return result, nil
}
