package auth

import (
	"context"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// appTokenEarlyExpiry renews the application token a minute before Tidal would reject it.
const appTokenEarlyExpiry = 60 * time.Second

// NewAppTokenSource returns a token source for the client-credentials grant, used for catalog calls that act
// as the application rather than a user.
//
// The client authenticates with HTTP Basic. Tokens are cached and reused until shortly before expiry.
// An [*http.Client] stored in ctx under [oauth2.HTTPClient] is used for the token requests.
func NewAppTokenSource(ctx context.Context, cfg ServiceConfig) (oauth2.TokenSource, error) {
	if err := cfg.require("client_id", "client_secret", "token_url"); err != nil {
		return nil, err
	}

	if ctx.Value(oauth2.HTTPClient) == nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, cfg.httpClient())
	}

	cc := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.TokenURL,
		AuthStyle:    oauth2.AuthStyleInHeader,
	}

	return oauth2.ReuseTokenSourceWithExpiry(nil, cc.TokenSource(ctx), appTokenEarlyExpiry), nil
}
