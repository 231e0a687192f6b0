package auth

import (
	"context"
	"errors"
	"strings"
	"testing"

	tu "github.com/desertthunder/harmoniq/internal/testing"
)

func TestAppTokenSource(t *testing.T) {
	t.Run("Client Credentials With Basic Auth", func(t *testing.T) {
		ts := tu.NewTokenServer(t, map[string]any{"access_token": "app", "token_type": "Bearer", "expires_in": 3600})

		src, err := NewAppTokenSource(context.Background(), testServiceConfig(ts.URL))
		if err != nil {
			t.Fatalf("failed to create token source: %v", err)
		}

		for range 3 {
			tok, err := src.Token()
			if err != nil {
				t.Fatalf("failed to get token: %v", err)
			}
			if tok.AccessToken != "app" {
				t.Errorf("expected app token, got %q", tok.AccessToken)
			}
		}

		if ts.Calls() != 1 {
			t.Errorf("expected the token to be reused, got %d calls", ts.Calls())
		}
		if got := ts.LastForm().Get("grant_type"); got != "client_credentials" {
			t.Errorf("expected client_credentials grant, got %q", got)
		}
		if !strings.HasPrefix(ts.LastAuthorization(), "Basic ") {
			t.Errorf("expected basic client authentication, got %q", ts.LastAuthorization())
		}
	})

	t.Run("Requires Secret", func(t *testing.T) {
		cfg := testServiceConfig("http://token.test")
		cfg.ClientSecret = ""
		if _, err := NewAppTokenSource(context.Background(), cfg); !errors.Is(err, ErrConfiguration) {
			t.Errorf("expected ErrConfiguration, got %v", err)
		}
	})
}
