package auth

import (
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/desertthunder/harmoniq/internal/shared"
)

func TestNewServiceConfig(t *testing.T) {
	cfg := NewServiceConfig(shared.TidalConfig{
		ClientID:       " id ",
		TokenURL:       "https://auth.tidal.com/v1/oauth2/token",
		Scopes:         "r_usr  w_usr",
		RequestTimeout: 3,
	})

	if cfg.ClientID != "id" {
		t.Errorf("expected trimmed client id, got %q", cfg.ClientID)
	}
	if !slices.Equal(cfg.Scopes, []string{"r_usr", "w_usr"}) {
		t.Errorf("unexpected scopes %v", cfg.Scopes)
	}
	if cfg.Timeout != 3*time.Second {
		t.Errorf("expected 3s timeout, got %v", cfg.Timeout)
	}

	if err := cfg.require("client_id", "token_url"); err != nil {
		t.Errorf("expected settings to be present, got %v", err)
	}
	if err := cfg.require("client_secret"); !errors.Is(err, ErrConfiguration) {
		t.Errorf("expected ErrConfiguration, got %v", err)
	}
}
