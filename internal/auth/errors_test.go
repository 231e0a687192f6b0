package auth

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	invalid := fmt.Errorf("%w: %w", ErrRefreshTokenInvalid, &ProviderError{StatusCode: 400})

	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"Configuration", fmt.Errorf("%w: tidal client_id is not set", ErrConfiguration), KindConfiguration},
		{"Reauthorize Wrapping Invalid Token", fmt.Errorf("%w: %w", ErrReauthorize, invalid), KindReauthorize},
		{"Invalid Token", invalid, KindRefreshTokenInvalid},
		{"No Credential", ErrNoCredential, KindNoCredential},
		{"State Mismatch", ErrStateMismatch, KindStateMismatch},
		{"Missing Verifier", ErrMissingVerifier, KindMissingVerifier},
		{"Protocol", fmt.Errorf("%w: access_token missing", ErrProtocol), KindProtocol},
		{"Provider", fmt.Errorf("failed: %w", &ProviderError{StatusCode: 502}), KindProvider},
		{"Deadline", context.DeadlineExceeded, KindTransient},
		{"Plain", errors.New("connection reset"), KindTransient},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := KindOf(tc.err); got != tc.want {
				t.Errorf("expected %s, got %s", tc.want, got)
			}
		})
	}

	t.Run("NeedsAuthorization", func(t *testing.T) {
		if !NeedsAuthorization(ErrNoCredential) || !NeedsAuthorization(fmt.Errorf("x: %w", ErrReauthorize)) {
			t.Error("absent and terminal credentials need authorization")
		}
		if NeedsAuthorization(context.DeadlineExceeded) {
			t.Error("transient failures do not need authorization")
		}
	})
}
