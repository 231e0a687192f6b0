package auth

import (
	"context"

	"github.com/desertthunder/harmoniq/internal/models"
)

// CredentialStore persists one [models.Credential] per user.
//
// Get must return an error wrapping [shared.ErrCredentialNotFound] when the user has none.
// [*repositories.CredentialRepository] is the sqlite implementation.
type CredentialStore interface {
	Get(ctx context.Context, userID string) (*models.Credential, error)
	Save(ctx context.Context, cred *models.Credential) error
	Delete(ctx context.Context, userID string) error
}
