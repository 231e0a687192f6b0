package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/harmoniq/internal/models"
	"github.com/desertthunder/harmoniq/internal/shared"
)

// CredentialRepository persists the single Tidal [models.Credential] each user may hold.
type CredentialRepository struct {
	db *sql.DB
}

// NewCredentialRepository creates a new [CredentialRepository] with the given database connection
func NewCredentialRepository(db *sql.DB) *CredentialRepository {
	return &CredentialRepository{db: db}
}

const credentialColumns = `
	id, user_id, access_token, refresh_token, token_type, scope, expires_at,
	provider_user_id, provider_email, provider_username, provider_country,
	created_at, updated_at
`

// Get loads the credential owned by userID.
//
// Returns an error wrapping [shared.ErrCredentialNotFound] when the user has none.
func (r *CredentialRepository) Get(ctx context.Context, userID string) (*models.Credential, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+credentialColumns+` FROM tidal_credentials WHERE user_id = ?`, userID)

	cred, err := scanCredential(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: user %s", shared.ErrCredentialNotFound, userID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query credential: %w", err)
	}
	return cred, nil
}

// Save inserts the credential or, when the user already has one, overwrites its token fields in place.
//
// Profile columns are left untouched on update. cred.ID is set to the stored row's id.
func (r *CredentialRepository) Save(ctx context.Context, cred *models.Credential) error {
	if err := cred.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now().UTC()
	if cred.CreatedAt.IsZero() {
		cred.CreatedAt = now
	}
	cred.UpdatedAt = now
	if cred.TokenType == "" {
		cred.TokenType = "Bearer"
	}

	id := cred.ID
	if id == "" {
		id = shared.GenerateID()
	}

	query := `
		INSERT INTO tidal_credentials (
			id, user_id, access_token, refresh_token, token_type, scope, expires_at, created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			token_type = excluded.token_type,
			scope = excluded.scope,
			expires_at = excluded.expires_at,
			updated_at = excluded.updated_at
		RETURNING id
	`

	var storedID string
	err := r.db.QueryRowContext(ctx, query,
		id,
		cred.UserID,
		cred.AccessToken,
		nullString(cred.RefreshToken),
		cred.TokenType,
		cred.Scope,
		cred.ExpiresAt.UTC(),
		cred.CreatedAt,
		cred.UpdatedAt,
	).Scan(&storedID)
	if err != nil {
		return fmt.Errorf("failed to save credential: %w", err)
	}

	cred.ID = storedID
	return nil
}

// Delete removes the user's credential. Deleting a missing credential is not an error.
func (r *CredentialRepository) Delete(ctx context.Context, userID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM tidal_credentials WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("failed to delete credential: %w", err)
	}
	return nil
}

// UpdateProfile records the Tidal account fields fetched from /users/me.
func (r *CredentialRepository) UpdateProfile(ctx context.Context, userID string, profile models.Profile) error {
	query := `
		UPDATE tidal_credentials
		SET provider_user_id = ?, provider_email = ?, provider_username = ?, provider_country = ?, updated_at = ?
		WHERE user_id = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		profile.ProviderUserID, profile.Email, profile.Username, profile.Country, time.Now().UTC(), userID,
	)
	if err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}

	return expectRow(result, shared.ErrCredentialNotFound, userID)
}

// UserIDs lists the owners of every stored credential, oldest first.
func (r *CredentialRepository) UserIDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT user_id FROM tidal_credentials ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query credentials: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan credential: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return ids, nil
}

func scanCredential(s scanner) (*models.Credential, error) {
	var (
		cred    models.Credential
		refresh sql.NullString
	)

	err := s.Scan(
		&cred.ID,
		&cred.UserID,
		&cred.AccessToken,
		&refresh,
		&cred.TokenType,
		&cred.Scope,
		&cred.ExpiresAt,
		&cred.Profile.ProviderUserID,
		&cred.Profile.Email,
		&cred.Profile.Username,
		&cred.Profile.Country,
		&cred.CreatedAt,
		&cred.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	cred.RefreshToken = refresh.String
	return &cred, nil
}
