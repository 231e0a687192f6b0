package repositories

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/desertthunder/harmoniq/internal/models"
	"github.com/desertthunder/harmoniq/internal/shared"
)

func createTestUser(t *testing.T, db *sql.DB, email string) *models.User {
	t.Helper()
	user := models.NewUser(0, email, "Test User")
	if err := NewUserRepository(db).Create(user); err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	return user
}

func TestCredentialRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("Save And Get", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		user := createTestUser(t, db, "test@example.com")
		repo := NewCredentialRepository(db)

		expires := time.Date(2030, 1, 1, 12, 0, 0, 0, time.UTC)
		cred := &models.Credential{
			UserID:       user.ID(),
			AccessToken:  "access-1",
			RefreshToken: "refresh-1",
			Scope:        "r_usr w_usr",
			ExpiresAt:    expires,
		}
		if err := repo.Save(ctx, cred); err != nil {
			t.Fatalf("failed to save credential: %v", err)
		}
		if cred.ID == "" {
			t.Fatal("expected ID to be assigned")
		}

		got, err := repo.Get(ctx, user.ID())
		if err != nil {
			t.Fatalf("failed to get credential: %v", err)
		}
		if got.AccessToken != "access-1" || got.RefreshToken != "refresh-1" {
			t.Errorf("unexpected tokens: %q %q", got.AccessToken, got.RefreshToken)
		}
		if got.TokenType != "Bearer" {
			t.Errorf("expected default token type Bearer, got %q", got.TokenType)
		}
		if !got.ExpiresAt.Equal(expires) {
			t.Errorf("expected expiry %v, got %v", expires, got.ExpiresAt)
		}
	})

	t.Run("Save Overwrites Existing Row", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		user := createTestUser(t, db, "test@example.com")
		repo := NewCredentialRepository(db)

		first := &models.Credential{UserID: user.ID(), AccessToken: "a1", RefreshToken: "r1", ExpiresAt: time.Now().Add(time.Hour)}
		if err := repo.Save(ctx, first); err != nil {
			t.Fatalf("failed to save credential: %v", err)
		}

		profile := models.Profile{ProviderUserID: "12345", Email: "listener@tidal.test", Username: "listener", Country: "US"}
		if err := repo.UpdateProfile(ctx, user.ID(), profile); err != nil {
			t.Fatalf("failed to update profile: %v", err)
		}

		second := &models.Credential{UserID: user.ID(), AccessToken: "a2", ExpiresAt: time.Now().Add(2 * time.Hour)}
		if err := repo.Save(ctx, second); err != nil {
			t.Fatalf("failed to save credential: %v", err)
		}
		if second.ID != first.ID {
			t.Errorf("expected row id %s to be kept, got %s", first.ID, second.ID)
		}

		var count int
		if err := db.QueryRow(`SELECT COUNT(*) FROM tidal_credentials`).Scan(&count); err != nil {
			t.Fatalf("failed to count credentials: %v", err)
		}
		if count != 1 {
			t.Errorf("expected exactly one credential row, got %d", count)
		}

		got, err := repo.Get(ctx, user.ID())
		if err != nil {
			t.Fatalf("failed to get credential: %v", err)
		}
		if got.AccessToken != "a2" {
			t.Errorf("expected access token a2, got %q", got.AccessToken)
		}
		if got.RefreshToken != "" {
			t.Errorf("expected refresh token to be cleared, got %q", got.RefreshToken)
		}
		if got.Profile != profile {
			t.Errorf("expected profile to survive the overwrite, got %+v", got.Profile)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		user := createTestUser(t, db, "test@example.com")
		repo := NewCredentialRepository(db)

		cred := &models.Credential{UserID: user.ID(), AccessToken: "a1", ExpiresAt: time.Now().Add(time.Hour)}
		if err := repo.Save(ctx, cred); err != nil {
			t.Fatalf("failed to save credential: %v", err)
		}

		if err := repo.Delete(ctx, user.ID()); err != nil {
			t.Fatalf("failed to delete credential: %v", err)
		}
		if _, err := repo.Get(ctx, user.ID()); !errors.Is(err, shared.ErrCredentialNotFound) {
			t.Errorf("expected ErrCredentialNotFound after delete, got %v", err)
		}
		if err := repo.Delete(ctx, user.ID()); err != nil {
			t.Errorf("deleting a missing credential should succeed, got %v", err)
		}
	})

	t.Run("UserIDs", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewCredentialRepository(db)
		alice := createTestUser(t, db, "alice@example.com")
		createTestUser(t, db, "bob@example.com")

		if err := repo.Save(ctx, &models.Credential{UserID: alice.ID(), AccessToken: "a", ExpiresAt: time.Now()}); err != nil {
			t.Fatalf("failed to save credential: %v", err)
		}

		ids, err := repo.UserIDs(ctx)
		if err != nil {
			t.Fatalf("failed to list user ids: %v", err)
		}
		if len(ids) != 1 || ids[0] != alice.ID() {
			t.Errorf("expected only alice, got %v", ids)
		}
	})
}

func TestCredentialRepositoryErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("Get NotFound", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		_, err := NewCredentialRepository(db).Get(ctx, "nobody")
		if !errors.Is(err, shared.ErrCredentialNotFound) {
			t.Fatalf("expected ErrCredentialNotFound, got %v", err)
		}
	})

	t.Run("Save ValidationError", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		user := createTestUser(t, db, "test@example.com")
		err := NewCredentialRepository(db).Save(ctx, &models.Credential{UserID: user.ID(), ExpiresAt: time.Now()})
		if err == nil {
			t.Fatal("expected validation error for missing access token")
		}
	})

	t.Run("Save Unknown User", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		cred := &models.Credential{UserID: "missing", AccessToken: "a", ExpiresAt: time.Now()}
		if err := NewCredentialRepository(db).Save(ctx, cred); err == nil {
			t.Fatal("expected foreign key error for unknown user")
		}
	})

	t.Run("UpdateProfile NotFound", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		err := NewCredentialRepository(db).UpdateProfile(ctx, "nobody", models.Profile{ProviderUserID: "1"})
		if !errors.Is(err, shared.ErrCredentialNotFound) {
			t.Fatalf("expected ErrCredentialNotFound, got %v", err)
		}
	})
}
