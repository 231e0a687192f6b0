package repositories

import (
	"database/sql"
	"errors"
	"testing"

	"github.com/desertthunder/harmoniq/internal/models"
	"github.com/desertthunder/harmoniq/internal/shared"
)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	shared.ConfigureDatabase(db, 1, 1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		t.Fatalf("failed to enable foreign keys: %v", err)
	}

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	return db
}

func TestUserRepository(t *testing.T) {
	t.Run("Create", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewUserRepository(db)
		user := models.NewUser(0, "test@example.com", "Test User")

		err := repo.Create(user)
		if err != nil {
			t.Fatalf("failed to create user: %v", err)
		}

		if user.ID() == "" {
			t.Error("user ID should be set after creation")
		}
	})

	t.Run("Get", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewUserRepository(db)
		user := models.NewUser(0, "test@example.com", "Test User")

		if err := repo.Create(user); err != nil {
			t.Fatalf("failed to create user: %v", err)
		}

		retrieved, err := repo.Get(user.ID())
		if err != nil {
			t.Fatalf("failed to get user: %v", err)
		}

		if retrieved.ID() != user.ID() {
			t.Errorf("expected ID %s, got %s", user.ID(), retrieved.ID())
		}

		if retrieved.Email() != user.Email() {
			t.Errorf("expected email %s, got %s", user.Email(), retrieved.Email())
		}

		if retrieved.Sequence() != 1 {
			t.Errorf("expected first sequence to be 1, got %d", retrieved.Sequence())
		}

		if retrieved.CreatedAt().IsZero() {
			t.Error("expected created_at to be read back")
		}
	})

	t.Run("GetByEmail", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewUserRepository(db)
		user := models.NewUser(0, "test@example.com", "Test User")
		if err := repo.Create(user); err != nil {
			t.Fatalf("failed to create user: %v", err)
		}

		retrieved, err := repo.GetByEmail("  TEST@example.com")
		if err != nil {
			t.Fatalf("failed to get user by email: %v", err)
		}
		if retrieved.ID() != user.ID() {
			t.Errorf("expected ID %s, got %s", user.ID(), retrieved.ID())
		}

		if _, err := repo.GetByEmail("missing@example.com"); !errors.Is(err, shared.ErrUserNotFound) {
			t.Errorf("expected ErrUserNotFound, got %v", err)
		}
	})

	t.Run("FindOrCreate", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewUserRepository(db)

		first, created, err := repo.FindOrCreate("listener@example.com", "Listener")
		if err != nil {
			t.Fatalf("failed to create user: %v", err)
		}
		if !created {
			t.Error("expected first call to create the user")
		}

		second, created, err := repo.FindOrCreate("Listener@Example.com", "Other Name")
		if err != nil {
			t.Fatalf("failed to find user: %v", err)
		}
		if created {
			t.Error("expected second call to find the existing user")
		}
		if second.ID() != first.ID() {
			t.Errorf("expected same user, got %s and %s", first.ID(), second.ID())
		}
		if second.Name() != "Listener" {
			t.Errorf("existing name should be kept, got %s", second.Name())
		}
	})

	t.Run("Update", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewUserRepository(db)
		user := models.NewUser(0, "test@example.com", "Test User")

		if err := repo.Create(user); err != nil {
			t.Fatalf("failed to create user: %v", err)
		}

		user.SetName("  Renamed Listener ")
		user.SetEmail("Renamed@Example.com")
		if err := repo.Update(user); err != nil {
			t.Fatalf("failed to update user: %v", err)
		}

		retrieved, err := repo.Get(user.ID())
		if err != nil {
			t.Fatalf("failed to get user: %v", err)
		}
		if retrieved.Name() != "Renamed Listener" || retrieved.Email() != "renamed@example.com" {
			t.Errorf("expected trimmed name and normalized email, got %q %q", retrieved.Name(), retrieved.Email())
		}
		if retrieved.UpdatedAt().Before(retrieved.CreatedAt()) {
			t.Error("expected updated_at not before created_at")
		}
	})

	t.Run("Delete", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewUserRepository(db)
		user := models.NewUser(0, "test@example.com", "Test User")

		if err := repo.Create(user); err != nil {
			t.Fatalf("failed to create user: %v", err)
		}

		if err := repo.Delete(user.ID()); err != nil {
			t.Fatalf("failed to delete user: %v", err)
		}

		_, err := repo.Get(user.ID())
		if err == nil {
			t.Error("expected error when getting deleted user")
		}
	})

	t.Run("List", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewUserRepository(db)

		users := []*models.User{
			models.NewUser(0, "user1@example.com", "User One"),
			models.NewUser(0, "user2@example.com", "User Two"),
			models.NewUser(0, "user3@example.com", "User Three"),
		}

		for _, user := range users {
			if err := repo.Create(user); err != nil {
				t.Fatalf("failed to create user: %v", err)
			}
		}

		retrieved, err := repo.List(map[string]any{})
		if err != nil {
			t.Fatalf("failed to list users: %v", err)
		}

		if len(retrieved) != 3 {
			t.Fatalf("expected 3 users, got %d", len(retrieved))
		}
		for i, u := range retrieved {
			if u.Sequence() != i+1 || u.ID() != users[i].ID() {
				t.Errorf("expected users in creation order, got %s at %d (sequence %d)", u.Email(), i, u.Sequence())
			}
		}

		filtered, err := repo.List(map[string]any{"email": "user2@example.com"})
		if err != nil {
			t.Fatalf("failed to list filtered users: %v", err)
		}

		if len(filtered) != 1 {
			t.Errorf("expected 1 user, got %d", len(filtered))
		}

		if len(filtered) > 0 && filtered[0].Email() != "user2@example.com" {
			t.Errorf("expected user2@example.com, got %s", filtered[0].Email())
		}
	})
}
