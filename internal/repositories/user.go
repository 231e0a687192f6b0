package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/harmoniq/internal/models"
	"github.com/desertthunder/harmoniq/internal/shared"
)

// UserRepository implements [models.Repository] for user [models.User] persistence.
type UserRepository struct {
	db *sql.DB
}

var _ models.Repository[*models.User] = (*UserRepository)(nil)

// NewUserRepository creates a new [UserRepository] with the given database connection
func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, sequence, email, name, created_at, updated_at, deleted_at`

// Create inserts a new user into the database with generated ID and sequence
func (r *UserRepository) Create(user *models.User) error {
	sequence, err := NextSequence(r.db, "users")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	id := shared.GenerateID()
	user.SetID(id)
	user.SetSequence(sequence)

	if err := user.Validate(); err != nil {
		return fmt.Errorf("%w: %w", shared.ErrInvalidInput, err)
	}

	query := `INSERT INTO users (id, sequence, email, name, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`

	_, err = r.db.Exec(query, id, sequence, user.Email(), user.Name(), user.CreatedAt(), user.UpdatedAt())
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}

	return nil
}

// Get retrieves a user by ID, excluding soft-deleted users
func (r *UserRepository) Get(id string) (*models.User, error) {
	row := r.db.QueryRow(`SELECT `+userColumns+` FROM users WHERE id = ? AND deleted_at IS NULL`, id)

	user, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", shared.ErrUserNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	return user, nil
}

// GetByEmail retrieves an active user by (normalized) email.
func (r *UserRepository) GetByEmail(email string) (*models.User, error) {
	email = models.NormalizeEmail(email)
	row := r.db.QueryRow(`SELECT `+userColumns+` FROM users WHERE email = ? AND deleted_at IS NULL`, email)

	user, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", shared.ErrUserNotFound, email)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	return user, nil
}

// FindOrCreate returns the active user with email, creating one named name when none exists.
//
// A concurrent insert of the same email is resolved by reading the winner's row.
func (r *UserRepository) FindOrCreate(email, name string) (*models.User, bool, error) {
	user, err := r.GetByEmail(email)
	if err == nil {
		return user, false, nil
	}
	if !errors.Is(err, shared.ErrUserNotFound) {
		return nil, false, err
	}

	user = models.NewUser(0, email, name)
	if err := r.Create(user); err != nil {
		if isUniqueViolation(err) {
			existing, getErr := r.GetByEmail(email)
			if getErr != nil {
				return nil, false, getErr
			}
			return existing, false, nil
		}
		return nil, false, err
	}
	return user, true, nil
}

// Update modifies an existing user in the database
func (r *UserRepository) Update(user *models.User) error {
	if err := user.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now().UTC()
	user.SetUpdatedAt(now)

	query := `
		UPDATE users
		SET email = ?, name = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, user.Email(), user.Name(), now, user.ID())
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}

	return expectRow(result, shared.ErrUserNotFound, user.ID())
}

// Delete soft-deletes a user by ID
func (r *UserRepository) Delete(id string) error {
	result, err := r.db.Exec(`UPDATE users SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	return expectRow(result, shared.ErrUserNotFound, id)
}

// List retrieves all users matching the given criteria, excluding soft-deleted users
//
// Supported criteria: "email" (string).
func (r *UserRepository) List(criteria map[string]any) ([]*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE deleted_at IS NULL`
	args := []any{}

	if email, ok := criteria["email"].(string); ok && email != "" {
		query += " AND email = ?"
		args = append(args, models.NormalizeEmail(email))
	}

	query += " ORDER BY sequence ASC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return users, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(s scanner) (*models.User, error) {
	var (
		id        string
		sequence  int
		email     string
		name      string
		createdAt time.Time
		updatedAt time.Time
		deletedAt sql.NullTime
	)

	if err := s.Scan(&id, &sequence, &email, &name, &createdAt, &updatedAt, &deletedAt); err != nil {
		return nil, err
	}

	user := models.NewUser(sequence, email, name)
	user.SetID(id)
	user.SetCreatedAt(createdAt)
	user.SetUpdatedAt(updatedAt)
	if deletedAt.Valid {
		user.SetDeletedAt(&deletedAt.Time)
	}
	return user, nil
}

// expectRow turns a zero-row write into a not-found error.
func expectRow(result sql.Result, notFound error, key string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", notFound, key)
	}
	return nil
}
