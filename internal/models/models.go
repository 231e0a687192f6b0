// package models defines the data model for harmoniq
package models

import "time"

// Model is implemented by every stored row with an identity and audit timestamps.
type Model interface {
	ID() string
	CreatedAt() time.Time
	UpdatedAt() time.Time
	Validate() error
}

// SoftDeletable models are hidden, not removed, when deleted.
type SoftDeletable interface {
	Model
	DeletedAt() *time.Time
	IsDeleted() bool
}

// Repository is the CRUD surface shared by id-addressed stores ([User] today).
//
// Delete on a [SoftDeletable] model only stamps deleted_at; Get and List skip deleted rows.
type Repository[T Model] interface {
	Create(model T) error
	Get(id string) (T, error)
	Update(model T) error
	Delete(id string) error
	List(criteria map[string]any) ([]T, error)
}

var _ SoftDeletable = (*User)(nil)
