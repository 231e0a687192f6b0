package models

import (
	"fmt"
	"net/mail"
	"strings"
	"time"
)

// User is an application account. Email is unique among active users.
type User struct {
	id        string
	sequence  int
	email     string
	name      string
	createdAt time.Time
	updatedAt time.Time
	deletedAt *time.Time
}

// NewUser creates a User with normalized email and current timestamps. The ID is assigned on insert.
func NewUser(sequence int, email, name string) *User {
	now := time.Now().UTC()
	return &User{
		sequence:  sequence,
		email:     NormalizeEmail(email),
		name:      strings.TrimSpace(name),
		createdAt: now,
		updatedAt: now,
	}
}

// NormalizeEmail lowercases and trims an address so lookups are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (u *User) ID() string            { return u.id }
func (u *User) Sequence() int         { return u.sequence }
func (u *User) Email() string         { return u.email }
func (u *User) Name() string          { return u.name }
func (u *User) CreatedAt() time.Time  { return u.createdAt }
func (u *User) UpdatedAt() time.Time  { return u.updatedAt }
func (u *User) DeletedAt() *time.Time { return u.deletedAt }

func (u *User) SetID(id string)           { u.id = id }
func (u *User) SetSequence(seq int)       { u.sequence = seq }
func (u *User) SetName(name string)       { u.name = strings.TrimSpace(name) }
func (u *User) SetCreatedAt(t time.Time)  { u.createdAt = t }
func (u *User) SetUpdatedAt(t time.Time)  { u.updatedAt = t }
func (u *User) SetDeletedAt(t *time.Time) { u.deletedAt = t }
func (u *User) SetEmail(email string)     { u.email = NormalizeEmail(email) }
func (u *User) IsDeleted() bool           { return u.deletedAt != nil }

// Validate requires an id and a parseable email address.
func (u *User) Validate() error {
	if u.id == "" {
		return fmt.Errorf("user id is required")
	}
	if u.email == "" {
		return fmt.Errorf("user email is required")
	}
	if _, err := mail.ParseAddress(u.email); err != nil {
		return fmt.Errorf("invalid email %q: %w", u.email, err)
	}
	return nil
}
