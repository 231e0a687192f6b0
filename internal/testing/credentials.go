package testing

import (
	"context"
	"fmt"
	"sync"

	"github.com/desertthunder/harmoniq/internal/models"
	"github.com/desertthunder/harmoniq/internal/shared"
)

// MemoryCredentials is an in-memory credential store with the same not-found contract as the sqlite one.
type MemoryCredentials struct {
	mu    sync.Mutex
	creds map[string]models.Credential
	saves int
}

func NewMemoryCredentials(creds ...models.Credential) *MemoryCredentials {
	m := &MemoryCredentials{creds: map[string]models.Credential{}}
	for _, c := range creds {
		m.creds[c.UserID] = c
	}
	return m
}

func (m *MemoryCredentials) Get(_ context.Context, userID string) (*models.Credential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.creds[userID]
	if !ok {
		return nil, fmt.Errorf("%w: user %s", shared.ErrCredentialNotFound, userID)
	}
	return &c, nil
}

func (m *MemoryCredentials) Save(_ context.Context, cred *models.Credential) error {
	if err := cred.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *cred
	if prev, ok := m.creds[cred.UserID]; ok {
		c.Profile = prev.Profile
	}
	m.creds[cred.UserID] = c
	m.saves++
	return nil
}

func (m *MemoryCredentials) Delete(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.creds, userID)
	return nil
}

// Saves counts successful Save calls.
func (m *MemoryCredentials) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

// Has reports whether userID currently has a credential.
func (m *MemoryCredentials) Has(userID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.creds[userID]
	return ok
}
