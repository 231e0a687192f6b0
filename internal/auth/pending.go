package auth

import (
	"context"
	"crypto/subtle"
	"sync"
	"time"
)

// DefaultPendingTTL bounds how long a login may take between redirect and callback.
const DefaultPendingTTL = 10 * time.Minute

// PendingLogin is what a login remembers until its callback arrives.
type PendingLogin struct {
	State        string
	CodeVerifier string
	UserID       string
	CreatedAt    time.Time
}

// Verify compares the callback's state in constant time.
func (p *PendingLogin) Verify(state string) error {
	if p == nil || p.CodeVerifier == "" {
		return ErrMissingVerifier
	}
	if state == "" || subtle.ConstantTimeCompare([]byte(p.State), []byte(state)) != 1 {
		return ErrStateMismatch
	}
	return nil
}

// PendingStore keeps pending logins keyed by browser session.
//
// Take is erase-on-read: a second Take for the same key finds nothing.
type PendingStore interface {
	Put(ctx context.Context, key string, login PendingLogin) error
	Take(ctx context.Context, key string) (*PendingLogin, bool)
}

// MemoryPendingStore is the in-process [PendingStore]. Pending logins never outlive the process.
type MemoryPendingStore struct {
	entries sync.Map
	ttl     time.Duration
	now     func() time.Time
}

// NewMemoryPendingStore creates a store whose entries expire after ttl (default [DefaultPendingTTL]).
func NewMemoryPendingStore(ttl time.Duration, now func() time.Time) *MemoryPendingStore {
	if ttl <= 0 {
		ttl = DefaultPendingTTL
	}
	if now == nil {
		now = time.Now
	}
	return &MemoryPendingStore{ttl: ttl, now: now}
}

func (s *MemoryPendingStore) Put(_ context.Context, key string, login PendingLogin) error {
	if login.CreatedAt.IsZero() {
		login.CreatedAt = s.now()
	}
	s.entries.Store(key, login)
	return nil
}

func (s *MemoryPendingStore) Take(_ context.Context, key string) (*PendingLogin, bool) {
	v, ok := s.entries.LoadAndDelete(key)
	if !ok {
		return nil, false
	}
	login := v.(PendingLogin)
	if s.expired(login) {
		return nil, false
	}
	return &login, true
}

// Sweep drops expired entries and returns how many were removed.
func (s *MemoryPendingStore) Sweep() int {
	removed := 0
	s.entries.Range(func(k, v any) bool {
		if s.expired(v.(PendingLogin)) {
			s.entries.Delete(k)
			removed++
		}
		return true
	})
	return removed
}

func (s *MemoryPendingStore) expired(login PendingLogin) bool {
	return s.now().Sub(login.CreatedAt) > s.ttl
}
