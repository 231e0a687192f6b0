package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/singleflight"

	"github.com/desertthunder/harmoniq/internal/models"
	"github.com/desertthunder/harmoniq/internal/shared"
)

const (
	DefaultExpiryBuffer   = 5 * time.Minute
	DefaultRefreshTimeout = 15 * time.Second
)

// Manager is the single source of "a currently valid access token for this user".
//
// Valid tokens are served straight from the store. Refreshes for one user are collapsed with
// [singleflight] and serialized with a per-user mutex, so concurrent callers trigger at most one
// token endpoint call and later callers observe the stored result.
type Manager struct {
	store     CredentialStore
	refresher TokenRefresher
	now       func() time.Time
	buffer    time.Duration
	timeout   time.Duration
	logger    *log.Logger

	flights singleflight.Group
	locks   sync.Map // user id -> *sync.Mutex, never pruned
}

// ManagerOption configures a [Manager].
type ManagerOption func(*Manager)

func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) { m.now = now }
}

// WithExpiryBuffer sets how long before expiry a token stops being handed out.
func WithExpiryBuffer(d time.Duration) ManagerOption {
	return func(m *Manager) { m.buffer = d }
}

// WithRefreshTimeout bounds a single refresh, independent of the caller's context.
func WithRefreshTimeout(d time.Duration) ManagerOption {
	return func(m *Manager) { m.timeout = d }
}

func WithLogger(l *log.Logger) ManagerOption {
	return func(m *Manager) { m.logger = l }
}

// NewManager creates a [Manager] over store, renewing tokens through refresher.
func NewManager(store CredentialStore, refresher TokenRefresher, opts ...ManagerOption) *Manager {
	m := &Manager{
		store:     store,
		refresher: refresher,
		now:       time.Now,
		buffer:    DefaultExpiryBuffer,
		timeout:   DefaultRefreshTimeout,
		logger:    shared.WithLogger(log.Default(), "component", "auth"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// ValidToken returns an Authorization header value ("Bearer ...") for userID.
//
// Errors:
//   - [ErrNoCredential] when the user never authorized
//   - [ErrReauthorize] when the credential cannot be renewed, or the provider rejected the refresh token (the credential is then deleted)
//   - anything else is transient and leaves the credential in place
func (m *Manager) ValidToken(ctx context.Context, userID string) (string, error) {
	cred, err := m.load(ctx, userID)
	if err != nil {
		return "", err
	}

	switch cred.State(m.now(), m.buffer) {
	case models.StateAbsent:
		return "", ErrNoCredential
	case models.StateValid:
		return cred.Bearer(), nil
	case models.StateTerminal:
		return "", ErrReauthorize
	}

	out, err := m.collapse(ctx, "refresh:"+userID, func(ctx context.Context) (*refreshOutcome, error) {
		return m.refreshLocked(ctx, userID, false)
	})
	if err != nil {
		return "", err
	}
	return out.cred.Bearer(), nil
}

// ForceRefresh renews the token even if it is still valid.
//
// Returns false without error when there is nothing to refresh (no credential or no refresh token).
func (m *Manager) ForceRefresh(ctx context.Context, userID string) (bool, error) {
	out, err := m.collapse(ctx, "force:"+userID, func(ctx context.Context) (*refreshOutcome, error) {
		return m.refreshLocked(ctx, userID, true)
	})
	if err != nil {
		return false, err
	}
	return out.refreshed, nil
}

// SaveToken stores a fresh grant for userID, replacing any previous tokens.
//
// The refresh token is overwritten even when result carries none. Profile fields are kept.
func (m *Manager) SaveToken(ctx context.Context, userID string, result *TokenResult) (*models.Credential, error) {
	unlock := m.lock(userID)
	defer unlock()

	cred, err := m.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if cred == nil {
		cred = &models.Credential{UserID: userID}
	}

	cred.AccessToken = result.AccessToken
	cred.RefreshToken = result.RefreshToken
	cred.ExpiresAt = result.ExpiresAt(m.now())
	cred.TokenType = result.TokenType
	cred.Scope = result.Scope

	if err := m.store.Save(ctx, cred); err != nil {
		return nil, fmt.Errorf("failed to save credential: %w", err)
	}

	m.logger.Info("stored tidal credential", "user", userID, "expires_at", cred.ExpiresAt)
	return cred, nil
}

// Status reports the user's credential state without touching the provider.
func (m *Manager) Status(ctx context.Context, userID string) (models.CredentialState, *models.Credential, error) {
	cred, err := m.load(ctx, userID)
	if err != nil {
		return models.StateAbsent, nil, err
	}
	return cred.State(m.now(), m.buffer), cred, nil
}

// Forget deletes the stored credential. The grant is not revoked at Tidal.
func (m *Manager) Forget(ctx context.Context, userID string) error {
	unlock := m.lock(userID)
	defer unlock()

	if err := m.store.Delete(ctx, userID); err != nil {
		return fmt.Errorf("failed to forget credential: %w", err)
	}
	m.logger.Info("removed tidal credential", "user", userID)
	return nil
}

type refreshOutcome struct {
	cred      *models.Credential
	refreshed bool
}

// collapse runs fn once per key at a time. fn gets a context that survives the caller giving up,
// bounded by the refresh timeout.
func (m *Manager) collapse(ctx context.Context, key string, fn func(context.Context) (*refreshOutcome, error)) (*refreshOutcome, error) {
	ch := m.flights.DoChan(key, func() (any, error) {
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.timeout)
		defer cancel()
		return fn(rctx)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*refreshOutcome), nil
	}
}

// refreshLocked reloads the credential under the user's lock and refreshes it when still needed.
func (m *Manager) refreshLocked(ctx context.Context, userID string, force bool) (*refreshOutcome, error) {
	unlock := m.lock(userID)
	defer unlock()

	cred, err := m.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	state := cred.State(m.now(), m.buffer)
	switch {
	case state == models.StateAbsent && force:
		return &refreshOutcome{}, nil
	case state == models.StateAbsent:
		return nil, ErrNoCredential
	case state == models.StateValid && !force:
		return &refreshOutcome{cred: cred}, nil
	case cred.RefreshToken == "" && force:
		return &refreshOutcome{cred: cred}, nil
	case cred.RefreshToken == "":
		return nil, ErrReauthorize
	}

	m.logger.Debug("refreshing tidal token", "user", userID, "state", state, "forced", force)

	result, err := m.refresher.Refresh(ctx, cred.RefreshToken)
	if errors.Is(err, ErrRefreshTokenInvalid) {
		if delErr := m.store.Delete(ctx, userID); delErr != nil {
			m.logger.Error("failed to delete rejected credential", "user", userID, "error", delErr)
		}
		m.logger.Warn("refresh token rejected, credential removed", "user", userID)
		return nil, fmt.Errorf("%w: %w", ErrReauthorize, err)
	}
	if err != nil {
		m.logger.Warn("token refresh failed", "user", userID, "error", err)
		return nil, err
	}

	cred.AccessToken = result.AccessToken
	if result.RefreshToken != "" {
		cred.RefreshToken = result.RefreshToken
	}
	cred.ExpiresAt = result.ExpiresAt(m.now())
	if result.TokenType != "" {
		cred.TokenType = result.TokenType
	}
	if result.Scope != "" {
		cred.Scope = result.Scope
	}

	if err := m.store.Save(ctx, cred); err != nil {
		return nil, fmt.Errorf("failed to save refreshed credential: %w", err)
	}

	m.logger.Info("refreshed tidal token", "user", userID, "expires_at", cred.ExpiresAt)
	return &refreshOutcome{cred: cred, refreshed: true}, nil
}

// load returns nil without error when the user has no credential.
func (m *Manager) load(ctx context.Context, userID string) (*models.Credential, error) {
	cred, err := m.store.Get(ctx, userID)
	if errors.Is(err, shared.ErrCredentialNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load credential: %w", err)
	}
	return cred, nil
}

func (m *Manager) lock(userID string) func() {
	v, _ := m.locks.LoadOrStore(userID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}
