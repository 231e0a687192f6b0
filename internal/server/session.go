package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/desertthunder/harmoniq/internal/shared"
)

const (
	SessionCookie     = "harmoniq_session"
	DefaultSessionTTL = 24 * time.Hour
)

type session struct {
	userID  string
	expires time.Time
}

// Sessions is an in-memory browser session store keyed by the [SessionCookie] value.
//
// A session holds at most the application user id; pending logins live in their own store under the same key.
type Sessions struct {
	mu     sync.Mutex
	data   map[string]*session
	ttl    time.Duration
	secure bool
	now    func() time.Time
}

// NewSessions creates a store whose sessions expire ttl after their last write (default [DefaultSessionTTL]).
func NewSessions(ttl time.Duration, secure bool) *Sessions {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &Sessions{data: map[string]*session{}, ttl: ttl, secure: secure, now: time.Now}
}

// Get returns the session key and user id carried by r. ok is false when there is no live session.
func (s *Sessions) Get(r *http.Request) (key, userID string, ok bool) {
	c, err := r.Cookie(SessionCookie)
	if err != nil || c.Value == "" {
		return "", "", false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, found := s.data[c.Value]
	if !found {
		return "", "", false
	}
	if s.now().After(sess.expires) {
		delete(s.data, c.Value)
		return "", "", false
	}
	return c.Value, sess.userID, true
}

// Ensure returns the live session key for r, starting a new session (and setting its cookie) when needed.
func (s *Sessions) Ensure(w http.ResponseWriter, r *http.Request) string {
	if key, _, ok := s.Get(r); ok {
		return key
	}

	key := shared.GenerateID()
	s.mu.Lock()
	s.data[key] = &session{expires: s.now().Add(s.ttl)}
	s.mu.Unlock()

	http.SetCookie(w, s.cookie(key, int(s.ttl.Seconds())))
	return key
}

// SetUser binds userID to the session key and extends its lifetime.
func (s *Sessions) SetUser(key, userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = &session{userID: userID, expires: s.now().Add(s.ttl)}
}

// Clear ends the session carried by r and expires its cookie.
func (s *Sessions) Clear(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(SessionCookie); err == nil {
		s.mu.Lock()
		delete(s.data, c.Value)
		s.mu.Unlock()
	}
	http.SetCookie(w, s.cookie("", -1))
}

// Sweep drops expired sessions and returns how many were removed.
func (s *Sessions) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now, removed := s.now(), 0
	for key, sess := range s.data {
		if now.After(sess.expires) {
			delete(s.data, key)
			removed++
		}
	}
	return removed
}

// Len is the number of sessions held, expired or not.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data)
}

func (s *Sessions) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookie,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	}
}
