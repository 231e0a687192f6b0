package server

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	tu "github.com/desertthunder/harmoniq/internal/testing"
)

func TestSessions(t *testing.T) {
	withCookie := func(rec *httptest.ResponseRecorder) *http.Request {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		for _, c := range rec.Result().Cookies() {
			req.AddCookie(c)
		}
		return req
	}

	t.Run("Ensure Starts A Session", func(t *testing.T) {
		s := NewSessions(time.Hour, true)
		rec := httptest.NewRecorder()
		key := s.Ensure(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		cookies := rec.Result().Cookies()
		if len(cookies) != 1 || cookies[0].Name != SessionCookie || cookies[0].Value != key {
			t.Fatalf("expected session cookie %s, got %v", key, cookies)
		}
		if !cookies[0].HttpOnly || !cookies[0].Secure {
			t.Error("expected HttpOnly and Secure cookie")
		}

		again := httptest.NewRecorder()
		if got := s.Ensure(again, withCookie(rec)); got != key {
			t.Errorf("expected existing session %s, got %s", key, got)
		}
		if len(again.Result().Cookies()) != 0 {
			t.Error("expected no new cookie for a live session")
		}
	})

	t.Run("SetUser", func(t *testing.T) {
		s := NewSessions(time.Hour, false)
		rec := httptest.NewRecorder()
		key := s.Ensure(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		s.SetUser(key, "user-1")

		_, userID, ok := s.Get(withCookie(rec))
		if !ok || userID != "user-1" {
			t.Errorf("expected user-1, got %q (ok=%v)", userID, ok)
		}
	})

	t.Run("Expires", func(t *testing.T) {
		clock := tu.NewClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
		s := NewSessions(time.Minute, false)
		s.now = clock.Now

		rec := httptest.NewRecorder()
		s.Ensure(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		clock.Advance(2 * time.Minute)

		if _, _, ok := s.Get(withCookie(rec)); ok {
			t.Error("expected session to expire")
		}
	})

	t.Run("Sweep Drops Expired", func(t *testing.T) {
		clock := tu.NewClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
		s := NewSessions(time.Minute, false)
		s.now = clock.Now

		for range 1000 {
			s.Ensure(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/auth/login", nil))
		}
		clock.Advance(2 * time.Minute)

		rec := httptest.NewRecorder()
		s.Ensure(rec, httptest.NewRequest(http.MethodGet, "/auth/login", nil))

		if n := s.Sweep(); n != 1000 {
			t.Errorf("expected 1000 expired sessions dropped, got %d", n)
		}
		if s.Len() != 1 {
			t.Errorf("expected only the live session to remain, got %d", s.Len())
		}
		if _, _, ok := s.Get(withCookie(rec)); !ok {
			t.Error("expected the live session to survive the sweep")
		}
	})

	t.Run("Unknown Cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: SessionCookie, Value: "forged"})

		if _, _, ok := NewSessions(0, false).Get(req); ok {
			t.Error("expected unknown session to be rejected")
		}
	})
}

func TestRun(t *testing.T) {
	srv := NewHTTPServer("127.0.0.1:0", HealthHandler{})
	ctx, cancel := context.WithCancel(context.Background())
	ready := make(chan struct{})

	done := make(chan error, 1)
	go func() { done <- Run(ctx, srv, time.Second, testLogger(io.Discard), ready) }()

	select {
	case <-ready:
	case <-time.After(2 * time.Second):
		t.Fatal("server did not start")
	}
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("expected clean shutdown, got %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("server did not shut down")
	}
}
