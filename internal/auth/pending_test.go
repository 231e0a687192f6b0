package auth

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	tu "github.com/desertthunder/harmoniq/internal/testing"
)

func TestPendingLogin(t *testing.T) {
	login := &PendingLogin{State: "abc", CodeVerifier: "v"}

	t.Run("Verify", func(t *testing.T) {
		if err := login.Verify("abc"); err != nil {
			t.Errorf("expected match, got %v", err)
		}
	})

	t.Run("Mismatch", func(t *testing.T) {
		for _, state := range []string{"abd", "", "abcd"} {
			if err := login.Verify(state); !errors.Is(err, ErrStateMismatch) {
				t.Errorf("state %q: expected ErrStateMismatch, got %v", state, err)
			}
		}
	})

	t.Run("Missing Verifier", func(t *testing.T) {
		var none *PendingLogin
		if err := none.Verify("abc"); !errors.Is(err, ErrMissingVerifier) {
			t.Errorf("expected ErrMissingVerifier, got %v", err)
		}
	})
}

func TestMemoryPendingStore(t *testing.T) {
	ctx := context.Background()

	t.Run("Take Erases", func(t *testing.T) {
		store := NewMemoryPendingStore(0, nil)
		if err := store.Put(ctx, "session", PendingLogin{State: "s", CodeVerifier: "v", UserID: "u"}); err != nil {
			t.Fatalf("failed to put: %v", err)
		}

		got, ok := store.Take(ctx, "session")
		if !ok || got.UserID != "u" {
			t.Fatalf("expected pending login, got %+v %v", got, ok)
		}
		if got.CreatedAt.IsZero() {
			t.Error("expected CreatedAt to be stamped")
		}

		if _, ok := store.Take(ctx, "session"); ok {
			t.Error("second take must find nothing")
		}
	})

	t.Run("Concurrent Take Yields One Winner", func(t *testing.T) {
		store := NewMemoryPendingStore(0, nil)
		_ = store.Put(ctx, "session", PendingLogin{State: "s", CodeVerifier: "v"})

		var wins atomic.Int32
		var wg sync.WaitGroup
		for range 50 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, ok := store.Take(ctx, "session"); ok {
					wins.Add(1)
				}
			}()
		}
		wg.Wait()

		if wins.Load() != 1 {
			t.Errorf("expected exactly one take to succeed, got %d", wins.Load())
		}
	})

	t.Run("Expiry", func(t *testing.T) {
		clock := tu.NewClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
		store := NewMemoryPendingStore(10*time.Minute, clock.Now)

		_ = store.Put(ctx, "old", PendingLogin{State: "s", CodeVerifier: "v"})
		clock.Advance(11 * time.Minute)
		_ = store.Put(ctx, "new", PendingLogin{State: "s", CodeVerifier: "v"})

		if _, ok := store.Take(ctx, "old"); ok {
			t.Error("expired login must not be returned")
		}
		_ = store.Put(ctx, "old", PendingLogin{State: "s", CodeVerifier: "v", CreatedAt: clock.Now().Add(-time.Hour)})

		if removed := store.Sweep(); removed != 1 {
			t.Errorf("expected sweep to remove 1 entry, got %d", removed)
		}
		if _, ok := store.Take(ctx, "new"); !ok {
			t.Error("fresh login should survive the sweep")
		}
	})
}
