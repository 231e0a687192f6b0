package main

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/harmoniq/internal/auth"
	"github.com/desertthunder/harmoniq/internal/server"
)

func TestSweep(t *testing.T) {
	t.Run("Drops Expired Sessions", func(t *testing.T) {
		old := sweepInterval
		sweepInterval = 5 * time.Millisecond
		t.Cleanup(func() { sweepInterval = old })

		runner := NewRunner(RunnerOpts{Logger: log.New(io.Discard)})
		sessions := server.NewSessions(time.Millisecond, false)
		for range 100 {
			sessions.Ensure(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/auth/login", nil))
		}

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		go func() {
			runner.sweep(ctx, auth.NewMemoryPendingStore(time.Millisecond, nil), sessions)
			close(done)
		}()
		defer func() {
			cancel()
			<-done
		}()

		deadline := time.Now().Add(2 * time.Second)
		for sessions.Len() > 0 {
			if time.Now().After(deadline) {
				t.Fatalf("expected expired sessions to be swept, %d left", sessions.Len())
			}
			time.Sleep(5 * time.Millisecond)
		}
	})
}
