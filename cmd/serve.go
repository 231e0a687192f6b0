package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/harmoniq/internal/auth"
	"github.com/desertthunder/harmoniq/internal/server"
	"github.com/desertthunder/harmoniq/internal/shared"
)

var sweepInterval = time.Minute

// newRouter wires the health, auth and playlist handlers. onComplete may be nil.
func (r *Runner) newRouter(d *deps, pending auth.PendingStore, sessions *server.Sessions, onComplete func(string, error)) http.Handler {
	cfg := r.config.Server
	logger := shared.WithLogger(r.logger, "component", "http")

	router := server.NewBasicRouter()
	router.Use(server.Recover(logger), server.Logging(logger))

	router.Handler(server.HealthHandler{})
	router.Handler(server.NewAuthHandler(server.AuthConfig{
		Flow:        d.flow,
		Exchanger:   d.exchanger,
		Credentials: d.manager,
		Users:       d.users,
		Pending:     pending,
		Sessions:    sessions,
		DefaultUser: cfg.DefaultUser,
		Logger:      r.logger,
		OnComplete:  onComplete,
	}))
	router.Handler(server.NewPlaylistHandler(server.PlaylistConfig{
		API:         d.client,
		Profiles:    d.syncer,
		Users:       d.users,
		Sessions:    sessions,
		DefaultUser: cfg.DefaultUser,
		Logger:      r.logger,
	}))
	return router
}

func (r *Runner) pendingStore() *auth.MemoryPendingStore {
	return auth.NewMemoryPendingStore(time.Duration(r.config.Server.PendingTTL)*time.Minute, nil)
}

func (r *Runner) sessions() *server.Sessions {
	cfg := r.config.Server
	return server.NewSessions(time.Duration(cfg.SessionTTL)*time.Minute, cfg.SecureCookies)
}

// sweep drops expired pending logins and sessions until ctx is done.
func (r *Runner) sweep(ctx context.Context, pending *auth.MemoryPendingStore, sessions *server.Sessions) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := pending.Sweep(); n > 0 {
				r.logger.Debug("dropped expired pending logins", "count", n)
			}
			if n := sessions.Sweep(); n > 0 {
				r.logger.Debug("dropped expired sessions", "count", n, "active", sessions.Len())
			}
		}
	}
}

// Serve runs the HTTP server until interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	d, err := r.Deps()
	if err != nil {
		return err
	}
	if err := r.config.Validate(); err != nil {
		r.logger.Warn("tidal login will fail until configured", "error", err)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	pending, sessions := r.pendingStore(), r.sessions()
	go r.sweep(ctx, pending, sessions)

	srv := server.NewHTTPServer(r.config.Server.Addr(), r.newRouter(d, pending, sessions, nil))
	window := time.Duration(r.config.Server.ShutdownWindow) * time.Second
	return server.Run(ctx, srv, window, shared.WithLogger(r.logger, "component", "http"), nil)
}
