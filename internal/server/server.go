// package server contains the router, middleware & handlers for the harmoniq web service
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
)

// Middleware wraps an http.Handler and returns a new http.Handler with additional behavior.
type Middleware func(http.Handler) http.Handler

// Route is one method and path pattern served by a [Handler]. Paths use gorilla/mux syntax ({id}).
type Route struct {
	Method string
	Path   string
}

// Handler defines the interface for HTTP request handlers in the harmoniq service.
// Implementations dispatch on the matched route inside ServeHTTP.
type Handler interface {
	http.Handler     // ServeHTTP handles the HTTP request and writes the response
	Routes() []Route // Routes returns the method and path patterns this handler serves
}

// Router defines the interface for HTTP routing and middleware management.
type Router interface {
	Use(middleware ...Middleware)                     // Use adds middleware to the router's middleware stack
	Handle(method, path string, handler http.Handler) // Handle registers a handler for the specified method and path
	Handler(handler Handler)                          // Handler registers a custom Handler implementation
	ServeHTTP(w http.ResponseWriter, r *http.Request) // ServeHTTP implements http.Handler for the entire router
}

// NewHTTPServer returns an [http.Server] for handler with bounded read and write timeouts.
func NewHTTPServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}

// Run serves on srv.Addr until ctx is done, then shuts down, waiting at most window for open requests.
//
// ready, when non-nil, is closed once the listener accepts connections.
func Run(ctx context.Context, srv *http.Server, window time.Duration, logger *log.Logger, ready chan<- struct{}) error {
	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", srv.Addr, err)
	}
	if ready != nil {
		close(ready)
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
		close(serverErrors)
	}()

	select {
	case err, ok := <-serverErrors:
		if !ok {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	if window <= 0 {
		window = 5 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), window)
	defer cancel()

	logger.Info("shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down: %w", err)
	}
	return nil
}
