package server

import "net/http"

const (
	serviceName    = "harmoniq"
	serviceVersion = "1.0.0"
)

// HealthHandler answers liveness probes.
type HealthHandler struct{}

func (HealthHandler) Routes() []Route {
	return []Route{{Method: http.MethodGet, Path: "/health"}}
}

func (HealthHandler) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": serviceName,
		"version": serviceVersion,
	})
}
