package testing

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// TokenServer is a fake OAuth token endpoint. It records every form it receives and answers with
// Status and Body (JSON encoded), optionally after Delay.
type TokenServer struct {
	*httptest.Server

	mu     sync.Mutex
	forms  []url.Values
	auths  []string
	calls  atomic.Int32
	status int
	body   any
	delay  time.Duration
}

// NewTokenServer starts a token endpoint answering 200 with body. It is closed when the test ends.
func NewTokenServer(t *testing.T, body any) *TokenServer {
	t.Helper()
	ts := &TokenServer{status: http.StatusOK, body: body}
	ts.Server = httptest.NewServer(http.HandlerFunc(ts.serve))
	t.Cleanup(ts.Close)
	return ts
}

// Respond changes the status and body of subsequent answers.
func (ts *TokenServer) Respond(status int, body any) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	ts.status, ts.body = status, body
}

// SetDelay makes every answer wait d first.
func (ts *TokenServer) SetDelay(d time.Duration) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	ts.delay = d
}

// Calls is the number of requests served so far.
func (ts *TokenServer) Calls() int {
	return int(ts.calls.Load())
}

// LastForm returns the most recent form body, or nil.
func (ts *TokenServer) LastForm() url.Values {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	if len(ts.forms) == 0 {
		return nil
	}
	return ts.forms[len(ts.forms)-1]
}

// LastAuthorization returns the Authorization header of the most recent request.
func (ts *TokenServer) LastAuthorization() string {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	if len(ts.auths) == 0 {
		return ""
	}
	return ts.auths[len(ts.auths)-1]
}

func (ts *TokenServer) serve(w http.ResponseWriter, r *http.Request) {
	ts.calls.Add(1)
	_ = r.ParseForm()

	ts.mu.Lock()
	ts.forms = append(ts.forms, r.PostForm)
	ts.auths = append(ts.auths, r.Header.Get("Authorization"))
	status, body, delay := ts.status, ts.body, ts.delay
	ts.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	switch b := body.(type) {
	case nil:
	case string:
		_, _ = w.Write([]byte(b))
	default:
		_ = json.NewEncoder(w).Encode(b)
	}
}
