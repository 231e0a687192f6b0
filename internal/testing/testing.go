// package testing contains shared testing utilities: failing readers and writers, a fake Tidal token
// endpoint, a settable clock and an in-memory credential store
package testing

import (
	"errors"
	"io"
	"net/http"
	"os"
	"sync/atomic"
	"testing"
)

var (
	errWrite = errors.New("write failed")
	errRead  = errors.New("read failed")
	errLimit = errors.New("write limit exceeded")
)

// FWriter fails every write.
type FWriter struct{}

func (*FWriter) Write([]byte) (int, error) { return 0, errWrite }

// LimitedWriter passes the first maxWrites writes to target and fails the rest.
type LimitedWriter struct {
	maxWrites, written int
	target             io.Writer
}

// NewLimitedWriter starts the count at written, so (1, 0, w) allows exactly one write.
func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

func (l *LimitedWriter) Write(p []byte) (int, error) {
	if l.written >= l.maxWrites {
		return 0, errLimit
	}
	l.written++
	return l.target.Write(p)
}

// MockRoundTripper answers every request with the same response and error, counting calls.
type MockRoundTripper struct {
	response *http.Response
	err      error
	calls    atomic.Int32
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	m.calls.Add(1)
	return m.response, m.err
}

// Calls is the number of round trips made.
func (m *MockRoundTripper) Calls() int { return int(m.calls.Load()) }

// FCloser is a response body whose reads fail.
type FCloser struct{}

func (*FCloser) Read([]byte) (int, error) { return 0, errRead }
func (*FCloser) Close() error             { return nil }

func MustGetwd(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	return wd
}

func MustChdir(t *testing.T, dir string) {
	t.Helper()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir %s: %v", dir, err)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(b)
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if info, err := os.Stat(path); err != nil {
		t.Errorf("expected file %s: %v", path, err)
	} else if info.IsDir() {
		t.Errorf("expected file, found directory: %s", path)
	}
}

func AssertDirExists(t *testing.T, path string) {
	t.Helper()
	if info, err := os.Stat(path); err != nil {
		t.Errorf("expected directory %s: %v", path, err)
	} else if !info.IsDir() {
		t.Errorf("expected directory, found file: %s", path)
	}
}
