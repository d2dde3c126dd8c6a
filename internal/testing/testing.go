// Package testing holds fakes shared by package tests: a fake Plex backend ([FakePlex]) and
// failure-injecting io and http helpers.
package testing

import (
	"errors"
	"io"
	"io/fs"
	"net/http"
	"os"
	"strings"
	"testing"
)

// ErrInjected is returned by every failing helper in this package.
var ErrInjected = errors.New("injected failure")

// FailingWriter fails every Write.
type FailingWriter struct{}

func (FailingWriter) Write([]byte) (int, error) { return 0, ErrInjected }

// LimitedWriter passes the first writes through to target and fails after that.
type LimitedWriter struct {
	remaining int
	target    io.Writer
}

// NewLimitedWriter lets the first writes calls through to target.
func NewLimitedWriter(writes int, target io.Writer) *LimitedWriter {
	return &LimitedWriter{remaining: writes, target: target}
}

func (l *LimitedWriter) Write(p []byte) (int, error) {
	if l.remaining <= 0 {
		return 0, ErrInjected
	}
	l.remaining--
	return l.target.Write(p)
}

// FailingBody is a response body whose Read always fails.
type FailingBody struct{}

func (FailingBody) Read([]byte) (int, error) { return 0, ErrInjected }
func (FailingBody) Close() error             { return nil }

// RoundTripFunc lets a plain function stand in for the network.
type RoundTripFunc func(*http.Request) (*http.Response, error)

func (f RoundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

// UnreachableClient returns a client whose requests fail with err before any I/O.
func UnreachableClient(err error) *http.Client {
	return &http.Client{Transport: RoundTripFunc(func(*http.Request) (*http.Response, error) {
		return nil, err
	})}
}

// StaticClient returns a client that answers every request with status and body.
func StaticClient(status int, body io.ReadCloser) *http.Client {
	return &http.Client{Transport: RoundTripFunc(func(r *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: status,
			Status:     http.StatusText(status),
			Header:     http.Header{"Content-Type": {"application/json"}},
			Body:       body,
			Request:    r,
		}, nil
	})}
}

// JSONBody wraps s as a response body.
func JSONBody(s string) io.ReadCloser {
	return io.NopCloser(strings.NewReader(s))
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func AssertDirExists(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		t.Errorf("Directory does not exist: %s", path)
		return
	}
	if !info.IsDir() {
		t.Errorf("Path is not a directory: %s", path)
	}
}

// AssertFileMode checks the permission bits of path. Files holding a Plex token must be 0600.
func AssertFileMode(t *testing.T, path string, want fs.FileMode) {
	t.Helper()
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Failed to stat %s: %v", path, err)
	}
	if got := info.Mode().Perm(); got != want {
		t.Errorf("Expected mode %v for %s, got %v", want, path, got)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
