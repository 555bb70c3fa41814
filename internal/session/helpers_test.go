package session

import (
	"context"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Hersthz/SWP391---EV-Charging-Station-Management-System-sub001/internal/shared"
)

// fakeBackend is a scripted [Transport] counting calls per path.
type fakeBackend struct {
	mu     sync.Mutex
	calls  map[string]int
	handle func(req *Request, n int) (*Response, error)
}

func newFakeBackend(handle func(req *Request, n int) (*Response, error)) *fakeBackend {
	return &fakeBackend{calls: make(map[string]int), handle: handle}
}

func (f *fakeBackend) Do(_ context.Context, req *Request) (*Response, error) {
	f.mu.Lock()
	f.calls[req.Path]++
	n := f.calls[req.Path]
	f.mu.Unlock()
	return f.handle(req, n)
}

func (f *fakeBackend) count(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[path]
}

type recordingTerminator struct {
	mu           sync.Mutex
	terminations int
	navigations  int
	causes       []error
}

func (r *recordingTerminator) Terminate(_ context.Context, cause error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.terminations++
	r.causes = append(r.causes, cause)
}

func (r *recordingTerminator) Navigate(context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.navigations++
}

func (r *recordingTerminator) counts() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.terminations, r.navigations
}

type mapStore struct {
	mu     sync.Mutex
	values map[string]string
}

func newMapStore() *mapStore {
	return &mapStore{values: make(map[string]string)}
}

func (m *mapStore) GetState(key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *mapStore) SetState(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *mapStore) DeleteState(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

func statusErr(req *Request, status int) error {
	return &StatusError{Method: req.Method, Path: req.Path, StatusCode: status}
}

func jsonResponse(body string) *Response {
	h := make(http.Header)
	h.Set("Content-Type", "application/json")
	return &Response{StatusCode: http.StatusOK, Headers: h, Body: []byte(body)}
}

func htmlResponse() *Response {
	h := make(http.Header)
	h.Set("Content-Type", "text/html; charset=utf-8")
	return &Response{StatusCode: http.StatusOK, Headers: h, Body: []byte("<html><form action=/login></form></html>")}
}

type testEnv struct {
	backend    *fakeBackend
	critical   *Flag
	terminator *recordingTerminator
	client     *Client
	coord      *Coordinator
}

func newTestEnv(t *testing.T, backend *fakeBackend, policy DisguisedAuthPolicy) *testEnv {
	t.Helper()

	logger := shared.NewLogger(io.Discard)
	critical := &Flag{}
	term := &recordingTerminator{}
	coord := NewCoordinator(CoordinatorOpts{
		Critical:   critical,
		Terminator: term,
		Logger:     logger,
	})
	client := NewClient(ClientOpts{
		Transport:     backend,
		Coordinator:   coord,
		Critical:      critical,
		Terminator:    term,
		DisguisedAuth: policy,
		Logger:        logger,
	})

	return &testEnv{backend: backend, critical: critical, terminator: term, client: client, coord: coord}
}

// waitForWaiters blocks until a refresh is in flight with n queued waiters.
func waitForWaiters(t *testing.T, c *Coordinator, n int) {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		c.mu.Lock()
		refreshing, queued := c.refreshing, len(c.waiters)
		c.mu.Unlock()
		if refreshing && queued == n {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d waiters", n)
}

// sessionBackend models a backend whose session is invalid until refreshed.
type sessionBackend struct {
	valid   atomic.Bool
	release chan struct{}
}

func (s *sessionBackend) api(req *Request) (*Response, error) {
	if s.valid.Load() {
		return jsonResponse(`{"ok":true}`), nil
	}
	return nil, statusErr(req, http.StatusUnauthorized)
}
