package testutil

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// MockResponse represents a canned HTTP response
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
}

// MockServer is an httptest server answering by request path. It stands
// in for the stock-photo APIs and for remote image hosts.
type MockServer struct {
	*httptest.Server

	mu        sync.Mutex
	responses map[string]MockResponse
	requests  []*http.Request
}

// NewMockServer starts a server that is closed when the test ends
func NewMockServer(t *testing.T) *MockServer {
	t.Helper()

	m := &MockServer{responses: make(map[string]MockResponse)}
	m.Server = httptest.NewServer(http.HandlerFunc(m.serve))
	t.Cleanup(m.Close)
	return m
}

// Respond registers the response for a path
func (m *MockServer) Respond(path string, resp MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[path] = resp
}

// Requests returns the requests received so far
func (m *MockServer) Requests() []*http.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*http.Request(nil), m.requests...)
}

// LastRequest returns the most recent request or nil
func (m *MockServer) LastRequest() *http.Request {
	reqs := m.Requests()
	if len(reqs) == 0 {
		return nil
	}
	return reqs[len(reqs)-1]
}

func (m *MockServer) serve(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	m.requests = append(m.requests, r.Clone(r.Context()))
	resp, ok := m.responses[r.URL.Path]
	m.mu.Unlock()

	if !ok {
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}

	for k, v := range resp.Headers {
		w.Header().Set(k, v)
	}
	status := resp.StatusCode
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	w.Write([]byte(resp.Body))
}
