package image

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"codeberg.org/snonux/imageserver/internal/keys"
)

// mockSearcher implements Searcher for testing
type mockSearcher struct {
	name    keys.Provider
	results []Descriptor
	err     error
	delay   time.Duration

	mu      sync.Mutex
	calls   int
	perPage []int
}

func (m *mockSearcher) Search(ctx context.Context, query string, page, perPage int) (*Page, error) {
	m.mu.Lock()
	m.calls++
	m.perPage = append(m.perPage, perPage)
	m.mu.Unlock()

	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if m.err != nil {
		return nil, m.err
	}
	return &Page{Results: m.results, Total: len(m.results), TotalPages: 1}, nil
}

func (m *mockSearcher) Name() keys.Provider {
	return m.name
}

func (m *mockSearcher) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func descriptors(p keys.Provider, ids ...string) []Descriptor {
	out := make([]Descriptor, 0, len(ids))
	for _, id := range ids {
		out = append(out, Descriptor{ID: string(p) + "-" + id, URL: "https://example.com/" + id, Provider: p})
	}
	return out
}

func TestSearchError(t *testing.T) {
	cause := errors.New("connection refused")
	err := &SearchError{Provider: keys.Pexels, Message: "request failed", Err: cause}

	if err.Error() != "pexels: request failed" {
		t.Errorf("Unexpected error text %q", err.Error())
	}
	if !errors.Is(err, cause) {
		t.Error("Expected SearchError to unwrap to its cause")
	}

	withStatus := &SearchError{Provider: keys.Unsplash, StatusCode: 401, Message: "Invalid access key"}
	expected := "unsplash: request failed with status 401: Invalid access key"
	if withStatus.Error() != expected {
		t.Errorf("Expected error '%s', got '%s'", expected, withStatus.Error())
	}
}

func TestRateLimitError(t *testing.T) {
	err := &RateLimitError{Provider: keys.Pixabay, RetryAfter: time.Minute}

	expected := "pixabay: rate limit exceeded"
	if err.Error() != expected {
		t.Errorf("Expected error '%s', got '%s'", expected, err.Error())
	}
	if !IsRequestFailure(err) {
		t.Error("Expected rate limit to count as a request failure")
	}
	if IsRequestFailure(unavailable(keys.Pixabay)) {
		t.Error("Expected missing key not to count as a request failure")
	}
}

func TestTotalPages(t *testing.T) {
	tests := []struct {
		total, perPage, want int
	}{
		{0, 10, 0},
		{10, 10, 1},
		{11, 10, 2},
		{12, 5, 3},
		{5, 0, 0},
	}

	for _, tt := range tests {
		if got := totalPages(tt.total, tt.perPage); got != tt.want {
			t.Errorf("totalPages(%d, %d) = %d, want %d", tt.total, tt.perPage, got, tt.want)
		}
	}
}

func TestRetryAfter(t *testing.T) {
	if got := retryAfter("120"); got != 2*time.Minute {
		t.Errorf("retryAfter(120) = %s", got)
	}
	if got := retryAfter(""); got != time.Minute {
		t.Errorf("retryAfter('') = %s", got)
	}
}
