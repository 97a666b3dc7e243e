package image

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"codeberg.org/snonux/imageserver/internal/keys"
)

func TestWithBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	inner := &mockSearcher{name: keys.Unsplash, err: &SearchError{Provider: keys.Unsplash, StatusCode: 503, Message: "down"}}
	s := WithBreaker(inner, BreakerSettings{ConsecutiveFailures: 2, OpenTimeout: time.Minute}, zap.NewNop())

	for i := 0; i < 2; i++ {
		if _, err := s.Search(context.Background(), "q", 1, 10); err == nil {
			t.Fatal("Expected failure")
		}
	}

	_, err := s.Search(context.Background(), "q", 1, 10)
	var searchErr *SearchError
	if !errors.As(err, &searchErr) || searchErr.Message != "circuit breaker open" {
		t.Errorf("Expected open breaker error, got %v", err)
	}
	if inner.callCount() != 2 {
		t.Errorf("Expected open breaker to skip the provider, got %d calls", inner.callCount())
	}
	if s.Name() != keys.Unsplash {
		t.Errorf("Expected name to pass through, got %s", s.Name())
	}
}

func TestWithBreaker_UnavailableDoesNotTrip(t *testing.T) {
	inner := &mockSearcher{name: keys.Pexels, err: unavailable(keys.Pexels)}
	s := WithBreaker(inner, BreakerSettings{ConsecutiveFailures: 1, OpenTimeout: time.Minute}, nil)

	for i := 0; i < 3; i++ {
		if _, err := s.Search(context.Background(), "q", 1, 10); !errors.Is(err, ErrProviderUnavailable) {
			t.Fatalf("Expected ErrProviderUnavailable, got %v", err)
		}
	}
	if inner.callCount() != 3 {
		t.Errorf("Expected every call to reach the provider, got %d", inner.callCount())
	}
}

func TestWithBreaker_PassesResults(t *testing.T) {
	inner := &mockSearcher{name: keys.Pixabay, results: descriptors(keys.Pixabay, "1")}
	s := WithBreaker(inner, DefaultBreakerSettings(), zap.NewNop())

	page, err := s.Search(context.Background(), "q", 1, 10)
	if err != nil || len(page.Results) != 1 {
		t.Errorf("Search() = %+v, %v", page, err)
	}
}
