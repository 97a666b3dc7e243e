package image

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"codeberg.org/snonux/imageserver/internal/keys"
)

// Descriptor represents a single image search result in the provider
// independent schema
type Descriptor struct {
	ID        string        `json:"id"` // "<provider>-<native id>"
	URL       string        `json:"url"`
	FullURL   string        `json:"fullUrl"`
	Thumbnail string        `json:"thumbnail"`
	Alt       string        `json:"alt"`
	Width     int           `json:"width,omitempty"` // 0 when the provider reports none
	Height    int           `json:"height,omitempty"`
	Author    string        `json:"author"`
	AuthorURL string        `json:"authorUrl"`
	SourceURL string        `json:"sourceUrl"`
	Provider  keys.Provider `json:"provider"`
}

// Page is one page of provider results
type Page struct {
	Results    []Descriptor `json:"results"`
	Total      int          `json:"total"`
	TotalPages int          `json:"totalPages"`
}

// Searcher defines the interface for image search providers
type Searcher interface {
	// Search performs an image search for one page of results
	Search(ctx context.Context, query string, page, perPage int) (*Page, error)

	// Name returns the provider this searcher talks to
	Name() keys.Provider
}

var (
	// ErrProviderUnavailable means the provider has no usable API key
	ErrProviderUnavailable = errors.New("provider unavailable")

	// ErrNoProvidersAvailable means no provider could be asked at all
	ErrNoProvidersAvailable = errors.New("no image providers available")

	// ErrInvalidQueries means a bulk search was called without a query list
	ErrInvalidQueries = errors.New("queries must be a list of strings")
)

// SearchError represents a failed request to an image search provider
type SearchError struct {
	Provider   keys.Provider
	StatusCode int // 0 for transport errors
	Message    string
	Err        error
}

func (e *SearchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: request failed with status %d: %s", e.Provider, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

func (e *SearchError) Unwrap() error {
	return e.Err
}

// RateLimitError indicates that the API rate limit has been exceeded
type RateLimitError struct {
	Provider   keys.Provider
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return string(e.Provider) + ": rate limit exceeded"
}

// IsRequestFailure reports whether err is a remote or transport failure of
// a provider, as opposed to a missing key
func IsRequestFailure(err error) bool {
	var searchErr *SearchError
	var rateErr *RateLimitError
	return errors.As(err, &searchErr) || errors.As(err, &rateErr)
}

// unavailable builds the error returned before any network call
func unavailable(p keys.Provider) error {
	return fmt.Errorf("%s: %w", p, ErrProviderUnavailable)
}

// totalPages computes ceil(total / perPage)
func totalPages(total, perPage int) int {
	if perPage <= 0 || total <= 0 {
		return 0
	}
	return (total + perPage - 1) / perPage
}

// clamp limits v to [lo, hi]
func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// getJSON performs req and decodes a 200 response into out, mapping
// failures to SearchError or RateLimitError
func getJSON(client *http.Client, req *http.Request, provider keys.Provider, out any) error {
	resp, err := client.Do(req)
	if err != nil {
		return &SearchError{Provider: provider, Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return &RateLimitError{
			Provider:   provider,
			RetryAfter: retryAfter(resp.Header.Get("Retry-After")),
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &SearchError{
			Provider:   provider,
			StatusCode: resp.StatusCode,
			Message:    string(body),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &SearchError{Provider: provider, Message: "failed to decode response", Err: err}
	}
	return nil
}

// retryAfter parses a Retry-After header in seconds, defaulting to a minute
func retryAfter(header string) time.Duration {
	if secs, err := strconv.Atoi(header); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return time.Minute
}

// fallbackAlt returns the first non-empty candidate or the query
func fallbackAlt(query string, candidates ...string) string {
	for _, c := range candidates {
		if c != "" {
			return c
		}
	}
	return query
}
