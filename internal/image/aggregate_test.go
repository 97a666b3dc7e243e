package image

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"go.uber.org/zap"

	"codeberg.org/snonux/imageserver/internal/keys"
	"codeberg.org/snonux/imageserver/internal/metrics"
)

func newTestAggregator(set keys.Set, searchers ...Searcher) *Aggregator {
	return NewAggregator(set, searchers, WithBulkDelay(0), WithLogger(zap.NewNop()))
}

func TestAggregator_SingleProviderResultsUnmodified(t *testing.T) {
	pex := &mockSearcher{name: keys.Pexels, results: descriptors(keys.Pexels, "1", "2", "3")}
	uns := &mockSearcher{name: keys.Unsplash, results: descriptors(keys.Unsplash, "a")}
	pix := &mockSearcher{name: keys.Pixabay, results: descriptors(keys.Pixabay, "z")}

	agg := newTestAggregator(keys.Set{Pexels: "real"}, uns, pex, pix)

	got, err := agg.SearchAll(context.Background(), "desk", 1, 10)
	if err != nil {
		t.Fatalf("SearchAll() failed: %v", err)
	}
	if !reflect.DeepEqual(got, pex.results) {
		t.Errorf("Expected pexels results unchanged, got %+v", got)
	}
	if uns.callCount() != 0 || pix.callCount() != 0 {
		t.Error("Unavailable providers must not be called")
	}
	if pex.perPage[0] != 10 {
		t.Errorf("Expected full page size for a single provider, got %d", pex.perPage[0])
	}
}

func TestAggregator_NoProvidersAvailable(t *testing.T) {
	uns := &mockSearcher{name: keys.Unsplash}
	pex := &mockSearcher{name: keys.Pexels}

	agg := newTestAggregator(keys.Set{Unsplash: "placeholder", Pexels: "x"}, uns, pex)

	_, err := agg.SearchAll(context.Background(), "q", 1, 10)
	if !errors.Is(err, ErrNoProvidersAvailable) {
		t.Errorf("Expected ErrNoProvidersAvailable, got %v", err)
	}
	if uns.callCount()+pex.callCount() != 0 {
		t.Error("Expected no provider calls")
	}
}

func TestAggregator_PartialFailure(t *testing.T) {
	uns := &mockSearcher{name: keys.Unsplash, err: &SearchError{Provider: keys.Unsplash, StatusCode: 500, Message: "boom"}}
	pex := &mockSearcher{name: keys.Pexels, results: descriptors(keys.Pexels, "1", "2")}
	pix := &mockSearcher{name: keys.Pixabay, results: descriptors(keys.Pixabay, "3")}

	m := metrics.New()
	agg := NewAggregator(allKeys, []Searcher{uns, pex, pix}, WithMetrics(m))

	got, err := agg.SearchAll(context.Background(), "q", 1, 9)
	if err != nil {
		t.Fatalf("Expected partial failure to be tolerated, got %v", err)
	}

	var ids []string
	for _, d := range got {
		ids = append(ids, d.ID)
	}
	want := []string{"pexels-1", "pexels-2", "pixabay-3"}
	if !reflect.DeepEqual(ids, want) {
		t.Errorf("Expected %v, got %v", want, ids)
	}

	for _, s := range []*mockSearcher{uns, pex, pix} {
		if s.perPage[0] != 3 {
			t.Errorf("%s: expected per-provider size 3, got %d", s.name, s.perPage[0])
		}
	}
}

func TestAggregator_AllFailingIsEmptyNotError(t *testing.T) {
	uns := &mockSearcher{name: keys.Unsplash, err: errors.New("down")}
	pex := &mockSearcher{name: keys.Pexels, err: errors.New("down")}

	agg := newTestAggregator(allKeys, uns, pex)

	got, err := agg.SearchAll(context.Background(), "q", 1, 10)
	if err != nil {
		t.Fatalf("SearchAll() failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Expected no results, got %d", len(got))
	}
}

func TestAggregator_DispatchOrderIndependentOfCompletion(t *testing.T) {
	uns := &mockSearcher{name: keys.Unsplash, results: descriptors(keys.Unsplash, "slow"), delay: 50 * time.Millisecond}
	pex := &mockSearcher{name: keys.Pexels, results: descriptors(keys.Pexels, "fast")}

	agg := newTestAggregator(allKeys, uns, pex)

	got, err := agg.SearchAll(context.Background(), "q", 1, 2)
	if err != nil {
		t.Fatalf("SearchAll() failed: %v", err)
	}
	if len(got) != 2 || got[0].Provider != keys.Unsplash || got[1].Provider != keys.Pexels {
		t.Errorf("Expected unsplash before pexels, got %+v", got)
	}
}

func TestAggregator_ProviderTimeout(t *testing.T) {
	uns := &mockSearcher{name: keys.Unsplash, results: descriptors(keys.Unsplash, "late"), delay: time.Second}
	pex := &mockSearcher{name: keys.Pexels, results: descriptors(keys.Pexels, "1")}

	agg := NewAggregator(allKeys, []Searcher{uns, pex}, WithProviderTimeout(20*time.Millisecond))

	got, err := agg.SearchAll(context.Background(), "q", 1, 2)
	if err != nil {
		t.Fatalf("SearchAll() failed: %v", err)
	}
	if len(got) != 1 || got[0].Provider != keys.Pexels {
		t.Errorf("Expected only pexels results, got %+v", got)
	}

	_, err = agg.Search(context.Background(), keys.Unsplash, "q", 1, 2)
	var searchErr *SearchError
	if !errors.As(err, &searchErr) || !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected timeout SearchError, got %v", err)
	}
}

func TestAggregator_DirectSearch(t *testing.T) {
	failure := &SearchError{Provider: keys.Pixabay, StatusCode: 400, Message: "bad"}
	pix := &mockSearcher{name: keys.Pixabay, err: failure}
	pex := &mockSearcher{name: keys.Pexels, results: descriptors(keys.Pexels, "1")}

	agg := newTestAggregator(keys.Set{Pexels: "real", Pixabay: "real"}, pex, pix)

	page, err := agg.Search(context.Background(), keys.Pexels, "q", 1, 5)
	if err != nil || len(page.Results) != 1 {
		t.Fatalf("Search() = %+v, %v", page, err)
	}

	if _, err := agg.Search(context.Background(), keys.Pixabay, "q", 1, 5); !errors.Is(err, failure) {
		t.Errorf("Expected direct search failure to propagate, got %v", err)
	}

	if _, err := agg.Search(context.Background(), keys.Unsplash, "q", 1, 5); !errors.Is(err, ErrProviderUnavailable) {
		t.Errorf("Expected ErrProviderUnavailable, got %v", err)
	}
}

func TestAggregator_Providers(t *testing.T) {
	agg := newTestAggregator(keys.Set{Unsplash: "k", Pixabay: "k"},
		&mockSearcher{name: keys.Unsplash}, &mockSearcher{name: keys.Pexels}, &mockSearcher{name: keys.Pixabay})

	want := []keys.Provider{keys.Unsplash, keys.Pixabay}
	if got := agg.Providers(); !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
}
