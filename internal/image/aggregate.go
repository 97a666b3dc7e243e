package image

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"codeberg.org/snonux/imageserver/internal/keys"
	"codeberg.org/snonux/imageserver/internal/metrics"
)

const defaultProviderTimeout = 15 * time.Second

// DefaultBulkDelay is the pause between two bulk search queries
const DefaultBulkDelay = 500 * time.Millisecond

// Aggregator fans searches out to every available provider
type Aggregator struct {
	keys      keys.Set
	searchers []Searcher // dispatch order
	timeout   time.Duration
	bulkDelay time.Duration
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

// AggregatorOption configures an Aggregator
type AggregatorOption func(*Aggregator)

// WithProviderTimeout bounds every single provider call
func WithProviderTimeout(d time.Duration) AggregatorOption {
	return func(a *Aggregator) {
		if d > 0 {
			a.timeout = d
		}
	}
}

// WithBulkDelay sets the pause between bulk search queries
func WithBulkDelay(d time.Duration) AggregatorOption {
	return func(a *Aggregator) {
		if d >= 0 {
			a.bulkDelay = d
		}
	}
}

// WithMetrics records provider calls
func WithMetrics(m *metrics.Metrics) AggregatorOption {
	return func(a *Aggregator) {
		a.metrics = m
	}
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) AggregatorOption {
	return func(a *Aggregator) {
		if l != nil {
			a.logger = l
		}
	}
}

// NewAggregator creates an aggregator over searchers, which are dispatched
// in the given order. Availability is decided by set.
func NewAggregator(set keys.Set, searchers []Searcher, opts ...AggregatorOption) *Aggregator {
	a := &Aggregator{
		keys:      set,
		searchers: searchers,
		timeout:   defaultProviderTimeout,
		bulkDelay: DefaultBulkDelay,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Providers returns the providers that can currently be searched
func (a *Aggregator) Providers() []keys.Provider {
	active := a.available()
	names := make([]keys.Provider, 0, len(active))
	for _, s := range active {
		names = append(names, s.Name())
	}
	return names
}

// Result is the settled outcome of one provider call
type Result struct {
	Provider keys.Provider
	Page     *Page
	Err      error
}

// SearchAll searches every available provider concurrently and concatenates
// the successful result lists in dispatch order. Failing providers are
// logged and contribute nothing; only the absence of any available provider
// is an error.
func (a *Aggregator) SearchAll(ctx context.Context, query string, page, perPage int) ([]Descriptor, error) {
	active := a.available()
	if len(active) == 0 {
		return nil, ErrNoProvidersAvailable
	}

	perProvider := (max(perPage, 1) + len(active) - 1) / len(active)
	settled := a.settleAll(ctx, active, query, page, perProvider)

	combined := make([]Descriptor, 0, perProvider*len(active))
	for _, r := range settled {
		if r.Err != nil {
			a.logger.Warn("provider search failed",
				zap.String("provider", string(r.Provider)),
				zap.String("query", query),
				zap.Error(r.Err))
			continue
		}
		combined = append(combined, r.Page.Results...)
	}
	return combined, nil
}

// Search queries a single provider. Unlike SearchAll every failure is
// returned to the caller.
func (a *Aggregator) Search(ctx context.Context, provider keys.Provider, query string, page, perPage int) (*Page, error) {
	if !a.keys.IsAvailable(provider) {
		return nil, unavailable(provider)
	}
	s := a.searcher(provider)
	if s == nil {
		return nil, unavailable(provider)
	}
	return a.call(ctx, s, query, page, perPage)
}

// settleAll runs one call per searcher and waits for every call to finish.
// The returned slice is indexed like searchers, independent of completion
// order.
func (a *Aggregator) settleAll(ctx context.Context, searchers []Searcher, query string, page, perPage int) []Result {
	settled := make([]Result, len(searchers))

	var g errgroup.Group
	for i, s := range searchers {
		g.Go(func() error {
			p, err := a.call(ctx, s, query, page, perPage)
			settled[i] = Result{Provider: s.Name(), Page: p, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	return settled
}

// call runs one provider search under the per-provider timeout
func (a *Aggregator) call(ctx context.Context, s Searcher, query string, page, perPage int) (*Page, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	start := time.Now()
	p, err := s.Search(ctx, query, page, perPage)
	elapsed := time.Since(start)

	switch {
	case errors.Is(err, ErrProviderUnavailable):
		a.metrics.ObserveProvider(string(s.Name()), "unavailable", elapsed)
	case err != nil:
		a.metrics.ObserveProvider(string(s.Name()), "error", elapsed)
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() != nil {
			err = &SearchError{
				Provider: s.Name(),
				Message:  fmt.Sprintf("timed out after %s", a.timeout),
				Err:      err,
			}
		}
	default:
		a.metrics.ObserveProvider(string(s.Name()), "ok", elapsed)
	}

	if err != nil {
		return nil, err
	}
	return p, nil
}

func (a *Aggregator) available() []Searcher {
	var active []Searcher
	for _, s := range a.searchers {
		if a.keys.IsAvailable(s.Name()) {
			active = append(active, s)
		}
	}
	return active
}

func (a *Aggregator) searcher(p keys.Provider) Searcher {
	for _, s := range a.searchers {
		if s.Name() == p {
			return s
		}
	}
	return nil
}
