package image

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"codeberg.org/snonux/imageserver/internal/keys"
)

// BreakerSettings configures the per-provider circuit breaker
type BreakerSettings struct {
	ConsecutiveFailures uint32        // failures that open the breaker
	OpenTimeout         time.Duration // time spent open before probing again
}

// DefaultBreakerSettings returns the breaker policy used by the server
func DefaultBreakerSettings() BreakerSettings {
	return BreakerSettings{
		ConsecutiveFailures: 5,
		OpenTimeout:         30 * time.Second,
	}
}

// breakerSearcher stops calling a provider that keeps failing
type breakerSearcher struct {
	next Searcher
	cb   *gobreaker.CircuitBreaker
}

// WithBreaker wraps a searcher in a circuit breaker. A missing key or a
// cancelled caller does not count as a provider failure.
func WithBreaker(next Searcher, settings BreakerSettings, logger *zap.Logger) Searcher {
	if logger == nil {
		logger = zap.NewNop()
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        string(next.Name()),
		MaxRequests: 1,
		Timeout:     settings.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= settings.ConsecutiveFailures
		},
		IsSuccessful: func(err error) bool {
			return err == nil ||
				errors.Is(err, ErrProviderUnavailable) ||
				errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("provider circuit breaker changed state",
				zap.String("provider", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})

	return &breakerSearcher{next: next, cb: cb}
}

func (b *breakerSearcher) Name() keys.Provider {
	return b.next.Name()
}

func (b *breakerSearcher) Search(ctx context.Context, query string, page, perPage int) (*Page, error) {
	result, err := b.cb.Execute(func() (interface{}, error) {
		return b.next.Search(ctx, query, page, perPage)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, &SearchError{
			Provider: b.next.Name(),
			Message:  "circuit breaker open",
			Err:      err,
		}
	}
	if err != nil {
		return nil, err
	}
	return result.(*Page), nil
}
