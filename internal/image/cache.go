package image

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"codeberg.org/snonux/imageserver/internal/keys"
)

// Cache stores provider result pages
type Cache interface {
	Get(ctx context.Context, key string) (*Page, bool, error)
	Set(ctx context.Context, key string, page *Page, ttl time.Duration) error
}

// cachingSearcher answers repeated searches from a Cache
type cachingSearcher struct {
	next   Searcher
	cache  Cache
	ttl    time.Duration
	logger *zap.Logger
}

// WithCache wraps a searcher so successful pages are cached for ttl. Cache
// errors are logged and treated as misses.
func WithCache(next Searcher, cache Cache, ttl time.Duration, logger *zap.Logger) Searcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &cachingSearcher{next: next, cache: cache, ttl: ttl, logger: logger}
}

func (c *cachingSearcher) Name() keys.Provider {
	return c.next.Name()
}

func (c *cachingSearcher) Search(ctx context.Context, query string, page, perPage int) (*Page, error) {
	key := CacheKey(c.next.Name(), query, page, perPage)

	cached, ok, err := c.cache.Get(ctx, key)
	if err != nil {
		c.logger.Warn("search cache read failed", zap.String("key", key), zap.Error(err))
	} else if ok {
		return cached, nil
	}

	result, err := c.next.Search(ctx, query, page, perPage)
	if err != nil {
		return nil, err
	}

	if err := c.cache.Set(ctx, key, result, c.ttl); err != nil {
		c.logger.Warn("search cache write failed", zap.String("key", key), zap.Error(err))
	}
	return result, nil
}

// CacheKey builds the cache key of one provider page. The query is kept
// verbatim because adapters echo it as the alt text fallback.
func CacheKey(provider keys.Provider, query string, page, perPage int) string {
	return fmt.Sprintf("search:%s:%d:%d:%s", provider, page, perPage, query)
}
