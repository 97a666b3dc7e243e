package image

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"codeberg.org/snonux/imageserver/internal/keys"
)

// BulkQueryResult is the outcome of one query of a bulk search
type BulkQueryResult struct {
	Query   string       `json:"query"`
	Count   int          `json:"count"`
	Results []Descriptor `json:"results"`
	Error   string       `json:"error,omitempty"`
}

// BulkResult summarizes a bulk search
type BulkResult struct {
	Queries     int               `json:"queries"`
	TotalImages int               `json:"totalImages"`
	Results     []BulkQueryResult `json:"results"`
}

// BulkSearch runs the queries one after another with a fixed pause in
// between to stay below provider rate limits. An empty provider searches
// all providers. Failing queries are recorded, they never abort the batch.
func (a *Aggregator) BulkSearch(ctx context.Context, queries []string, provider keys.Provider, perPage int) (*BulkResult, error) {
	if queries == nil {
		return nil, ErrInvalidQueries
	}

	result := &BulkResult{
		Queries: len(queries),
		Results: make([]BulkQueryResult, 0, len(queries)),
	}

	for i, query := range queries {
		if i > 0 {
			if err := sleepContext(ctx, a.bulkDelay); err != nil {
				result.Results = append(result.Results, failed(query, err))
				continue
			}
		}

		found, err := a.searchOne(ctx, query, provider, perPage)
		if err != nil {
			a.logger.Warn("bulk query failed", zap.String("query", query), zap.Error(err))
			result.Results = append(result.Results, failed(query, err))
			continue
		}

		result.Results = append(result.Results, BulkQueryResult{
			Query:   query,
			Count:   len(found),
			Results: found,
		})
		result.TotalImages += len(found)
	}

	return result, nil
}

func (a *Aggregator) searchOne(ctx context.Context, query string, provider keys.Provider, perPage int) ([]Descriptor, error) {
	if query == "" {
		return nil, fmt.Errorf("empty query")
	}
	if provider == "" {
		return a.SearchAll(ctx, query, 1, perPage)
	}
	page, err := a.Search(ctx, provider, query, 1, perPage)
	if err != nil {
		return nil, err
	}
	return page.Results, nil
}

func failed(query string, err error) BulkQueryResult {
	return BulkQueryResult{
		Query:   query,
		Error:   err.Error(),
		Results: []Descriptor{},
	}
}

// sleepContext waits for d or until ctx is done
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
