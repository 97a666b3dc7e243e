// Package app wires configuration, providers, storage and the HTTP server
// together for the imageserver commands.
package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"codeberg.org/snonux/imageserver/internal/cache"
	"codeberg.org/snonux/imageserver/internal/cli"
	"codeberg.org/snonux/imageserver/internal/image"
	"codeberg.org/snonux/imageserver/internal/keys"
	"codeberg.org/snonux/imageserver/internal/metrics"
	"codeberg.org/snonux/imageserver/internal/storage"
)

// App holds the long-lived components shared by all commands
type App struct {
	cfg      cli.Config
	logger   *zap.Logger
	metrics  *metrics.Metrics
	store    *storage.LocalStore
	resolver *keys.Resolver
	fallback func() keys.Set
	cache    image.Cache
	closers  []func() error

	// searcherOptions is applied to every provider client
	searcherOptions []image.ClientOption
}

// New creates the application. A failing key vault or Redis connection
// degrades the service but never prevents it from starting.
func New(ctx context.Context, cfg cli.Config, logger *zap.Logger) *App {
	if cfg.BulkDelay <= 0 {
		logger.Warn("bulk delay must be positive, using default",
			zap.Duration("configured", cfg.BulkDelay),
			zap.Duration("default", image.DefaultBulkDelay))
		cfg.BulkDelay = image.DefaultBulkDelay
	}

	m := metrics.New()
	a := &App{
		cfg:      cfg,
		logger:   logger,
		metrics:  m,
		store:    storage.NewLocalStore(cfg.Layout, m, logger.Named("storage")),
		fallback: cli.GetAPIKeys,
	}
	a.resolver = keys.NewResolver(a.secretStore(), logger.Named("keys"))
	a.cache = a.searchCache(ctx)
	return a
}

// Close releases external connections
func (a *App) Close() {
	for _, c := range a.closers {
		if err := c(); err != nil {
			a.logger.Warn("failed to close resource", zap.Error(err))
		}
	}
}

// ResolveKeys resolves the provider keys from the vault and environment
func (a *App) ResolveKeys(ctx context.Context) keys.Set {
	return a.resolver.Resolve(ctx, a.fallback())
}

// NewAggregator builds the complete search stack for a key set. Each
// provider client is wrapped in a circuit breaker and, when enabled, a
// result cache.
func (a *App) NewAggregator(set keys.Set) *image.Aggregator {
	clients := []image.Searcher{
		image.NewUnsplashClient(set, a.searcherOptions...),
		image.NewPexelsClient(set, a.searcherOptions...),
		image.NewPixabayClient(set, a.searcherOptions...),
	}

	searchers := make([]image.Searcher, 0, len(clients))
	for _, c := range clients {
		s := image.WithBreaker(c, image.DefaultBreakerSettings(), a.logger.Named("breaker"))
		if a.cache != nil {
			s = image.WithCache(s, a.cache, a.cfg.CacheTTL, a.logger.Named("cache"))
		}
		searchers = append(searchers, s)
	}

	return image.NewAggregator(set, searchers,
		image.WithProviderTimeout(a.cfg.ProviderTimeout),
		image.WithBulkDelay(a.cfg.BulkDelay),
		image.WithMetrics(a.metrics),
		image.WithLogger(a.logger.Named("search")),
	)
}

// Search runs one search and writes the JSON result to w
func (a *App) Search(ctx context.Context, w io.Writer, query, provider string, page, perPage int) error {
	agg := a.NewAggregator(a.ResolveKeys(ctx))

	if provider == "" || provider == "all" {
		results, err := agg.SearchAll(ctx, query, page, perPage)
		if err != nil {
			return err
		}
		return writeJSON(w, results)
	}

	p, err := keys.ParseProvider(provider)
	if err != nil {
		return err
	}
	result, err := agg.Search(ctx, p, query, page, perPage)
	if err != nil {
		return err
	}
	return writeJSON(w, result)
}

// Bulk runs a bulk search and writes the JSON result to w
func (a *App) Bulk(ctx context.Context, w io.Writer, queries []string, provider string, perPage int) error {
	var p keys.Provider
	if provider != "" && provider != "all" {
		var err error
		if p, err = keys.ParseProvider(provider); err != nil {
			return err
		}
	}

	agg := a.NewAggregator(a.ResolveKeys(ctx))
	result, err := agg.BulkSearch(ctx, queries, p, perPage)
	if err != nil {
		return err
	}
	return writeJSON(w, result)
}

// PrintKeys writes the key availability per provider without revealing
// the keys
func (a *App) PrintKeys(ctx context.Context, w io.Writer) error {
	set := a.ResolveKeys(ctx)
	for _, p := range keys.Providers {
		state := "unavailable"
		if set.IsAvailable(p) {
			state = "available"
		}
		if _, err := fmt.Fprintf(w, "%-9s %s\n", p, state); err != nil {
			return err
		}
	}
	return nil
}

func (a *App) secretStore() keys.SecretStore {
	if !a.cfg.UseKeyVault {
		return nil
	}
	vault, err := keys.NewAzureVault(a.cfg.KeyVaultURL)
	if err != nil {
		a.logger.Warn("key vault disabled, using environment keys only", zap.Error(err))
		return nil
	}
	return vault
}

// searchCache picks Redis when configured and reachable, in-memory
// otherwise. A zero TTL disables caching.
func (a *App) searchCache(ctx context.Context) image.Cache {
	if a.cfg.CacheTTL <= 0 {
		return nil
	}
	if a.cfg.RedisAddr == "" {
		return cache.NewMemory()
	}

	dialCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	r, err := cache.Dial(dialCtx, a.cfg.RedisAddr, a.cfg.RedisPassword, a.cfg.RedisDB)
	if err != nil {
		a.logger.Warn("redis unavailable, caching search results in memory", zap.Error(err))
		return cache.NewMemory()
	}
	a.closers = append(a.closers, r.Close)
	a.logger.Info("caching search results in redis", zap.String("addr", a.cfg.RedisAddr))
	return r
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
