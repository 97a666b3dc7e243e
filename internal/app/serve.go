package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"codeberg.org/snonux/imageserver/internal/image"
	"codeberg.org/snonux/imageserver/internal/server"
)

const shutdownTimeout = 10 * time.Second

// Serve runs the HTTP server until ctx is cancelled or SIGINT/SIGTERM
// arrives. SIGHUP re-resolves the provider keys and swaps the search stack.
func (a *App) Serve(ctx context.Context) error {
	a.store.EnsureDirectories()

	srv := a.NewServer(ctx)
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.Port),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	go a.reloadOnSignal(ctx, hup, srv)

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("server starting", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	return nil
}

// NewServer resolves the keys and builds the HTTP server
func (a *App) NewServer(ctx context.Context) *server.Server {
	downloader := image.NewDownloader(a.store, a.metrics, a.logger.Named("download"))
	agg := a.NewAggregator(a.ResolveKeys(ctx))
	return server.NewServer(a.store, downloader, agg, a.metrics, a.logger.Named("http"))
}

func (a *App) reloadOnSignal(ctx context.Context, sig <-chan os.Signal, srv *server.Server) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-sig:
			set := a.resolver.Reload(ctx, a.fallback())
			srv.SetAggregator(a.NewAggregator(set))
		}
	}
}
