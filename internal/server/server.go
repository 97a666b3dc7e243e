package server

import (
	"net/http"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"codeberg.org/snonux/imageserver/internal/image"
	"codeberg.org/snonux/imageserver/internal/metrics"
	"codeberg.org/snonux/imageserver/internal/storage"
)

const (
	defaultPerPage  = 20
	maxPerPage      = 200
	defaultBulkSize = 10
	maxUploadBytes  = 50 << 20
	maxJSONBytes    = 1 << 20
)

// ServiceName is reported by the health endpoint
const ServiceName = "image-server"

// Server holds the dependencies of the HTTP handlers
type Server struct {
	store      *storage.LocalStore
	downloader *image.Downloader
	search     atomic.Pointer[image.Aggregator]
	metrics    *metrics.Metrics
	logger     *zap.Logger
	router     http.Handler
	now        func() time.Time
}

// NewServer creates a server around an existing search stack
func NewServer(store *storage.LocalStore, downloader *image.Downloader, agg *image.Aggregator, m *metrics.Metrics, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		store:      store,
		downloader: downloader,
		metrics:    m,
		logger:     logger,
		now:        time.Now,
	}
	s.search.Store(agg)
	s.router = s.setupRouter()
	return s
}

// Handler returns the root HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// SetAggregator replaces the search stack. Requests already running keep
// the stack they started with.
func (s *Server) SetAggregator(agg *image.Aggregator) {
	s.search.Store(agg)
	s.logger.Info("search providers reloaded", zap.Any("providers", agg.Providers()))
}

func (s *Server) aggregator() *image.Aggregator {
	return s.search.Load()
}
