package server

import (
	"net/http"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func (s *Server) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.instrument)
	r.Use(middleware.Recoverer)

	r.Handle("/metrics", s.metrics.Handler())
	r.Get("/health", s.handleHealth)

	r.Group(func(r chi.Router) {
		// Downloads may take up to the fetch timeout
		r.Use(middleware.Timeout(60 * time.Second))

		r.Get("/search", s.handleSearch)
		r.Post("/bulk-search", s.handleBulkSearch)
		r.Post("/download", s.handleDownload)
		r.Get("/downloaded", s.handleDownloaded)

		r.Route("/api/images", func(r chi.Router) {
			r.Get("/all", s.handleAllImages)

			r.Route("/service/{service}", func(r chi.Router) {
				r.Get("/", s.handleListSection)
				r.Post("/", s.handleUpload)
				r.Get("/search", s.handleSearchSection)
				r.Post("/from-url", s.handleSaveFromURL)
				r.Put("/{filename}/alt", s.handleUpdateAlt)
				r.Delete("/{filename}", s.handleDeleteImage)
			})
		})
	})

	// Blog images live below the public web root, everything else below
	// the base directory
	layout := s.store.Layout()
	r.Handle("/images/blog/*", http.StripPrefix("/images/",
		http.FileServer(http.Dir(filepath.Join(layout.PublicDir, "images")))))
	r.Handle("/images/*", http.StripPrefix("/images/",
		http.FileServer(http.Dir(filepath.Join(layout.BaseDir, "images")))))

	return r
}
