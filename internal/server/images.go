package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"codeberg.org/snonux/imageserver/internal"
	"codeberg.org/snonux/imageserver/internal/storage"
)

// downloadRequest is the body of POST /download and of the from-url upload
type downloadRequest struct {
	ImageURL string           `json:"imageUrl"`
	Filename string           `json:"filename"`
	Metadata storage.Metadata `json:"metadata"`
}

type downloadResponse struct {
	Message    string           `json:"message"`
	FilePath   string           `json:"filePath"`
	PublicPath string           `json:"publicPath"`
	Size       int64            `json:"size"`
	Metadata   storage.Metadata `json:"metadata"`
}

type downloadedResponse struct {
	Count  int                   `json:"count"`
	Images []storage.StoredImage `json:"images"`
}

type altRequest struct {
	Alt *string `json:"alt"`
}

type deleteResponse struct {
	Deleted  bool   `json:"deleted"`
	Filename string `json:"filename"`
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	var req downloadRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.ImageURL == "" || req.Filename == "" {
		s.respondWithError(w, http.StatusBadRequest, "imageUrl and filename are required")
		return
	}

	dl, err := s.downloader.Download(r.Context(), req.ImageURL, req.Filename)
	if err != nil {
		s.respondWithFailure(w, r, err)
		return
	}

	meta := s.sidecar(req.Metadata, storage.Metadata{
		"originalName": req.Filename,
		"sourceUrl":    req.ImageURL,
		"size":         dl.Size,
	})
	s.writeSidecar(storage.Downloads, dl.Filename, meta)

	s.respondWithJSON(w, http.StatusOK, downloadResponse{
		Message:    "Image downloaded successfully",
		FilePath:   dl.FilePath,
		PublicPath: dl.PublicPath,
		Size:       dl.Size,
		Metadata:   meta,
	})
}

func (s *Server) handleDownloaded(w http.ResponseWriter, r *http.Request) {
	images, err := s.store.ListImages(storage.Downloads)
	if errors.Is(err, storage.ErrDirectoryMissing) {
		images, err = []storage.StoredImage{}, nil
	}
	if err != nil {
		s.respondWithFailure(w, r, err)
		return
	}

	storage.SortNewestFirst(images)
	s.respondWithJSON(w, http.StatusOK, downloadedResponse{
		Count:  len(images),
		Images: images,
	})
}

func (s *Server) handleAllImages(w http.ResponseWriter, r *http.Request) {
	inv, err := s.store.Inventory()
	if err != nil {
		s.respondWithFailure(w, r, err)
		return
	}
	s.respondWithJSON(w, http.StatusOK, inv)
}

func (s *Server) handleListSection(w http.ResponseWriter, r *http.Request) {
	s.listSection(w, r, "")
}

func (s *Server) handleSearchSection(w http.ResponseWriter, r *http.Request) {
	s.listSection(w, r, r.URL.Query().Get("q"))
}

func (s *Server) listSection(w http.ResponseWriter, r *http.Request, term string) {
	section, err := storage.ParseSection(chi.URLParam(r, "service"))
	if err != nil {
		s.respondWithFailure(w, r, err)
		return
	}

	images, err := s.store.SearchImages(section, term)
	if err != nil {
		s.respondWithFailure(w, r, err)
		return
	}
	if images == nil {
		images = []storage.StoredImage{}
	}
	s.respondWithJSON(w, http.StatusOK, images)
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	section, err := storage.ParseSection(chi.URLParam(r, "service"))
	if err != nil {
		s.respondWithFailure(w, r, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		s.respondWithError(w, http.StatusBadRequest, "Invalid multipart upload")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("image")
	if err != nil {
		s.respondWithError(w, http.StatusBadRequest, "No image file provided")
		return
	}
	defer file.Close()

	if !storage.IsImageFile(header.Filename) {
		s.respondWithError(w, http.StatusBadRequest, "Only image files are allowed")
		return
	}

	tmpPath, err := spool(file)
	if err != nil {
		s.respondWithFailure(w, r, err)
		return
	}
	defer os.Remove(tmpPath)

	name := r.FormValue("filename")
	if name == "" {
		name = header.Filename
	}
	filename := internal.SanitizeFilename(name)

	img, err := s.store.SaveUploadedFile(tmpPath, section, filename)
	if err != nil {
		s.respondWithFailure(w, r, err)
		return
	}

	extra := storage.Metadata{
		"originalName": header.Filename,
		"size":         img.Size,
		"section":      string(section),
	}
	if v := r.FormValue("alt"); v != "" {
		extra["alt"] = v
	}
	if v := r.FormValue("description"); v != "" {
		extra["description"] = v
	}
	if tags := splitTags(r.FormValue("tags")); len(tags) > 0 {
		extra["tags"] = tags
	}
	s.writeSidecar(section, filename, s.sidecar(nil, extra))

	s.respondWithStored(w, r, section, filename)
}

func (s *Server) handleSaveFromURL(w http.ResponseWriter, r *http.Request) {
	section, err := storage.ParseSection(chi.URLParam(r, "service"))
	if err != nil {
		s.respondWithFailure(w, r, err)
		return
	}

	var req downloadRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.ImageURL == "" || req.Filename == "" {
		s.respondWithError(w, http.StatusBadRequest, "imageUrl and filename are required")
		return
	}

	dl, err := s.downloader.DownloadTo(r.Context(), req.ImageURL, req.Filename, section)
	if err != nil {
		s.respondWithFailure(w, r, err)
		return
	}

	s.writeSidecar(section, dl.Filename, s.sidecar(req.Metadata, storage.Metadata{
		"originalName": req.Filename,
		"sourceUrl":    req.ImageURL,
		"size":         dl.Size,
		"section":      string(section),
	}))

	s.respondWithStored(w, r, section, dl.Filename)
}

func (s *Server) handleUpdateAlt(w http.ResponseWriter, r *http.Request) {
	section, err := storage.ParseSection(chi.URLParam(r, "service"))
	if err != nil {
		s.respondWithFailure(w, r, err)
		return
	}

	var req altRequest
	if err := decodeJSON(w, r, &req); err != nil || req.Alt == nil {
		s.respondWithError(w, http.StatusBadRequest, "alt is required")
		return
	}

	img, err := s.store.UpdateAlt(section, chi.URLParam(r, "filename"), *req.Alt)
	if err != nil {
		s.respondWithFailure(w, r, err)
		return
	}
	s.respondWithJSON(w, http.StatusOK, img)
}

func (s *Server) handleDeleteImage(w http.ResponseWriter, r *http.Request) {
	section, err := storage.ParseSection(chi.URLParam(r, "service"))
	if err != nil {
		s.respondWithFailure(w, r, err)
		return
	}

	filename := chi.URLParam(r, "filename")
	deleted, err := s.store.DeleteImage(section, filename)
	if err != nil {
		s.respondWithFailure(w, r, err)
		return
	}
	s.respondWithJSON(w, http.StatusOK, deleteResponse{Deleted: deleted, Filename: filename})
}

// respondWithStored answers a successful upload with the stored image
func (s *Server) respondWithStored(w http.ResponseWriter, r *http.Request, section storage.Section, filename string) {
	img, err := s.store.Get(section, filename)
	if err != nil {
		s.respondWithFailure(w, r, err)
		return
	}
	s.respondWithJSON(w, http.StatusCreated, img)
}

// sidecar merges caller supplied metadata with the fields the server
// records itself. Server fields win.
func (s *Server) sidecar(user, extra storage.Metadata) storage.Metadata {
	meta := storage.Metadata{}
	for k, v := range user {
		meta[k] = v
	}
	for k, v := range extra {
		meta[k] = v
	}
	meta["uploadedAt"] = s.now().UTC().Format(time.RFC3339Nano)
	return meta
}

// writeSidecar stores metadata next to a freshly written image. The image
// is already persisted, so failures are logged only.
func (s *Server) writeSidecar(section storage.Section, filename string, meta storage.Metadata) {
	if err := s.store.WriteMetadata(section, filename, meta); err != nil {
		s.logger.Error("failed to write image metadata",
			zap.String("section", string(section)),
			zap.String("filename", filename),
			zap.Error(err))
	}
}

// spool copies an upload into a temporary file
func spool(src io.Reader) (string, error) {
	tmp, err := os.CreateTemp("", "imageserver-upload-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temporary file: %w", err)
	}
	if _, err := io.Copy(tmp, src); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to store upload: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to store upload: %w", err)
	}
	return tmp.Name(), nil
}

func splitTags(value string) []string {
	var tags []string
	for _, t := range strings.Split(value, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}
