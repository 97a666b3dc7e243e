package server

import (
	"encoding/json"
	"errors"
	"io/fs"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"codeberg.org/snonux/imageserver/internal/image"
	"codeberg.org/snonux/imageserver/internal/storage"
)

// errorResponse is the body of every failed request
type errorResponse struct {
	Error     string `json:"error"`
	Timestamp string `json:"timestamp"`
}

func (s *Server) respondWithJSON(w http.ResponseWriter, code int, payload any) {
	response, err := json.Marshal(payload)
	if err != nil {
		s.logger.Error("failed to encode response", zap.Error(err))
		code = http.StatusInternalServerError
		response = []byte(`{"error":"Internal server error"}`)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

// respondWithError writes a validation or lookup failure with a fixed
// message
func (s *Server) respondWithError(w http.ResponseWriter, code int, message string) {
	s.respondWithJSON(w, code, errorResponse{
		Error:     message,
		Timestamp: s.timestamp(),
	})
}

// respondWithFailure maps a domain error to a status code and writes it.
// Messages of unexpected errors are logged, not returned.
func (s *Server) respondWithFailure(w http.ResponseWriter, r *http.Request, err error) {
	code, message := statusFor(err)

	var rateErr *image.RateLimitError
	if errors.As(err, &rateErr) {
		w.Header().Set("Retry-After", strconv.Itoa(int(rateErr.RetryAfter.Seconds())))
	}

	if code >= http.StatusInternalServerError {
		s.logger.Error("request failed",
			zap.String("path", r.URL.Path),
			zap.Int("status", code),
			zap.Error(err))
	} else {
		s.logger.Debug("request rejected",
			zap.String("path", r.URL.Path),
			zap.Int("status", code),
			zap.Error(err))
	}

	s.respondWithError(w, code, message)
}

// statusFor translates the error taxonomy into an HTTP status and a client
// safe message
func statusFor(err error) (int, string) {
	var rateErr *image.RateLimitError

	switch {
	case errors.Is(err, storage.ErrUnknownSection),
		errors.Is(err, storage.ErrInvalidFilename),
		errors.Is(err, image.ErrInvalidQueries):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, storage.ErrDirectoryMissing):
		return http.StatusNotFound, "Directory not found"
	case errors.Is(err, storage.ErrImageMissing), errors.Is(err, fs.ErrNotExist):
		return http.StatusNotFound, "Image not found"
	case errors.Is(err, image.ErrNoProvidersAvailable),
		errors.Is(err, image.ErrProviderUnavailable):
		return http.StatusServiceUnavailable, err.Error()
	case errors.As(err, &rateErr):
		return http.StatusTooManyRequests, err.Error()
	case image.IsRequestFailure(err), image.IsDownloadFailure(err):
		return http.StatusBadGateway, err.Error()
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}

// decodeJSON reads a request body of limited size into v
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBytes)
	return json.NewDecoder(r.Body).Decode(v)
}

func (s *Server) timestamp() string {
	return s.now().UTC().Format(time.RFC3339)
}
