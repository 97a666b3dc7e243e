package image

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"codeberg.org/snonux/imageserver/internal"
	"codeberg.org/snonux/imageserver/internal/metrics"
	"codeberg.org/snonux/imageserver/internal/storage"
)

const (
	downloadTimeout        = 30 * time.Second
	defaultMaxDownloadSize = 50 * 1024 * 1024 // 50MB
)

// Persister writes downloaded bytes into the image store
type Persister interface {
	SaveImageFromData(data []byte, section storage.Section, filename string) (*storage.StoredImage, error)
}

// Download describes a persisted download
type Download struct {
	FilePath   string `json:"filePath"`
	PublicPath string `json:"publicPath"`
	Size       int64  `json:"size"`
	Filename   string `json:"filename"`
}

// DownloadError represents a failed image fetch
type DownloadError struct {
	URL        string
	StatusCode int // 0 for transport errors and timeouts
	Err        error
}

func (e *DownloadError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("download of %s failed with status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("download of %s failed: %v", e.URL, e.Err)
}

func (e *DownloadError) Unwrap() error {
	return e.Err
}

// Downloader fetches remote images and stores them
type Downloader struct {
	httpClient *http.Client
	store      Persister
	maxBytes   int64
	metrics    *metrics.Metrics
	logger     *zap.Logger
}

// NewDownloader creates a downloader writing into store
func NewDownloader(store Persister, m *metrics.Metrics, logger *zap.Logger) *Downloader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Downloader{
		httpClient: &http.Client{Timeout: downloadTimeout},
		store:      store,
		maxBytes:   defaultMaxDownloadSize,
		metrics:    m,
		logger:     logger,
	}
}

// SetHTTPClient replaces the HTTP client, mainly for tests
func (d *Downloader) SetHTTPClient(hc *http.Client) {
	d.httpClient = hc
}

// SetMaxBytes sets the largest accepted image; 0 disables the limit
func (d *Downloader) SetMaxBytes(n int64) {
	d.maxBytes = n
}

// Download fetches imageURL into the downloads area under the sanitized
// filename
func (d *Downloader) Download(ctx context.Context, imageURL, filename string) (*Download, error) {
	return d.DownloadTo(ctx, imageURL, filename, storage.Downloads)
}

// DownloadTo fetches imageURL into the given section under the sanitized
// filename
func (d *Downloader) DownloadTo(ctx context.Context, imageURL, filename string, section storage.Section) (*Download, error) {
	data, err := d.fetch(ctx, imageURL)
	if err != nil {
		d.metrics.IncDownloads("error")
		return nil, err
	}

	name := internal.SanitizeFilename(filename)
	stored, err := d.store.SaveImageFromData(data, section, name)
	if err != nil {
		d.metrics.IncDownloads("error")
		return nil, fmt.Errorf("failed to save downloaded image: %w", err)
	}

	d.metrics.IncDownloads("ok")
	d.logger.Info("image downloaded",
		zap.String("url", imageURL),
		zap.String("file", stored.FilePath),
		zap.Int64("size", stored.Size))

	return &Download{
		FilePath:   stored.FilePath,
		PublicPath: stored.URL,
		Size:       stored.Size,
		Filename:   stored.Filename,
	}, nil
}

// fetch reads the whole image body into memory
func (d *Downloader) fetch(ctx context.Context, imageURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, &DownloadError{URL: imageURL, Err: err}
	}
	req.Header.Set("User-Agent", internal.UserAgent)

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, &DownloadError{URL: imageURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &DownloadError{URL: imageURL, StatusCode: resp.StatusCode}
	}

	var body io.Reader = resp.Body
	if d.maxBytes > 0 {
		// One extra byte tells an exact-size image from an oversized one
		body = io.LimitReader(resp.Body, d.maxBytes+1)
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, &DownloadError{URL: imageURL, Err: err}
	}
	if d.maxBytes > 0 && int64(len(data)) > d.maxBytes {
		return nil, &DownloadError{
			URL: imageURL,
			Err: fmt.Errorf("image exceeds maximum size of %d bytes", d.maxBytes),
		}
	}
	return data, nil
}

// IsDownloadFailure reports whether err came from fetching the image
func IsDownloadFailure(err error) bool {
	var dlErr *DownloadError
	return errors.As(err, &dlErr)
}
