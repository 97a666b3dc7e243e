package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"codeberg.org/snonux/imageserver/internal/metrics"
)

const sidecarExt = ".json"

// imageExtensions is the allowlist of files treated as images
var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

// Metadata is the free-form content of a sidecar file. Common keys are
// originalName, uploadedAt, size, tags, description, alt and section.
type Metadata map[string]any

// StoredImage is an image file together with its sidecar metadata
type StoredImage struct {
	Filename   string    `json:"filename"`
	FilePath   string    `json:"filePath"`
	URL        string    `json:"url"`
	Section    Section   `json:"section"`
	Size       int64     `json:"size"`
	CreatedAt  time.Time `json:"created"`
	ModifiedAt time.Time `json:"modified"`
	Metadata   Metadata  `json:"metadata"`
}

// LocalStore manages the image tree below a Layout
type LocalStore struct {
	layout  Layout
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// NewLocalStore creates a store. Directories are not touched until
// EnsureDirectories or the first write.
func NewLocalStore(layout Layout, m *metrics.Metrics, logger *zap.Logger) *LocalStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LocalStore{layout: layout, logger: logger, metrics: m}
}

// Layout returns the directory layout of the store
func (s *LocalStore) Layout() Layout {
	return s.layout
}

// EnsureDirectories creates all managed directories. Failures are logged
// and skipped so one unwritable directory does not keep the server down.
func (s *LocalStore) EnsureDirectories() {
	for _, dir := range s.layout.Dirs() {
		if err := os.MkdirAll(dir, 0755); err != nil {
			s.logger.Error("failed to create directory", zap.String("dir", dir), zap.Error(err))
			continue
		}
		if err := os.Chmod(dir, 0755); err != nil {
			s.logger.Warn("failed to set directory permissions", zap.String("dir", dir), zap.Error(err))
		}
	}
}

// ListImages returns every image of a section with its metadata, ordered
// by filename. A missing sidecar yields empty metadata.
func (s *LocalStore) ListImages(section Section) ([]StoredImage, error) {
	return s.SearchImages(section, "")
}

// SearchImages is ListImages filtered by term. An image matches if its
// filename, or the originalName, tags or description of its sidecar,
// contain term case-insensitively. An empty term matches everything.
func (s *LocalStore) SearchImages(section Section, term string) ([]StoredImage, error) {
	dir := s.layout.Dir(section)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &Error{Op: "list", Path: dir, Err: ErrDirectoryMissing}
		}
		return nil, &Error{Op: "list", Path: dir, Err: err}
	}

	term = strings.ToLower(strings.TrimSpace(term))
	images := make([]StoredImage, 0, len(entries))
	for _, entry := range entries {
		if !entry.Type().IsRegular() || !IsImageFile(entry.Name()) {
			continue
		}

		img, err := s.load(section, entry.Name())
		if err != nil {
			s.logger.Warn("skipping unreadable image", zap.String("file", entry.Name()), zap.Error(err))
			continue
		}
		if term == "" || matches(img, term) {
			images = append(images, *img)
		}
	}

	sort.Slice(images, func(i, j int) bool {
		return images[i].Filename < images[j].Filename
	})
	return images, nil
}

// Get returns one image of a section
func (s *LocalStore) Get(section Section, filename string) (*StoredImage, error) {
	if err := validateFilename(filename); err != nil {
		return nil, err
	}
	return s.load(section, filename)
}

// SaveUploadedFile moves a temporary upload into a section. An existing
// file of the same name is overwritten; the last writer wins.
func (s *LocalStore) SaveUploadedFile(tempPath string, section Section, filename string) (*StoredImage, error) {
	if err := validateFilename(filename); err != nil {
		return nil, err
	}
	if _, err := os.Stat(tempPath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &Error{Op: "move", Path: tempPath, Err: ErrSourceMissing}
		}
		return nil, &Error{Op: "move", Path: tempPath, Err: err}
	}

	dir := s.layout.Dir(section)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, &Error{Op: "create directory", Path: dir, Err: err}
	}

	target := filepath.Join(dir, filename)
	s.warnOverwrite(target)

	if err := moveFile(tempPath, target); err != nil {
		return nil, &Error{Op: "move", Path: target, Err: err}
	}

	img, err := s.load(section, filename)
	if err != nil {
		return nil, err
	}
	s.metrics.AddStoredBytes(string(section), img.Size)
	return img, nil
}

// SaveImageFromData writes data as an image of a section, creating the
// directory if needed
func (s *LocalStore) SaveImageFromData(data []byte, section Section, filename string) (*StoredImage, error) {
	if err := validateFilename(filename); err != nil {
		return nil, err
	}

	target := filepath.Join(s.layout.Dir(section), filename)
	s.warnOverwrite(target)

	if err := writeFile(target, data); err != nil {
		return nil, err
	}

	img, err := s.load(section, filename)
	if err != nil {
		return nil, err
	}
	s.metrics.AddStoredBytes(string(section), img.Size)
	return img, nil
}

// DeleteImage removes an image and its sidecar. It returns false without
// error if the image did not exist. Sidecar removal failures are logged
// only.
func (s *LocalStore) DeleteImage(section Section, filename string) (bool, error) {
	if err := validateFilename(filename); err != nil {
		return false, err
	}

	path := filepath.Join(s.layout.Dir(section), filename)
	deleted, err := DeleteFile(path)
	if err != nil {
		return false, err
	}

	if _, err := DeleteFile(sidecarPath(path)); err != nil {
		s.logger.Error("failed to delete metadata sidecar",
			zap.String("file", path), zap.Error(err))
	}
	return deleted, nil
}

// ReadMetadata returns the sidecar of an image, or empty metadata if there
// is none
func (s *LocalStore) ReadMetadata(section Section, filename string) (Metadata, error) {
	if err := validateFilename(filename); err != nil {
		return nil, err
	}
	return s.readSidecar(filepath.Join(s.layout.Dir(section), filename))
}

// WriteMetadata replaces the sidecar of an existing image
func (s *LocalStore) WriteMetadata(section Section, filename string, meta Metadata) error {
	if err := validateFilename(filename); err != nil {
		return err
	}

	path := filepath.Join(s.layout.Dir(section), filename)
	if !Exists(path) {
		return &Error{Op: "write metadata", Path: path, Err: ErrImageMissing}
	}
	if meta == nil {
		meta = Metadata{}
	}
	return WriteJSONFile(sidecarPath(path), meta)
}

// UpdateAlt sets the alt text of an image. Only the sidecar is rewritten.
func (s *LocalStore) UpdateAlt(section Section, filename, alt string) (*StoredImage, error) {
	meta, err := s.ReadMetadata(section, filename)
	if err != nil {
		return nil, err
	}
	meta["alt"] = alt
	meta["updatedAt"] = time.Now().UTC().Format(time.RFC3339Nano)

	if err := s.WriteMetadata(section, filename, meta); err != nil {
		return nil, err
	}
	return s.load(section, filename)
}

// load stats an image and reads its sidecar
func (s *LocalStore) load(section Section, filename string) (*StoredImage, error) {
	path := filepath.Join(s.layout.Dir(section), filename)
	info, err := os.Stat(path)
	if err != nil {
		return nil, &Error{Op: "stat", Path: path, Err: err}
	}

	meta, err := s.readSidecar(path)
	if err != nil {
		s.logger.Warn("ignoring unreadable metadata", zap.String("file", path), zap.Error(err))
		meta = Metadata{}
	}

	return &StoredImage{
		Filename:   filename,
		FilePath:   path,
		URL:        s.layout.PublicURL(section, filename),
		Section:    section,
		Size:       info.Size(),
		CreatedAt:  createdAt(meta, info),
		ModifiedAt: info.ModTime(),
		Metadata:   meta,
	}, nil
}

func (s *LocalStore) readSidecar(imagePath string) (Metadata, error) {
	meta := Metadata{}
	err := ReadJSONFile(sidecarPath(imagePath), &meta)
	if errors.Is(err, fs.ErrNotExist) {
		return Metadata{}, nil
	}
	if err != nil {
		return nil, err
	}
	if meta == nil {
		meta = Metadata{}
	}
	return meta, nil
}

func (s *LocalStore) warnOverwrite(path string) {
	if Exists(path) {
		s.logger.Warn("overwriting existing image", zap.String("file", path))
	}
}

// IsImageFile reports whether name has an allowed image extension
func IsImageFile(name string) bool {
	return imageExtensions[strings.ToLower(filepath.Ext(name))]
}

func sidecarPath(imagePath string) string {
	return imagePath + sidecarExt
}

// validateFilename accepts bare file names only
func validateFilename(name string) error {
	if name == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, `/\`) || filepath.Base(name) != name {
		return fmt.Errorf("%w: %q", ErrInvalidFilename, name)
	}
	return nil
}

// createdAt prefers the recorded upload time; file systems do not expose
// a portable creation time
func createdAt(meta Metadata, info os.FileInfo) time.Time {
	if v, ok := meta["uploadedAt"].(string); ok {
		if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
			return t
		}
	}
	return info.ModTime()
}

func matches(img *StoredImage, term string) bool {
	if strings.Contains(strings.ToLower(img.Filename), term) {
		return true
	}
	if v, ok := img.Metadata["originalName"].(string); ok && containsFold(v, term) {
		return true
	}
	if v, ok := img.Metadata["description"].(string); ok && containsFold(v, term) {
		return true
	}
	switch tags := img.Metadata["tags"].(type) {
	case []any:
		for _, tag := range tags {
			if s, ok := tag.(string); ok && containsFold(s, term) {
				return true
			}
		}
	case string:
		return containsFold(tags, term)
	}
	return false
}

// containsFold reports whether s contains the already lowercased term
func containsFold(s, term string) bool {
	return strings.Contains(strings.ToLower(s), term)
}
