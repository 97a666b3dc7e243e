package storage

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Section selects a content area of the image tree
type Section string

const (
	Blog     Section = "blog"
	Showcase Section = "showcase"
	Service  Section = "service"
	Training Section = "training"

	// Downloads holds images fetched through /download. It is not a
	// content section and cannot be selected by ParseSection.
	Downloads Section = "downloaded"
)

// ContentSections lists the sections a caller may address
var ContentSections = []Section{Blog, Showcase, Service, Training}

// ParseSection converts a section name into a Section. "service" and
// "services" are the same section. Unknown names are rejected.
func ParseSection(name string) (Section, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "blog":
		return Blog, nil
	case "showcase":
		return Showcase, nil
	case "service", "services":
		return Service, nil
	case "training":
		return Training, nil
	default:
		return "", fmt.Errorf("%w: %q (valid: blog, showcase, service, training)", ErrUnknownSection, name)
	}
}

// DirName is the directory name of the section below images/
func (s Section) DirName() string {
	if s == Service {
		return "services"
	}
	return string(s)
}

// Layout maps sections to directories. Blog images live below the web
// root so the site can serve them directly; everything else lives below
// the image server's base directory.
type Layout struct {
	BaseDir   string
	PublicDir string
}

// Dir returns the directory of a section
func (l Layout) Dir(s Section) string {
	if s == Blog {
		return filepath.Join(l.PublicDir, "images", s.DirName())
	}
	return filepath.Join(l.BaseDir, "images", s.DirName())
}

// PublicURL returns the externally addressable path of an image
func (l Layout) PublicURL(s Section, filename string) string {
	return "/images/" + s.DirName() + "/" + filename
}

// Dirs returns every directory the store manages
func (l Layout) Dirs() []string {
	dirs := make([]string, 0, len(ContentSections)+1)
	for _, s := range ContentSections {
		dirs = append(dirs, l.Dir(s))
	}
	return append(dirs, l.Dir(Downloads))
}
