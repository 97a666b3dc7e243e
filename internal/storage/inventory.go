package storage

import (
	"errors"
	"sort"
)

// SectionSummary counts the images of one section
type SectionSummary struct {
	Count     int   `json:"count"`
	TotalSize int64 `json:"totalSize"`
}

// Summary aggregates an Inventory
type Summary struct {
	Total     int                       `json:"total"`
	TotalSize int64                     `json:"totalSize"`
	Services  map[string]SectionSummary `json:"services"`
}

// Inventory lists the images of all content sections
type Inventory struct {
	Images  []StoredImage `json:"images"`
	Summary Summary       `json:"summary"`
}

// Inventory collects every content section. Sections whose directory does
// not exist yet are reported as empty.
func (s *LocalStore) Inventory() (*Inventory, error) {
	inv := &Inventory{
		Images: []StoredImage{},
		Summary: Summary{
			Services: make(map[string]SectionSummary, len(ContentSections)),
		},
	}

	for _, section := range ContentSections {
		images, err := s.ListImages(section)
		if err != nil && !errors.Is(err, ErrDirectoryMissing) {
			return nil, err
		}

		var sum SectionSummary
		for _, img := range images {
			sum.Count++
			sum.TotalSize += img.Size
		}
		inv.Summary.Services[section.DirName()] = sum
		inv.Summary.Total += sum.Count
		inv.Summary.TotalSize += sum.TotalSize
		inv.Images = append(inv.Images, images...)
	}

	return inv, nil
}

// SortNewestFirst orders images by creation time, newest first
func SortNewestFirst(images []StoredImage) {
	sort.SliceStable(images, func(i, j int) bool {
		return images[i].CreatedAt.After(images[j].CreatedAt)
	})
}
