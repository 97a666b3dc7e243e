package cache

import (
	"context"
	"sync"
	"time"

	"codeberg.org/snonux/imageserver/internal/image"
)

type memoryEntry struct {
	page    *image.Page
	expires time.Time
}

// Memory stores result pages in process memory
type Memory struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemory creates a new in-memory cache
func NewMemory() *Memory {
	return &Memory{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

// Get retrieves a page from the cache. Expired entries are dropped.
func (m *Memory) Get(ctx context.Context, key string) (*image.Page, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[key]
	if !ok {
		return nil, false, nil
	}
	if !entry.expires.IsZero() && !m.now().Before(entry.expires) {
		delete(m.entries, key)
		return nil, false, nil
	}
	return copyPage(entry.page), true, nil
}

// Set adds a page to the cache. A ttl of 0 never expires.
func (m *Memory) Set(ctx context.Context, key string, page *image.Page, ttl time.Duration) error {
	entry := memoryEntry{page: copyPage(page)}
	if ttl > 0 {
		entry.expires = m.now().Add(ttl)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = entry
	return nil
}

// Len returns the number of stored entries, expired ones included
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// copyPage keeps callers from modifying cached results
func copyPage(p *image.Page) *image.Page {
	if p == nil {
		return nil
	}
	cp := *p
	cp.Results = append([]image.Descriptor(nil), p.Results...)
	return &cp
}
