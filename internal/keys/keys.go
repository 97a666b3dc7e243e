package keys

import (
	"fmt"
	"strings"
)

// Provider names a stock-photo search API
type Provider string

const (
	Unsplash Provider = "unsplash"
	Pexels   Provider = "pexels"
	Pixabay  Provider = "pixabay"
)

// Providers lists every supported provider in dispatch order
var Providers = []Provider{Unsplash, Pexels, Pixabay}

// Sentinel values shipped as dummy keys for demo deployments
var placeholderKeys = map[string]bool{
	"placeholder": true,
	"x":           true,
}

// ParseProvider converts a provider name into a Provider
func ParseProvider(name string) (Provider, error) {
	p := Provider(strings.ToLower(strings.TrimSpace(name)))
	for _, known := range Providers {
		if p == known {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown provider: %q", name)
}

// Set holds one API key per provider. A Set is a value; nothing in the
// server mutates one after it has been resolved.
type Set struct {
	Unsplash string
	Pexels   string
	Pixabay  string
}

// Get returns the key configured for a provider
func (s Set) Get(p Provider) string {
	switch p {
	case Unsplash:
		return s.Unsplash
	case Pexels:
		return s.Pexels
	case Pixabay:
		return s.Pixabay
	default:
		return ""
	}
}

// With returns a copy of the set with the key for p replaced
func (s Set) With(p Provider, key string) Set {
	switch p {
	case Unsplash:
		s.Unsplash = key
	case Pexels:
		s.Pexels = key
	case Pixabay:
		s.Pixabay = key
	}
	return s
}

// IsAvailable reports whether the provider has a usable key
func (s Set) IsAvailable(p Provider) bool {
	return usable(s.Get(p))
}

// Available returns the providers with usable keys in dispatch order
func (s Set) Available() []Provider {
	var available []Provider
	for _, p := range Providers {
		if s.IsAvailable(p) {
			available = append(available, p)
		}
	}
	return available
}

// String masks the keys so a Set can be logged
func (s Set) String() string {
	parts := make([]string, 0, len(Providers))
	for _, p := range Providers {
		state := "missing"
		if s.IsAvailable(p) {
			state = "ok"
		} else if s.Get(p) != "" {
			state = "placeholder"
		}
		parts = append(parts, fmt.Sprintf("%s=%s", p, state))
	}
	return strings.Join(parts, " ")
}

func usable(key string) bool {
	key = strings.TrimSpace(key)
	return key != "" && !placeholderKeys[key]
}
