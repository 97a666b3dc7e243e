package internal

import (
	"strings"
)

// Version is the image server release reported by the CLI and /health
const Version = "1.4.0"

// UserAgent identifies the image server to remote hosts it downloads from.
// It stays fixed across releases.
const UserAgent = "Mozilla/5.0 (compatible; ImageServer/1.0)"

// SanitizeFilename creates a safe filename for persisted images.
// Every character outside [a-zA-Z0-9.-] becomes '-', the result is
// lowercased and ".jpg" is appended unless already present.
//
// The ".jpg" suffix is forced even for PNG or WEBP content. Stored files
// are named that way today and callers link to those names, so the quirk
// stays until the naming can be migrated.
func SanitizeFilename(name string) string {
	var b strings.Builder
	b.Grow(len(name) + 4)
	for _, r := range name {
		if isSafeRune(r) {
			b.WriteRune(r)
		} else {
			b.WriteByte('-')
		}
	}

	sanitized := strings.ToLower(b.String())
	if !strings.HasSuffix(sanitized, ".jpg") {
		sanitized += ".jpg"
	}
	return sanitized
}

// isSafeRune checks if a rune may appear unchanged in a stored filename
func isSafeRune(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
		(r >= '0' && r <= '9') || r == '.' || r == '-'
}
