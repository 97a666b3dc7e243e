// Package keys resolves the stock-photo provider API keys. Keys are read
// once from an optional secret vault with environment/config fallback and
// handed around as an immutable Set; a reload produces a new Set.
package keys
