// Package cache provides storage for provider search result pages.
//
// Two implementations satisfy image.Cache: Memory for a single process and
// Redis for result sharing between server instances.
package cache
