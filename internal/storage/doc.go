// Package storage owns the on-disk image tree. Every image file may be
// paired with a "<filename>.json" sidecar holding its metadata; the pair
// is written and deleted together so a sidecar never outlives its image.
package storage
