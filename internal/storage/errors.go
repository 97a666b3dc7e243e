package storage

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownSection is returned for section names outside the enum
	ErrUnknownSection = errors.New("unknown section")

	// ErrSourceMissing means an upload's temporary file does not exist
	ErrSourceMissing = errors.New("source file does not exist")

	// ErrImageMissing means the image of a metadata operation is absent
	ErrImageMissing = errors.New("image does not exist")

	// ErrDirectoryMissing means a section directory has not been created
	ErrDirectoryMissing = errors.New("directory does not exist")

	// ErrInvalidFilename is returned for empty names and names with path
	// components
	ErrInvalidFilename = errors.New("invalid filename")
)

// Error represents a failed filesystem operation on a path
type Error struct {
	Op   string
	Path string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("failed to %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
