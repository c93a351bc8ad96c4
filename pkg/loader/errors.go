package loader

import (
	"errors"
	"fmt"

	"volumeio/pkg/binio"
	"volumeio/pkg/geometry"
	"volumeio/pkg/header"
)

// Errors returned by the loader. Use errors.Is to test for them.
var (
	ErrHeader        = header.ErrHeader
	ErrGeometry      = geometry.ErrGeometry
	ErrIO            = errors.New("i/o error")
	ErrTruncatedData = errors.New("truncated data")
	ErrEndOfStream   = errors.New("end of stream")
	ErrClosed        = errors.New("session is closed")
)

// failure kinds used as metric labels
const (
	kindIO        = "io"
	kindTruncated = "truncated"
)

// sliceError classifies a failed slice read as truncated data or an I/O error.
func sliceError(slice int, err error) error {
	if errors.Is(err, binio.ErrShortRead) {
		return fmt.Errorf("%w: slice %d: %w", ErrTruncatedData, slice, err)
	}
	return fmt.Errorf("%w: slice %d: %w", ErrIO, slice, err)
}

func failureKind(err error) string {
	if errors.Is(err, ErrTruncatedData) {
		return kindTruncated
	}
	return kindIO
}

// openError wraps failures to open a header or payload file. Header
// validation errors keep their own kind.
func openError(what, path string, err error) error {
	if errors.Is(err, ErrHeader) {
		return fmt.Errorf("%s %s: %w", what, path, err)
	}
	return fmt.Errorf("%w: %s %s: %w", ErrIO, what, path, err)
}
