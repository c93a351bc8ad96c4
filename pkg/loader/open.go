package loader

import (
	"context"
	"path/filepath"
	"strings"

	"volumeio/pkg/binio"
	"volumeio/pkg/header"
)

// OpenFree parses the free format header at path and prepares a session
// that decodes it into dst. When dst's data type differs from the file's
// sample type, the whole payload is scanned once before OpenFree returns.
func OpenFree(path string, dst Destination, opts Options) (*Session, error) {
	h, err := header.ReadFreeFile(path)
	if err != nil {
		return nil, openError("reading free format header", path, err)
	}

	var src sliceSource
	if h.Source.PerSlice() {
		src = &sliceFiles{files: h.Source.Slices}
	} else {
		f, err := binio.Open(h.Source.Path)
		if err != nil {
			return nil, openError("opening volume file", h.Source.Path, err)
		}
		src = &volumeFile{f: f, offset: h.Source.Offset, sliceBytes: int64(h.SliceBytes())}
	}
	return newSession(path, h, src, dst, opts)
}

// OpenMGH opens an MGH file, or a gzip compressed MGZ file, and prepares a
// session that decodes it into dst.
func OpenMGH(path string, dst Destination, opts Options) (*Session, error) {
	f, err := binio.Open(path)
	if err != nil {
		return nil, openError("opening MGH file", path, err)
	}
	h, err := header.ParseMGH(f, path)
	if err != nil {
		f.Close()
		return nil, openError("reading MGH header", path, err)
	}
	src := &volumeFile{f: f, offset: h.Source.Offset, sliceBytes: int64(h.SliceBytes())}
	return newSession(path, h, src, dst, opts)
}

// IsMGH reports whether path names an MGH or MGZ file.
func IsMGH(path string) bool {
	name := strings.ToLower(filepath.Base(path))
	return strings.HasSuffix(name, ".mgh") ||
		strings.HasSuffix(name, ".mgz") ||
		strings.HasSuffix(name, ".mgh.gz")
}

// Open picks OpenMGH or OpenFree from the file name.
func Open(path string, dst Destination, opts Options) (*Session, error) {
	if IsMGH(path) {
		return OpenMGH(path, dst, opts)
	}
	return OpenFree(path, dst, opts)
}

// Load drives s until every slice is decoded. It checks ctx between
// slices and calls progress, if not nil, after each one.
func Load(ctx context.Context, s *Session, progress func(fraction float64)) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		more, fraction, err := s.NextUnit()
		if err != nil {
			return err
		}
		if progress != nil {
			progress(fraction)
		}
		if !more {
			return nil
		}
	}
}
