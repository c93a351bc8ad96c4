package loader

import (
	"volumeio/pkg/binio"
	"volumeio/pkg/header"
)

// sliceSource reads the raw bytes of slice k.
type sliceSource interface {
	readSlice(k int, buf []byte) error
	rewind() error
	close() error
}

// volumeFile reads every slice from one persistent handle.
type volumeFile struct {
	f          *binio.File
	offset     int64
	sliceBytes int64
}

func (v *volumeFile) readSlice(k int, buf []byte) error {
	if err := v.f.Seek(v.offset + int64(k)*v.sliceBytes); err != nil {
		return err
	}
	return v.f.ReadFull(buf)
}

func (v *volumeFile) rewind() error {
	return v.f.Seek(v.offset)
}

func (v *volumeFile) close() error {
	return v.f.Close()
}

// sliceFiles opens slice k's own file for each read and closes it again,
// so a missing or short file only affects that slice.
type sliceFiles struct {
	files []header.SliceFile
}

func (s *sliceFiles) readSlice(k int, buf []byte) error {
	entry := s.files[k]
	f, err := binio.Open(entry.Path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := f.Seek(entry.Offset); err != nil {
		return err
	}
	return f.ReadFull(buf)
}

func (s *sliceFiles) rewind() error { return nil }

func (s *sliceFiles) close() error { return nil }
