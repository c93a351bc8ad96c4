package header

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"volumeio/internal/models"
	"volumeio/pkg/binio"
)

// FreeSuffix is appended to a free format header path that does not exist.
const FreeSuffix = ".fre"

// ReadFreeFile parses the free format header at path. Relative payload
// names are resolved against the header's directory.
func ReadFreeFile(path string) (*Header, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) && !strings.HasSuffix(path, FreeSuffix) {
		f, err = os.Open(path + FreeSuffix)
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseFree(f, filepath.Dir(path))
}

// ParseFree parses a free format header. The header is a sequence of
// whitespace separated tokens:
//
//	bytes_per_voxel
//	x_translation y_translation z_translation
//	count spacing axis    (three times, slowest axis first)
//	payload [offset]      (or, when the first count is <= 0, one
//	                       "file [offset]" entry per slice)
func ParseFree(r io.Reader, dir string) (*Header, error) {
	tok := binio.NewTokens(r)
	h := &Header{
		Format:    FreeFormat,
		Frames:    1,
		ByteOrder: binary.NativeEndian,
	}

	bytesPerVoxel, err := tok.Int()
	if err != nil {
		return nil, fmt.Errorf("%w: reading bytes per voxel: %v", ErrHeader, err)
	}
	switch bytesPerVoxel {
	case 1:
		h.SampleType = models.UnsignedByte
	case 2:
		h.SampleType = models.UnsignedShort
	default:
		return nil, fmt.Errorf("%w: must be either 1 or 2 bytes per voxel, got %d", ErrHeader, bytesPerVoxel)
	}

	for c := 0; c < 3; c++ {
		if h.Translation[c], err = tok.Float(); err != nil {
			return nil, fmt.Errorf("%w: reading x,y,z translations: %v", ErrHeader, err)
		}
	}

	var roles [3]models.Axis
	for axis := 0; axis < 3; axis++ {
		if h.Sizes[axis], err = tok.Int(); err != nil {
			return nil, fmt.Errorf("%w: reading size of axis %d: %v", ErrHeader, axis, err)
		}
		if h.Spacing[axis], err = tok.Float(); err != nil {
			return nil, fmt.Errorf("%w: reading spacing of axis %d: %v", ErrHeader, axis, err)
		}
		letter, err := tok.Next()
		if err != nil {
			return nil, fmt.Errorf("%w: reading name of axis %d: %v", ErrHeader, axis, err)
		}
		if roles[axis], err = parseAxisLetter(letter); err != nil {
			return nil, err
		}
	}
	h.Roles = &roles

	for axis := 1; axis < 3; axis++ {
		if h.Sizes[axis] <= 0 {
			return nil, fmt.Errorf("%w: axis %d has size %d", ErrHeader, axis, h.Sizes[axis])
		}
	}

	if h.Sizes[0] <= 0 {
		for {
			name, err := tok.Next()
			if err == io.EOF {
				break
			}
			if err != nil {
				return nil, fmt.Errorf("%w: reading slice list: %v", ErrHeader, err)
			}
			offset, _, err := tok.OptionalInt()
			if err != nil {
				return nil, fmt.Errorf("%w: reading slice list: %v", ErrHeader, err)
			}
			h.Source.Slices = append(h.Source.Slices, SliceFile{
				Path:   absolute(dir, name),
				Offset: int64(offset),
			})
		}
		if len(h.Source.Slices) == 0 {
			return nil, fmt.Errorf("%w: no slice files listed", ErrHeader)
		}
		h.Sizes[0] = len(h.Source.Slices)
	} else {
		name, err := tok.Next()
		if err != nil {
			return nil, fmt.Errorf("%w: reading volume filename: %v", ErrHeader, err)
		}
		offset, _, err := tok.OptionalInt()
		if err != nil {
			return nil, fmt.Errorf("%w: reading volume byte offset: %v", ErrHeader, err)
		}
		h.Source.Path = absolute(dir, name)
		h.Source.Offset = int64(offset)
	}

	h.NDims = 3
	if err := h.checkExtent(); err != nil {
		return nil, err
	}
	return h, nil
}

func parseAxisLetter(s string) (models.Axis, error) {
	switch strings.ToLower(s) {
	case "x":
		return models.X, nil
	case "y":
		return models.Y, nil
	case "z":
		return models.Z, nil
	}
	return 0, fmt.Errorf("%w: invalid axis %q", ErrHeader, s)
}

func absolute(dir, name string) string {
	if filepath.IsAbs(name) || dir == "" {
		return name
	}
	return filepath.Join(dir, name)
}
