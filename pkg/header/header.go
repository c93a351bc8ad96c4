// Package header parses the on-disk headers of the supported volume formats
// into a single normalized description.
//
// Every parser reports file axes slowest-varying first: file axis 0 is the
// slice axis and file axis 2 varies fastest within a slice.
package header

import (
	"encoding/binary"
	"errors"
	"fmt"

	"volumeio/internal/models"
)

// ErrHeader is returned for malformed or unsupported header fields.
var ErrHeader = errors.New("invalid header")

// Limits on the extent a header may declare. Sizes come straight from the
// file, so they are checked before any buffer is sized from them.
const (
	MaxSliceBytes    = 1 << 30
	MaxVolumeSamples = 1 << 31
)

// Format identifies the on-disk layout a header was read from.
type Format int

const (
	FreeFormat Format = iota
	MGHFormat
)

func (f Format) String() string {
	switch f {
	case FreeFormat:
		return "free"
	case MGHFormat:
		return "mgh"
	}
	return fmt.Sprintf("Format(%d)", int(f))
}

// SliceFile names one file of a volume stored one slice per file.
type SliceFile struct {
	Path   string
	Offset int64
}

// Source describes where the voxel payload lives. Exactly one of Path and
// Slices is set.
type Source struct {
	Path   string
	Offset int64
	Slices []SliceFile
}

// PerSlice reports whether the payload is split one file per slice.
func (s Source) PerSlice() bool { return len(s.Slices) > 0 }

// Header is the normalized result of parsing a volume header.
type Header struct {
	Format Format

	// Sizes per file axis, slowest first
	Sizes [3]int

	// Frames is the size of the fourth (time) dimension, at least 1
	Frames int

	// NDims is the number of dimensions declared with a size above 1
	NDims int

	// Spacing per file axis; a negative value flips the axis
	Spacing [3]float64

	// Roles maps each file axis onto a canonical axis. Set by formats that
	// name their axes explicitly; nil when DirCos is set.
	Roles *[3]models.Axis

	// DirCos holds the world-space direction of each file axis. Set by
	// formats that store direction cosines; nil when Roles is set.
	DirCos *[3][3]float64

	// Center is the world position of the centre of the voxel grid, as
	// stored by MGH (c_ras)
	Center [3]float64

	// Translation is the world position of voxel (0,0,0) for free format
	Translation [3]float64

	SampleType models.DataType
	ByteOrder  binary.ByteOrder
	Source     Source
}

// SliceSamples returns the number of samples in one slice.
func (h *Header) SliceSamples() int {
	return h.Sizes[1] * h.Sizes[2]
}

// SliceBytes returns the on-disk size of one slice.
func (h *Header) SliceBytes() int {
	return h.SliceSamples() * h.SampleType.Size()
}

// checkExtent rejects sizes whose slice or volume would not fit in memory.
func (h *Header) checkExtent() error {
	for k, size := range h.Sizes {
		if size <= 0 {
			return fmt.Errorf("%w: axis %d has size %d", ErrHeader, k, size)
		}
	}
	slice, ok := product(MaxSliceBytes, h.Sizes[1], h.Sizes[2], h.SampleType.Size())
	if !ok {
		return fmt.Errorf("%w: slice of %dx%d %s samples exceeds %d bytes",
			ErrHeader, h.Sizes[1], h.Sizes[2], h.SampleType, MaxSliceBytes)
	}
	frames := max(h.Frames, 1)
	if _, ok := product(MaxVolumeSamples, slice/h.SampleType.Size(), h.Sizes[0], frames); !ok {
		return fmt.Errorf("%w: volume of %d slices x %d frames exceeds %d samples",
			ErrHeader, h.Sizes[0], frames, MaxVolumeSamples)
	}
	return nil
}

// product multiplies positive factors, reporting false once the running
// product passes limit.
func product(limit int64, factors ...int) (int, bool) {
	p := int64(1)
	for _, f := range factors {
		if f <= 0 || int64(f) > limit/p {
			return 0, false
		}
		p *= int64(f)
	}
	return int(p), true
}

// TotalSlices returns the number of slices across all frames.
func (h *Header) TotalSlices() int {
	frames := h.Frames
	if frames < 1 {
		frames = 1
	}
	return h.Sizes[0] * frames
}
