package header

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"volumeio/internal/models"
)

// MGH header layout. All fields are big-endian.
const (
	MGHHeaderSize = 284
	MGHVersion    = 1

	mghMaxDims    = 4
	mghUnusedSize = 194
)

// MGH sample type codes.
const (
	mghTypeUChar  = 0
	mghTypeInt    = 1
	mghTypeLong   = 2
	mghTypeFloat  = 3
	mghTypeShort  = 4
	mghTypeBitmap = 5
	mghTypeTensor = 6
)

// MGHRaw is the MGH header exactly as stored, after byte swapping. Sizes,
// Spacing and DirCos are in file order, fastest-varying axis first.
type MGHRaw struct {
	Version   int32
	Sizes     [mghMaxDims]int32
	Type      int32
	DOF       int32
	GoodRAS   int16
	Spacing   [3]float32
	DirCos    [3][3]float32 // x_ras, y_ras, z_ras
	CenterRAS [3]float32
}

// DecodeMGHRaw decodes the fixed 284-byte header from buf.
func DecodeMGHRaw(buf []byte) (MGHRaw, error) {
	var raw MGHRaw
	if len(buf) < MGHHeaderSize {
		return raw, fmt.Errorf("%w: MGH header needs %d bytes, got %d", ErrHeader, MGHHeaderSize, len(buf))
	}
	be := binary.BigEndian
	pos := 0
	u32 := func() uint32 {
		v := be.Uint32(buf[pos:])
		pos += 4
		return v
	}
	f32 := func() float32 {
		return math.Float32frombits(u32())
	}

	raw.Version = int32(u32())
	for i := range raw.Sizes {
		raw.Sizes[i] = int32(u32())
	}
	raw.Type = int32(u32())
	raw.DOF = int32(u32())
	raw.GoodRAS = int16(be.Uint16(buf[pos:]))
	pos += 2
	for i := range raw.Spacing {
		raw.Spacing[i] = f32()
	}
	for j := range raw.DirCos {
		for i := range raw.DirCos[j] {
			raw.DirCos[j][i] = f32()
		}
	}
	for i := range raw.CenterRAS {
		raw.CenterRAS[i] = f32()
	}
	// the remaining mghUnusedSize bytes are padding

	if raw.Version != MGHVersion {
		return raw, fmt.Errorf("%w: must be MGH version %d, got %d", ErrHeader, MGHVersion, raw.Version)
	}
	if raw.GoodRAS == 0 {
		raw.Spacing = [3]float32{1, 1, 1}
		// coronal orientation
		raw.DirCos = [3][3]float32{{-1, 0, 0}, {0, 0, -1}, {0, 1, 0}}
		raw.CenterRAS = [3]float32{}
	}
	return raw, nil
}

func mghSampleType(code int32) (models.DataType, error) {
	switch code {
	case mghTypeUChar:
		return models.UnsignedByte, nil
	case mghTypeInt:
		return models.SignedInt, nil
	case mghTypeFloat:
		return models.Float, nil
	case mghTypeShort:
		return models.SignedShort, nil
	case mghTypeLong, mghTypeBitmap, mghTypeTensor:
		return models.NoDataType, fmt.Errorf("%w: unsupported MGH data type %d", ErrHeader, code)
	}
	return models.NoDataType, fmt.Errorf("%w: unknown MGH data type %d", ErrHeader, code)
}

// ParseMGH reads the 284-byte MGH header from r. On success r is
// positioned at the first voxel. The payload is described relative to
// path, which may be empty when the caller already holds the stream.
func ParseMGH(r io.Reader, path string) (*Header, error) {
	buf := make([]byte, MGHHeaderSize)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, fmt.Errorf("%w: problem reading MGH file header: %v", ErrHeader, err)
	}
	raw, err := DecodeMGHRaw(buf)
	if err != nil {
		return nil, err
	}
	return raw.Normalize(path)
}

// Normalize converts the raw header into a Header with file axes reordered
// slowest first.
func (raw MGHRaw) Normalize(path string) (*Header, error) {
	sampleType, err := mghSampleType(raw.Type)
	if err != nil {
		return nil, err
	}
	h := &Header{
		Format:     MGHFormat,
		SampleType: sampleType,
		ByteOrder:  binary.BigEndian,
		Source:     Source{Path: path, Offset: MGHHeaderSize},
	}
	for axis := 0; axis < mghMaxDims; axis++ {
		if raw.Sizes[axis] > 1 {
			h.NDims++
		}
	}
	for axis := 0; axis < 3; axis++ {
		if raw.Sizes[axis] <= 0 {
			return nil, fmt.Errorf("%w: MGH axis %d has size %d", ErrHeader, axis, raw.Sizes[axis])
		}
	}
	h.Frames = int(raw.Sizes[3])
	if h.Frames < 1 {
		h.Frames = 1
	}

	var dirCos [3][3]float64
	for k := 0; k < 3; k++ {
		m := 2 - k
		h.Sizes[k] = int(raw.Sizes[m])
		h.Spacing[k] = float64(raw.Spacing[m])
		for i := 0; i < 3; i++ {
			dirCos[k][i] = float64(raw.DirCos[m][i])
		}
	}
	h.DirCos = &dirCos
	for i := 0; i < 3; i++ {
		h.Center[i] = float64(raw.CenterRAS[i])
	}
	if err := h.checkExtent(); err != nil {
		return nil, err
	}
	return h, nil
}

// Trailer holds the optional acquisition parameters stored after the MGH
// voxel data.
type Trailer struct {
	TR        float32
	FlipAngle float32
	TE        float32
	TI        float32
	FoV       float32
}

// ReadTrailer reads the five big-endian acquisition floats.
func ReadTrailer(r io.Reader) (Trailer, error) {
	var t Trailer
	if err := binary.Read(r, binary.BigEndian, &t); err != nil {
		return Trailer{}, err
	}
	return t, nil
}
