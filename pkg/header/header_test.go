package header

import (
	"bytes"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"volumeio/internal/models"
)

func TestParseFree_Monolithic(t *testing.T) {
	src := "1\n0.0 0.0 0.0\n2 1.0 x\n2 1.0 y\n2 1.0 z\nvol.raw 0\n"
	h, err := ParseFree(strings.NewReader(src), "/data")
	require.NoError(t, err)

	assert.Equal(t, FreeFormat, h.Format)
	assert.Equal(t, models.UnsignedByte, h.SampleType)
	assert.Equal(t, [3]int{2, 2, 2}, h.Sizes)
	assert.Equal(t, [3]float64{1, 1, 1}, h.Spacing)
	require.NotNil(t, h.Roles)
	assert.Nil(t, h.DirCos)
	assert.Equal(t, [3]models.Axis{models.X, models.Y, models.Z}, *h.Roles)
	assert.False(t, h.Source.PerSlice())
	assert.Equal(t, filepath.Join("/data", "vol.raw"), h.Source.Path)
	assert.Equal(t, int64(0), h.Source.Offset)
	assert.Equal(t, 4, h.SliceSamples())
	assert.Equal(t, 4, h.SliceBytes())
	assert.Equal(t, 2, h.TotalSlices())
}

func TestParseFree_ShortSamplesAndOffset(t *testing.T) {
	src := "2 1.5 -2.5 3.5  10 -2.0 Z  20 1.0 X  30 0.5 y  /abs/volume.img 512"
	h, err := ParseFree(strings.NewReader(src), "/data")
	require.NoError(t, err)

	assert.Equal(t, models.UnsignedShort, h.SampleType)
	assert.Equal(t, [3]float64{1.5, -2.5, 3.5}, h.Translation)
	assert.Equal(t, [3]int{10, 20, 30}, h.Sizes)
	assert.Equal(t, [3]float64{-2, 1, 0.5}, h.Spacing)
	assert.Equal(t, [3]models.Axis{models.Z, models.X, models.Y}, *h.Roles)
	assert.Equal(t, "/abs/volume.img", h.Source.Path)
	assert.Equal(t, int64(512), h.Source.Offset)
	assert.Equal(t, 1200, h.SliceBytes())
}

func TestParseFree_MissingOffsetDefaultsToZero(t *testing.T) {
	src := "1 0 0 0 2 1 x 2 1 y 2 1 z vol.raw"
	h, err := ParseFree(strings.NewReader(src), "")
	require.NoError(t, err)
	assert.Equal(t, "vol.raw", h.Source.Path)
	assert.Equal(t, int64(0), h.Source.Offset)
}

func TestParseFree_SliceList(t *testing.T) {
	src := "1\n0 0 0\n0 2.0 z\n4 1.0 y\n3 1.0 x\ns0.raw 16 s1.raw\ns2.raw 8\n"
	h, err := ParseFree(strings.NewReader(src), "dir")
	require.NoError(t, err)

	require.True(t, h.Source.PerSlice())
	assert.Equal(t, 3, h.Sizes[0])
	assert.Equal(t, []SliceFile{
		{Path: filepath.Join("dir", "s0.raw"), Offset: 16},
		{Path: filepath.Join("dir", "s1.raw"), Offset: 0},
		{Path: filepath.Join("dir", "s2.raw"), Offset: 8},
	}, h.Source.Slices)
}

func TestParseFree_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"bad byte width", "3 0 0 0 2 1 x 2 1 y 2 1 z v.raw"},
		{"missing translation", "1 0 0"},
		{"bad axis letter", "1 0 0 0 2 1 x 2 1 w 2 1 z v.raw"},
		{"multi character axis", "1 0 0 0 2 1 xy 2 1 y 2 1 z v.raw"},
		{"zero inner size", "1 0 0 0 2 1 x 0 1 y 2 1 z v.raw"},
		{"empty slice list", "1 0 0 0 0 1 x 2 1 y 2 1 z"},
		{"missing volume file", "1 0 0 0 2 1 x 2 1 y 2 1 z"},
		{"non numeric size", "1 0 0 0 two 1 x 2 1 y 2 1 z v.raw"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseFree(strings.NewReader(tt.src), "")
			require.ErrorIs(t, err, ErrHeader)
		})
	}
}

func TestParseFree_DuplicateRolesAreLeftToResolver(t *testing.T) {
	h, err := ParseFree(strings.NewReader("1 0 0 0 2 1 x 2 1 x 2 1 z v.raw"), "")
	require.NoError(t, err)
	assert.Equal(t, [3]models.Axis{models.X, models.X, models.Z}, *h.Roles)
}

func TestReadFreeFile_DefaultSuffix(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "brain.fre"),
		[]byte("1 0 0 0 2 1 x 2 1 y 2 1 z brain.raw 0"), 0644))

	h, err := ReadFreeFile(filepath.Join(dir, "brain"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "brain.raw"), h.Source.Path)
}

func TestReadFreeFile_Missing(t *testing.T) {
	_, err := ReadFreeFile(filepath.Join(t.TempDir(), "nothing"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

type mghFields struct {
	version int32
	sizes   [4]int32
	typ     int32
	goodRAS int16
	spacing [3]float32
	dirCos  [3][3]float32
	center  [3]float32
}

func encodeMGH(f mghFields) []byte {
	var buf bytes.Buffer
	be := binary.BigEndian
	_ = binary.Write(&buf, be, f.version)
	_ = binary.Write(&buf, be, f.sizes)
	_ = binary.Write(&buf, be, f.typ)
	_ = binary.Write(&buf, be, int32(0))
	_ = binary.Write(&buf, be, f.goodRAS)
	_ = binary.Write(&buf, be, f.spacing)
	_ = binary.Write(&buf, be, f.dirCos)
	_ = binary.Write(&buf, be, f.center)
	buf.Write(make([]byte, mghUnusedSize))
	return buf.Bytes()
}

func TestParseMGH(t *testing.T) {
	data := encodeMGH(mghFields{
		version: 1,
		sizes:   [4]int32{4, 3, 2, 1},
		typ:     mghTypeFloat,
		goodRAS: 1,
		spacing: [3]float32{0.5, 1.5, 2.5},
		dirCos:  [3][3]float32{{1, 0, 0}, {0, 0, 1}, {0, -1, 0}},
		center:  [3]float32{10, -20, 30},
	})
	require.Len(t, data, MGHHeaderSize)

	r := bytes.NewReader(append(data, 0xAA))
	h, err := ParseMGH(r, "vol.mgh")
	require.NoError(t, err)

	assert.Equal(t, MGHFormat, h.Format)
	assert.Equal(t, models.Float, h.SampleType)
	assert.Equal(t, binary.BigEndian, h.ByteOrder)
	assert.Equal(t, 3, h.NDims)
	assert.Equal(t, 1, h.Frames)
	assert.Equal(t, [3]int{2, 3, 4}, h.Sizes)
	assert.Equal(t, [3]float64{2.5, 1.5, 0.5}, h.Spacing)
	require.NotNil(t, h.DirCos)
	assert.Nil(t, h.Roles)
	assert.Equal(t, [3][3]float64{{0, -1, 0}, {0, 0, 1}, {1, 0, 0}}, *h.DirCos)
	assert.Equal(t, [3]float64{10, -20, 30}, h.Center)
	assert.Equal(t, Source{Path: "vol.mgh", Offset: MGHHeaderSize}, h.Source)

	next, err := r.ReadByte()
	require.NoError(t, err)
	assert.Equal(t, byte(0xAA), next, "reader must be left at the first voxel")
}

func TestParseMGH_FloatsAreReinterpreted(t *testing.T) {
	spacing := float32(math.Float32frombits(0x3fc00001))
	data := encodeMGH(mghFields{
		version: 1,
		sizes:   [4]int32{2, 2, 2, 1},
		goodRAS: 1,
		spacing: [3]float32{spacing, 1, 1},
		dirCos:  [3][3]float32{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}},
	})
	h, err := ParseMGH(bytes.NewReader(data), "")
	require.NoError(t, err)
	assert.Equal(t, math.Float32bits(spacing), math.Float32bits(float32(h.Spacing[2])))
}

func TestParseMGH_BadRASUsesDefaults(t *testing.T) {
	data := encodeMGH(mghFields{
		version: 1,
		sizes:   [4]int32{256, 256, 128, 3},
		typ:     mghTypeShort,
		goodRAS: 0,
		spacing: [3]float32{9, 9, 9},
		dirCos:  [3][3]float32{{7, 7, 7}, {7, 7, 7}, {7, 7, 7}},
		center:  [3]float32{5, 5, 5},
	})
	h, err := ParseMGH(bytes.NewReader(data), "")
	require.NoError(t, err)

	assert.Equal(t, models.SignedShort, h.SampleType)
	assert.Equal(t, 4, h.NDims)
	assert.Equal(t, 3, h.Frames)
	assert.Equal(t, [3]float64{1, 1, 1}, h.Spacing)
	// file axes reversed: slice axis (MGH z) first
	assert.Equal(t, [3][3]float64{{0, 1, 0}, {0, 0, -1}, {-1, 0, 0}}, *h.DirCos)
	assert.Equal(t, [3]float64{}, h.Center)
	assert.Equal(t, 3*128, h.TotalSlices())
}

func TestParseMGH_TrailingSingletonsDropped(t *testing.T) {
	data := encodeMGH(mghFields{version: 1, sizes: [4]int32{64, 64, 1, 1}, goodRAS: 0})
	h, err := ParseMGH(bytes.NewReader(data), "")
	require.NoError(t, err)
	assert.Equal(t, 2, h.NDims)
	assert.Equal(t, 1, h.TotalSlices())
}

func TestParseMGH_Errors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"wrong version", encodeMGH(mghFields{version: 2, sizes: [4]int32{2, 2, 2, 1}})},
		{"long type", encodeMGH(mghFields{version: 1, sizes: [4]int32{2, 2, 2, 1}, typ: mghTypeLong})},
		{"bitmap type", encodeMGH(mghFields{version: 1, sizes: [4]int32{2, 2, 2, 1}, typ: mghTypeBitmap})},
		{"tensor type", encodeMGH(mghFields{version: 1, sizes: [4]int32{2, 2, 2, 1}, typ: mghTypeTensor})},
		{"unknown type", encodeMGH(mghFields{version: 1, sizes: [4]int32{2, 2, 2, 1}, typ: 42})},
		{"zero size", encodeMGH(mghFields{version: 1, sizes: [4]int32{2, 0, 2, 1}})},
		{"truncated", encodeMGH(mghFields{version: 1, sizes: [4]int32{2, 2, 2, 1}})[:100]},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseMGH(bytes.NewReader(tt.data), "")
			require.ErrorIs(t, err, ErrHeader)
		})
	}
}

func TestReadTrailer(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, binary.Write(&buf, binary.BigEndian, [5]float32{2300, 9, 2.98, 900, 256}))

	tr, err := ReadTrailer(&buf)
	require.NoError(t, err)
	assert.Equal(t, Trailer{TR: 2300, FlipAngle: 9, TE: 2.98, TI: 900, FoV: 256}, tr)
}

func TestParseMGH_RejectsOversizedExtent(t *testing.T) {
	tests := []struct {
		name  string
		sizes [4]int32
	}{
		{"slice overflows", [4]int32{math.MaxInt32, math.MaxInt32, 2, 1}},
		{"slice too large", [4]int32{1 << 15, 1 << 14, 1, 1}},
		{"too many slices", [4]int32{1024, 1024, 1 << 12, 1}},
		{"too many frames", [4]int32{256, 256, 256, math.MaxInt32}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := encodeMGH(mghFields{version: 1, sizes: tt.sizes, typ: mghTypeFloat, goodRAS: 0})
			_, err := ParseMGH(bytes.NewReader(data), "")
			require.ErrorIs(t, err, ErrHeader)
		})
	}
}

func TestParseFree_RejectsOversizedExtent(t *testing.T) {
	for _, src := range []string{
		"2 0 0 0 2 1 x 2147483647 1 y 2147483647 1 z v.raw",
		"1 0 0 0 2147483647 1 x 2 1 y 2 1 z v.raw",
	} {
		_, err := ParseFree(strings.NewReader(src), "")
		require.ErrorIs(t, err, ErrHeader, src)
	}
}

func TestHeaderExtentAtLimit(t *testing.T) {
	h := &Header{Sizes: [3]int{2, 1 << 15, 1 << 15}, Frames: 1, SampleType: models.UnsignedByte}
	require.NoError(t, h.checkExtent())
	assert.Equal(t, MaxSliceBytes, h.SliceBytes())

	h.SampleType = models.UnsignedShort
	require.ErrorIs(t, h.checkExtent(), ErrHeader)
}
