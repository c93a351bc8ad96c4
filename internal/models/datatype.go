package models

import (
	"fmt"
	"math"
	"strings"
)

// DataType identifies how voxel samples are stored, both on disk and in a Volume.
type DataType int

const (
	// NoDataType means the storage type has not been chosen yet. A Volume
	// with NoDataType adopts the sample type of the file it is loaded from.
	NoDataType DataType = iota
	UnsignedByte
	UnsignedShort
	SignedShort
	SignedInt
	Float
)

var dataTypeNames = map[DataType]string{
	NoDataType:    "none",
	UnsignedByte:  "uint8",
	UnsignedShort: "uint16",
	SignedShort:   "int16",
	SignedInt:     "int32",
	Float:         "float32",
}

func (t DataType) String() string {
	if name, ok := dataTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("DataType(%d)", int(t))
}

// ParseDataType accepts the names printed by String plus a few common aliases.
// An empty string yields NoDataType.
func ParseDataType(s string) (DataType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none", "native":
		return NoDataType, nil
	case "uint8", "u8", "byte", "uchar":
		return UnsignedByte, nil
	case "uint16", "u16", "ushort":
		return UnsignedShort, nil
	case "int16", "i16", "short":
		return SignedShort, nil
	case "int32", "i32", "int":
		return SignedInt, nil
	case "float32", "f32", "float":
		return Float, nil
	}
	return NoDataType, fmt.Errorf("unknown data type %q", s)
}

// Size returns the width of one sample in bytes.
func (t DataType) Size() int {
	switch t {
	case UnsignedByte:
		return 1
	case UnsignedShort, SignedShort:
		return 2
	case SignedInt, Float:
		return 4
	}
	return 0
}

// IsInteger reports whether samples of this type are integral.
func (t DataType) IsInteger() bool {
	switch t {
	case UnsignedByte, UnsignedShort, SignedShort, SignedInt:
		return true
	}
	return false
}

// Range returns the smallest and largest representable values.
func (t DataType) Range() (min, max float64) {
	switch t {
	case UnsignedByte:
		return 0, math.MaxUint8
	case UnsignedShort:
		return 0, math.MaxUint16
	case SignedShort:
		return math.MinInt16, math.MaxInt16
	case SignedInt:
		return math.MinInt32, math.MaxInt32
	case Float:
		return -math.MaxFloat32, math.MaxFloat32
	}
	return 0, 0
}

// Levels returns the number of distinct values an integer type can hold,
// or 0 for Float and NoDataType.
func (t DataType) Levels() float64 {
	if !t.IsInteger() {
		return 0
	}
	min, max := t.Range()
	return max - min + 1
}

// Axis names one of the canonical volume axes.
type Axis int

const (
	X Axis = iota
	Y
	Z
	T
)

func (a Axis) String() string {
	switch a {
	case X:
		return "x"
	case Y:
		return "y"
	case Z:
		return "z"
	case T:
		return "t"
	}
	return fmt.Sprintf("Axis(%d)", int(a))
}
