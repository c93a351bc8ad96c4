package models

import (
	"fmt"
	"math"
)

// Volume is an in-memory voxel grid with the geometry needed to map voxel
// indices to world coordinates.
type Volume struct {
	// Type is the storage type of the voxels
	Type DataType

	// Sizes holds the extent along x, y, z and t; t is 1 for 3-D volumes
	Sizes [4]int

	// NDims is the number of non-trivial dimensions declared by the file
	NDims int

	// Separations is the signed distance between voxel centres in mm
	Separations [3]float64

	// Starts is the world position of voxel (0,0,0) expressed along the
	// direction cosines
	Starts [3]float64

	// DirCos holds the unit world-space direction of each canonical axis
	DirCos [3][3]float64

	// Data is the voxel data as a 1D array, x fastest then y, z and t
	Data []float64

	voxelMin, voxelMax float64
	realMin, realMax   float64
	hasReal            bool
}

// NewVolume creates an unallocated volume that will store voxels as t.
// Pass NoDataType to keep whatever sample type the source file uses.
func NewVolume(t DataType) *Volume {
	v := &Volume{Type: t, Sizes: [4]int{0, 0, 0, 1}}
	for c := 0; c < 3; c++ {
		v.Separations[c] = 1
		v.DirCos[c][c] = 1
	}
	return v
}

func (v *Volume) DataType() DataType { return v.Type }

func (v *Volume) SetDataType(t DataType) { v.Type = t }

// SetGeometry records sizes and the voxel-to-world parameters. It must be
// called before Allocate.
func (v *Volume) SetGeometry(sizes [4]int, nDims int, separations, starts [3]float64, dirCos [3][3]float64) {
	if sizes[3] < 1 {
		sizes[3] = 1
	}
	v.Sizes = sizes
	v.NDims = nDims
	v.Separations = separations
	v.Starts = starts
	v.DirCos = dirCos
}

// IsAllocated reports whether voxel storage exists.
func (v *Volume) IsAllocated() bool { return v.Data != nil }

// Allocate creates zeroed voxel storage for the current sizes.
func (v *Volume) Allocate() error {
	if v.Type == NoDataType {
		return fmt.Errorf("cannot allocate volume without a data type")
	}
	n := 1
	for _, s := range v.Sizes {
		if s <= 0 {
			return fmt.Errorf("cannot allocate volume with sizes %v", v.Sizes)
		}
		n *= s
	}
	v.Data = make([]float64, n)
	return nil
}

func (v *Volume) index(x, y, z, t int) int {
	return ((t*v.Sizes[2]+z)*v.Sizes[1]+y)*v.Sizes[0] + x
}

// SetVoxel stores value at (x,y,z,t), converted to the volume's storage type.
// Integer types round and clamp; NaN is stored as 0.
func (v *Volume) SetVoxel(x, y, z, t int, value float64) {
	v.Data[v.index(x, y, z, t)] = v.convert(value)
}

// Voxel returns the stored value at (x,y,z,t).
func (v *Volume) Voxel(x, y, z, t int) float64 {
	return v.Data[v.index(x, y, z, t)]
}

func (v *Volume) convert(value float64) float64 {
	if v.Type == Float {
		return float64(float32(value))
	}
	min, max := v.Type.Range()
	if math.IsNaN(value) {
		return 0
	}
	value = math.Round(value)
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

// SetVoxelRange records the range of stored voxel values.
func (v *Volume) SetVoxelRange(min, max float64) {
	v.voxelMin, v.voxelMax = min, max
}

// VoxelRange returns the range recorded by SetVoxelRange.
func (v *Volume) VoxelRange() (min, max float64) {
	return v.voxelMin, v.voxelMax
}

// SetRealRange records the real-valued range the voxel range maps onto.
// It is only set when voxels were rescaled on input.
func (v *Volume) SetRealRange(min, max float64) {
	v.realMin, v.realMax = min, max
	v.hasReal = true
}

// RealRange returns the real range, or the voxel range when no rescaling
// took place.
func (v *Volume) RealRange() (min, max float64) {
	if !v.hasReal {
		return v.voxelMin, v.voxelMax
	}
	return v.realMin, v.realMax
}

// RealValue converts the stored voxel at (x,y,z,t) back to its real value.
func (v *Volume) RealValue(x, y, z, t int) float64 {
	value := v.Voxel(x, y, z, t)
	if !v.hasReal || v.voxelMax == v.voxelMin {
		if v.hasReal {
			return v.realMin
		}
		return value
	}
	return v.realMin + (value-v.voxelMin)*(v.realMax-v.realMin)/(v.voxelMax-v.voxelMin)
}

// VoxelToWorld maps a (possibly fractional) voxel position to world space.
func (v *Volume) VoxelToWorld(x, y, z float64) [3]float64 {
	voxel := [3]float64{x, y, z}
	var world [3]float64
	for c := 0; c < 3; c++ {
		pos := v.Starts[c] + voxel[c]*v.Separations[c]
		for i := 0; i < 3; i++ {
			world[i] += pos * v.DirCos[c][i]
		}
	}
	return world
}
