// Package geometry resolves a parsed header into the canonical x/y/z voxel
// grid and its voxel-to-world transform.
package geometry

import (
	"errors"
	"fmt"
	"math"

	"volumeio/internal/models"
	"volumeio/pkg/header"
	"volumeio/pkg/transform"
)

// ErrGeometry is returned when the file axes cannot be mapped one-to-one
// onto the canonical axes or the transform is degenerate.
var ErrGeometry = errors.New("invalid geometry")

// Options controls format-specific choices made while resolving.
type Options struct {
	// IgnoreOffsets centres MGH volumes on the voxel grid instead of using
	// the c_ras centre stored in the header.
	IgnoreOffsets bool
}

// DefaultOptions matches how MGH tools position their volumes.
func DefaultOptions() Options {
	return Options{IgnoreOffsets: true}
}

// Geometry is the resolved layout of a volume.
type Geometry struct {
	// Perm maps file axis k (slowest first) to its canonical axis
	Perm [3]models.Axis

	// Sizes along x, y, z and t
	Sizes [4]int

	NDims int

	Separations [3]float64
	Starts      [3]float64
	DirCos      [3][3]float64

	// Transform maps canonical voxel coordinates to world coordinates
	Transform *transform.Linear
}

// VoxelToWorld maps a canonical voxel position to world space.
func (g *Geometry) VoxelToWorld(voxel [3]float64) [3]float64 {
	return g.Transform.Apply(voxel)
}

// Resolve computes the geometry described by h. It performs no I/O.
func Resolve(h *header.Header, opts Options) (*Geometry, error) {
	switch {
	case h.Roles != nil && h.DirCos != nil:
		return nil, fmt.Errorf("%w: header carries both axis names and direction cosines", ErrGeometry)
	case h.Roles != nil:
		return resolveRoles(h)
	case h.DirCos != nil:
		return resolveDirCos(h, opts)
	}
	return nil, fmt.Errorf("%w: header carries no axis orientation", ErrGeometry)
}

func newGeometry(h *header.Header, perm [3]models.Axis) (*Geometry, error) {
	if err := checkPermutation(perm); err != nil {
		return nil, err
	}
	g := &Geometry{Perm: perm, NDims: h.NDims}
	for k := 0; k < 3; k++ {
		if h.Sizes[k] <= 0 {
			return nil, fmt.Errorf("%w: file axis %d has size %d", ErrGeometry, k, h.Sizes[k])
		}
		g.Sizes[perm[k]] = h.Sizes[k]
	}
	g.Sizes[models.T] = h.Frames
	if g.Sizes[models.T] < 1 {
		g.Sizes[models.T] = 1
	}
	return g, nil
}

func resolveRoles(h *header.Header) (*Geometry, error) {
	g, err := newGeometry(h, *h.Roles)
	if err != nil {
		return nil, err
	}
	for k := 0; k < 3; k++ {
		if h.Spacing[k] == 0 {
			return nil, fmt.Errorf("%w: file axis %d has zero spacing", ErrGeometry, k)
		}
		g.Separations[g.Perm[k]] = h.Spacing[k]
	}

	g.Starts = h.Translation
	for c := 0; c < 3; c++ {
		g.DirCos[c][c] = 1
		if g.Separations[c] < 0 {
			g.Starts[c] += -g.Separations[c] * float64(g.Sizes[c]-1)
		}
	}
	g.Transform = transform.FromStartsAndSteps(g.Starts, g.Separations, g.DirCos)
	return g, nil
}

func resolveDirCos(h *header.Header, opts Options) (*Geometry, error) {
	dirCos := *h.DirCos
	var perm [3]models.Axis
	for k := 0; k < 3; k++ {
		if dirCos[k] == [3]float64{} {
			return nil, fmt.Errorf("%w: file axis %d has no direction", ErrGeometry, k)
		}
		perm[k] = DominantAxis(dirCos[k])
	}
	g, err := newGeometry(h, perm)
	if err != nil {
		return nil, err
	}

	var columns [3][3]float64
	for k := 0; k < 3; k++ {
		for i := 0; i < 3; i++ {
			columns[perm[k]][i] = dirCos[k][i] * h.Spacing[k]
		}
	}
	g.Transform = transform.New(columns, mghOrigin(h, dirCos, opts.IgnoreOffsets))

	g.Starts, g.Separations, g.DirCos, err = g.Transform.StartsAndSteps()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGeometry, err)
	}
	return g, nil
}

// mghOrigin places the world origin so that the centre of the grid lands
// on the world origin, or on the stored c_ras centre when offsets are used.
// TODO: decide whether the c_ras branch should ever be the default; MGH
// tools always centre on the grid, which is what DefaultOptions does.
func mghOrigin(h *header.Header, dirCos [3][3]float64, ignoreOffsets bool) [3]float64 {
	var origin [3]float64
	for i := 0; i < 3; i++ {
		var centre float64
		for k := 0; k < 3; k++ {
			centre += dirCos[k][i] * (float64(h.Sizes[k]) / 2.0)
		}
		if ignoreOffsets {
			origin[i] = -centre
		} else {
			origin[i] = h.Center[i] - centre
		}
	}
	return origin
}

// DominantAxis returns the canonical axis with the largest absolute
// component of v. Y wins only when strictly larger than both X and Z, Z
// only when strictly larger than both X and Y; otherwise X.
func DominantAxis(v [3]float64) models.Axis {
	cx, cy, cz := math.Abs(v[0]), math.Abs(v[1]), math.Abs(v[2])
	axis := models.X
	if cy > cx && cy > cz {
		axis = models.Y
	}
	if cz > cx && cz > cy {
		axis = models.Z
	}
	return axis
}

func checkPermutation(perm [3]models.Axis) error {
	var seen [3]bool
	for k, a := range perm {
		if a < models.X || a > models.Z {
			return fmt.Errorf("%w: file axis %d maps to %s", ErrGeometry, k, a)
		}
		if seen[a] {
			return fmt.Errorf("%w: two file axes map to %s", ErrGeometry, a)
		}
		seen[a] = true
	}
	return nil
}
