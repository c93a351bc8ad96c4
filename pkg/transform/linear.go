// Package transform implements the voxel-to-world linear transform and its
// decomposition into per-axis starts, steps and direction cosines.
package transform

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// ErrDegenerate is returned when a transform cannot be decomposed because
// an axis has no length or the axes are linearly dependent.
var ErrDegenerate = errors.New("degenerate transform")

// Linear is a 4x4 homogeneous affine transform. Column c (c < 3) is the
// world-space displacement of one voxel step along volume axis c and
// column 3 holds the world position of voxel (0,0,0).
type Linear struct {
	m *mat.Dense
}

// Identity returns the identity transform.
func Identity() *Linear {
	m := mat.NewDense(4, 4, nil)
	for i := 0; i < 4; i++ {
		m.Set(i, i, 1)
	}
	return &Linear{m: m}
}

// New builds a transform from three axis columns and an origin.
func New(columns [3][3]float64, origin [3]float64) *Linear {
	l := Identity()
	for c := 0; c < 3; c++ {
		l.SetColumn(c, columns[c])
	}
	l.SetColumn(3, origin)
	return l
}

// FromStartsAndSteps is the inverse of StartsAndSteps.
func FromStartsAndSteps(starts, steps [3]float64, dirCos [3][3]float64) *Linear {
	var columns [3][3]float64
	var origin [3]float64
	for c := 0; c < 3; c++ {
		for i := 0; i < 3; i++ {
			columns[c][i] = dirCos[c][i] * steps[c]
			origin[i] += dirCos[c][i] * starts[c]
		}
	}
	return New(columns, origin)
}

// Column returns the first three components of column c.
func (l *Linear) Column(c int) [3]float64 {
	return [3]float64{l.m.At(0, c), l.m.At(1, c), l.m.At(2, c)}
}

// SetColumn replaces the first three components of column c.
func (l *Linear) SetColumn(c int, v [3]float64) {
	for i := 0; i < 3; i++ {
		l.m.Set(i, c, v[i])
	}
}

// Matrix exposes the underlying 4x4 matrix.
func (l *Linear) Matrix() mat.Matrix { return l.m }

// Apply maps a voxel position to world coordinates.
func (l *Linear) Apply(voxel [3]float64) [3]float64 {
	in := mat.NewVecDense(4, []float64{voxel[0], voxel[1], voxel[2], 1})
	var out mat.VecDense
	out.MulVec(l.m, in)
	return [3]float64{out.AtVec(0), out.AtVec(1), out.AtVec(2)}
}

// Inverse returns the world-to-voxel transform.
func (l *Linear) Inverse() (*Linear, error) {
	var inv mat.Dense
	if err := inv.Inverse(l.m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDegenerate, err)
	}
	return &Linear{m: &inv}, nil
}

// StartsAndSteps decomposes the transform into a signed step per axis, a
// unit direction cosine per axis and the start of each axis measured along
// its direction cosine. The sign of each step is chosen so that the
// direction cosine of axis c has a non-negative component c.
func (l *Linear) StartsAndSteps() (starts, steps [3]float64, dirCos [3][3]float64, err error) {
	for c := 0; c < 3; c++ {
		axis := l.Column(c)
		mag := math.Sqrt(axis[0]*axis[0] + axis[1]*axis[1] + axis[2]*axis[2])
		if mag == 0 {
			return starts, steps, dirCos, fmt.Errorf("%w: axis %d has zero length", ErrDegenerate, c)
		}
		if axis[c] < 0 {
			mag = -mag
		}
		steps[c] = mag
		for i := 0; i < 3; i++ {
			dirCos[c][i] = axis[i] / mag
		}
	}

	// origin = sum_c starts[c] * dirCos[c]
	a := mat.NewDense(3, 3, nil)
	for c := 0; c < 3; c++ {
		for i := 0; i < 3; i++ {
			a.Set(i, c, dirCos[c][i])
		}
	}
	origin := l.Column(3)
	b := mat.NewVecDense(3, origin[:])
	var x mat.VecDense
	if err := x.SolveVec(a, b); err != nil {
		return starts, steps, dirCos, fmt.Errorf("%w: %v", ErrDegenerate, err)
	}
	for c := 0; c < 3; c++ {
		starts[c] = x.AtVec(c)
	}
	return starts, steps, dirCos, nil
}
