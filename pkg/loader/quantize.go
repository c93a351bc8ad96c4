package loader

import (
	"math"

	"volumeio/internal/models"
)

// Quantizer linearly rescales source samples into the range of a smaller
// destination type.
type Quantizer struct {
	Translation float64
	Scale       float64

	// Levels is the number of values of an integer destination type, or 0
	// for a float destination, which is stored without rescaling
	Levels float64

	// Offset is the smallest value of the destination type
	Offset float64
}

// NewQuantizer derives the rescaling that maps [min, max] onto dst. An
// empty range (min > max, as left by a source with no finite samples) is
// treated as [0, 0].
func NewQuantizer(min, max float64, dst models.DataType) Quantizer {
	if !dst.IsInteger() {
		return Quantizer{Translation: 0, Scale: 1}
	}
	if min > max {
		min, max = 0, 0
	}
	levels := dst.Levels()
	offset, _ := dst.Range()
	return Quantizer{
		Translation: min,
		Scale:       (max - min) / (levels - 1),
		Levels:      levels,
		Offset:      offset,
	}
}

// Apply maps one source sample to its destination value. For integer
// destinations NaN maps to the lowest level and infinities to the bounds.
func (q Quantizer) Apply(v float64) float64 {
	if q.Levels == 0 {
		return (v - q.Translation) / q.Scale
	}
	switch {
	case math.IsNaN(v):
		return q.Offset
	case math.IsInf(v, 1):
		return q.Levels - 1 + q.Offset
	case math.IsInf(v, -1), q.Scale == 0:
		return q.Offset
	}
	level := math.Round((v - q.Translation) / q.Scale)
	if level < 0 {
		level = 0
	} else if level > q.Levels-1 {
		level = q.Levels - 1
	}
	return level + q.Offset
}
