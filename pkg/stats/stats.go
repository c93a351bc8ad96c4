// Package stats computes summary statistics over decoded voxel data.
package stats

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// EntropyBins is the number of histogram bins used for Shannon entropy.
const EntropyBins = 256

// Summary describes the distribution of voxel values in a volume.
type Summary struct {
	Count   int
	Min     float64
	Max     float64
	Mean    float64
	StdDev  float64
	Median  float64
	Entropy float64 // bits, over EntropyBins equal-width bins
	Zeros   int
}

// Summarize computes a Summary of data. data is not modified.
func Summarize(data []float64) Summary {
	s := Summary{Count: len(data)}
	if len(data) == 0 {
		return s
	}

	s.Min = floats.Min(data)
	s.Max = floats.Max(data)
	s.Mean, s.StdDev = stat.PopMeanStdDev(data, nil)

	sorted := make([]float64, len(data))
	copy(sorted, data)
	sort.Float64s(sorted)
	s.Median = median(sorted)

	for _, v := range data {
		if v == 0 {
			s.Zeros++
		}
	}
	s.Entropy = Entropy(data, s.Min, s.Max)
	return s
}

func median(sorted []float64) float64 {
	n := len(sorted)
	if n%2 == 0 {
		return (sorted[n/2-1] + sorted[n/2]) / 2
	}
	return sorted[n/2]
}

// Histogram counts data into bins equal-width bins spanning [min, max].
// Values outside the span land in the first or last bin.
func Histogram(data []float64, min, max float64, bins int) []float64 {
	hist := make([]float64, bins)
	if bins == 0 {
		return hist
	}
	width := (max - min) / float64(bins)
	for _, v := range data {
		idx := 0
		if width > 0 {
			idx = int((v - min) / width)
		}
		if idx >= bins {
			idx = bins - 1
		} else if idx < 0 {
			idx = 0
		}
		hist[idx]++
	}
	return hist
}

// Entropy returns the Shannon entropy of data in bits. A constant signal
// has zero entropy.
func Entropy(data []float64, min, max float64) float64 {
	if len(data) == 0 || max <= min {
		return 0
	}
	hist := Histogram(data, min, max, EntropyBins)
	floats.Scale(1/float64(len(data)), hist)
	// stat.Entropy uses the natural log
	return stat.Entropy(hist) / math.Ln2
}
