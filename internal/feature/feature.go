// Package feature assembles corrected peak borders into features and
// merges features that describe the same compound.
package feature

import (
	"github.com/524D/mzpeaks/internal/border"
	"github.com/524D/mzpeaks/internal/roi"
)

// Ungrouped is the similarity group of a feature that was collapsed from
// several similarity groups
const Ungrouped = -1

// Feature is one peak, integrated in every sample where it was found.
// Samples, ROIs, Borders, Shifts and Intensities are indexed in parallel.
type Feature struct {
	Samples     []string        `json:"samples"`
	ROIs        []*roi.ROI      `json:"-"`
	Borders     []border.Border `json:"borders"`
	Shifts      []int           `json:"shifts"`
	Intensities []float64       `json:"intensities"`

	Mz    float64 `json:"mz"` // mean m/z over all samples
	RtMin float64 `json:"rtmin"`
	RtMax float64 `json:"rtmax"`

	MzRtGroup       int `json:"mzrtgroup"`
	SimilarityGroup int `json:"similarityGroup"`
}

// Config holds the thresholds used when collapsing features
type Config struct {
	CorrelationThreshold float64 // base peaks must correlate strictly above this
}

// DefaultConfig returns the default collapsing thresholds
func DefaultConfig() Config {
	return Config{CorrelationThreshold: 0.8}
}

// Len returns the number of samples in the feature
func (f *Feature) Len() int {
	return len(f.Samples)
}

// Append adds the peak of one sample to the feature
func (f *Feature) Append(sample string, r *roi.ROI, b border.Border, shift int,
	intensity, mz, rtMin, rtMax float64) {
	if f.Len() > 0 {
		n := float64(f.Len())
		f.Mz = (f.Mz*n + mz) / (n + 1)
		f.RtMin = min(f.RtMin, rtMin)
		f.RtMax = max(f.RtMax, rtMax)
	} else {
		f.Mz = mz
		f.RtMin = rtMin
		f.RtMax = rtMax
	}
	f.Samples = append(f.Samples, sample)
	f.ROIs = append(f.ROIs, r)
	f.Borders = append(f.Borders, b)
	f.Shifts = append(f.Shifts, shift)
	f.Intensities = append(f.Intensities, intensity)
}

// Extend adds all samples of g to the feature
func (f *Feature) Extend(g *Feature) {
	if g.Len() == 0 {
		return
	}
	if f.Len() > 0 {
		n, m := float64(f.Len()), float64(g.Len())
		f.Mz = (f.Mz*n + g.Mz*m) / (n + m)
		f.RtMin = min(f.RtMin, g.RtMin)
		f.RtMax = max(f.RtMax, g.RtMax)
	} else {
		f.Mz = g.Mz
		f.RtMin = g.RtMin
		f.RtMax = g.RtMax
	}
	f.Samples = append(f.Samples, g.Samples...)
	f.ROIs = append(f.ROIs, g.ROIs...)
	f.Borders = append(f.Borders, g.Borders...)
	f.Shifts = append(f.Shifts, g.Shifts...)
	f.Intensities = append(f.Intensities, g.Intensities...)
}
