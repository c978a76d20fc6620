package roi

import (
	"errors"
	"fmt"
	"sort"
)

// Classification labels as produced by the peak classifier
const (
	ClassNoise     = 0
	ClassPeak      = 1
	ClassAmbiguous = 2
)

var ErrInvalidComponent = errors.New("invalid component")

// Range is a [Begin, End) pair, used for scan and retention time ranges
type Range[T int | float64] struct {
	Begin T
	End   T
}

// ROI is a region of interest: the intensity trace of one m/z window in one
// sample. len(I) must equal Scan.End-Scan.Begin.
type ROI struct {
	I      []float64
	Scan   Range[int]
	Rt     Range[float64]
	MzMean float64
}

// Component groups the ROIs of the same m/z window across samples.
// All slices are indexed in parallel.
type Component struct {
	Samples  []string
	ROIs     []*ROI
	Shifts   []int // scan offset that aligns each sample to a common frame
	Grouping []int // similarity group label per sample
}

// Validate checks the structural invariants of a component
func (c *Component) Validate() error {
	n := len(c.Samples)
	if len(c.ROIs) != n || len(c.Shifts) != n || len(c.Grouping) != n {
		return fmt.Errorf("%w: %d samples, %d rois, %d shifts, %d labels",
			ErrInvalidComponent, n, len(c.ROIs), len(c.Shifts), len(c.Grouping))
	}
	seen := make(map[string]bool, n)
	for k, sample := range c.Samples {
		if seen[sample] {
			return fmt.Errorf("%w: sample %s occurs twice", ErrInvalidComponent, sample)
		}
		seen[sample] = true
		if c.Grouping[k] < 0 {
			return fmt.Errorf("%w: sample %s has negative similarity group %d",
				ErrInvalidComponent, sample, c.Grouping[k])
		}
		r := c.ROIs[k]
		if r == nil {
			return fmt.Errorf("%w: sample %s has no ROI", ErrInvalidComponent, sample)
		}
		if len(r.I) != r.Scan.End-r.Scan.Begin {
			return fmt.Errorf("%w: sample %s has %d intensities for scan range %d:%d",
				ErrInvalidComponent, sample, len(r.I), r.Scan.Begin, r.Scan.End)
		}
	}
	return nil
}

// Labels returns the distinct similarity group labels in ascending order
func (c *Component) Labels() []int {
	seen := make(map[int]bool)
	var labels []int
	for _, l := range c.Grouping {
		if !seen[l] {
			seen[l] = true
			labels = append(labels, l)
		}
	}
	sort.Ints(labels)
	return labels
}

// Members returns the indices of the samples that carry the given label
func (c *Component) Members(label int) []int {
	var idx []int
	for k, l := range c.Grouping {
		if l == label {
			idx = append(idx, k)
		}
	}
	return idx
}

// CorrectClassification changes ambiguous labels into peak labels when
// at least a third of the samples were classified as peak.
// The labels are modified in place.
func CorrectClassification(labels map[string]int) {
	peaks := 0
	for _, l := range labels {
		if l == ClassPeak {
			peaks++
		}
	}
	if peaks >= len(labels)/3 {
		for k, l := range labels {
			if l == ClassAmbiguous {
				labels[k] = ClassPeak
			}
		}
	}
}
