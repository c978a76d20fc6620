// Package border finds peak borders in ROIs and makes them consistent
// across the samples of a similarity group.
package border

// Border is a half-open interval [Begin, End) of scan indices
type Border struct {
	Begin int `json:"begin"`
	End   int `json:"end"`
}

// Len returns the number of scans covered by the border
func (b Border) Len() int {
	return b.End - b.Begin
}

// Shift moves a border by k scans
func (b Border) Shift(k int) Border {
	return Border{Begin: b.Begin + k, End: b.End + k}
}

// Borders maps a sample name to the borders found in its ROI
type Borders map[string][]Border

// Config holds the thresholds used for segmentation and correction
type Config struct {
	DomainThreshold    float64 // a point belongs to a peak if (1-splitter)*domain exceeds this
	SplitThreshold     float64 // splitter probability that separates two adjacent peaks
	PeakMinimumPoints  float64 // minimum peak width in scans
	OverlapThreshold   float64 // minimum normalized overlap for two borders to match
	OccupancyThreshold float64 // fraction of samples that must cover a scan in the consensus
}

// DefaultConfig returns the thresholds the border network was tuned with
func DefaultConfig() Config {
	return Config{
		DomainThreshold:    0.5,
		SplitThreshold:     0.95,
		PeakMinimumPoints:  8,
		OverlapThreshold:   0.6,
		OccupancyThreshold: 0.5,
	}
}

// runs returns the runs of true values in mask as [begin, end) pairs in
// mask coordinates. The end is one position past the first false value
// that closes the run; a run that is still open at the end of the mask
// ends at len(mask)+1.
func runs(mask []bool) []Border {
	var r []Border
	begin := -1
	for n, v := range mask {
		switch {
		case v && begin == -1:
			begin = n
		case !v && begin != -1:
			r = append(r, Border{Begin: begin, End: n + 1})
			begin = -1
		}
	}
	if begin != -1 {
		r = append(r, Border{Begin: begin, End: len(mask) + 1})
	}
	return r
}
