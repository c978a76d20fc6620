package border

import (
	"slices"

	"gonum.org/v1/gonum/floats"
)

// DomainMask combines the two outputs of the border network into a
// per-point peak decision: a point is part of a peak when
// (1-splitter)*domain exceeds threshold
func DomainMask(splitter, domain []float64, threshold float64) []bool {
	mask := make([]bool, len(domain))
	for k := range domain {
		mask[k] = (1-splitter[k])*domain[k] > threshold
	}
	return mask
}

// Segment converts a peak domain mask of a resampled ROI into borders in
// scan indices of the original ROI with intensities intensity.
//
// Runs of the mask that are narrower than cfg.PeakMinimumPoints (measured
// in original scans) are skipped; a run exactly that wide is kept. Two adjacent peaks that have no splitter
// probability above cfg.SplitThreshold between them are considered one peak,
// and only the more intense of the two is kept.
func Segment(domain []bool, splitter, intensity []float64, cfg Config) []Border {
	points := len(domain)
	length := len(intensity)
	if points == 0 || length == 0 {
		return nil
	}

	var signal, scans []Border
	for _, r := range runs(domain) {
		wide := r.End - 1 - r.Begin
		if float64(wide)/float64(points)*float64(length) < cfg.PeakMinimumPoints {
			continue
		}
		signal = append(signal, r)
		scans = append(scans, toScans(r, points, length))
	}

	n := 0
	for n < len(signal)-1 {
		if splitBetween(splitter, signal[n], signal[n+1], cfg.SplitThreshold) {
			n++
			continue
		}
		smallest := n
		if floats.Sum(intensity[scans[n].Begin:scans[n].End]) >=
			floats.Sum(intensity[scans[n+1].Begin:scans[n+1].End]) {
			smallest = n + 1
		}
		signal = slices.Delete(signal, smallest, smallest+1)
		scans = slices.Delete(scans, smallest, smallest+1)
	}
	return scans
}

// toScans maps a run in resampled coordinates (points long) onto the
// scans of an ROI with length scans
func toScans(r Border, points, length int) Border {
	b := Border{
		Begin: max((r.Begin+1)*length/points-1, 0),
		End:   min(r.End*length/points, length),
	}
	if b.End <= b.Begin {
		b.End = min(b.Begin+1, length)
	}
	return b
}

// splitBetween reports whether any point between the peak points of
// runs a and b has a splitter probability above threshold
func splitBetween(splitter []float64, a, b Border, threshold float64) bool {
	from := min(a.End-1, len(splitter))
	to := min(b.Begin, len(splitter))
	for _, p := range splitter[from:max(from, to)] {
		if p > threshold {
			return true
		}
	}
	return false
}
