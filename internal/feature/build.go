package feature

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/floats"

	"github.com/524D/mzpeaks/internal/border"
	"github.com/524D/mzpeaks/internal/roi"
)

// ErrPeakCount is returned when the samples of a similarity group have
// a different number of peaks
var ErrPeakCount = errors.New("samples in similarity group differ in number of peaks")

// ErrBorderRange is returned for an empty border or a border outside its ROI
var ErrBorderRange = errors.New("border empty or outside ROI")

// Build integrates the corrected borders of component c and returns one
// feature per similarity group and peak. The features get mzrt group
// number group.
//
// A similarity group whose borders are inconsistent yields no features;
// its error is joined into the returned error while the features of the
// other groups are still returned.
func Build(c *roi.Component, borders border.Borders, group int) ([]*Feature, error) {
	if len(c.Samples) == 0 {
		return nil, nil
	}
	// All retention times are computed with the scan frequency of the
	// first ROI
	ref := c.ROIs[0]
	var frequency float64
	if ref.Rt.End > ref.Rt.Begin {
		frequency = float64(ref.Scan.End-ref.Scan.Begin) / (ref.Rt.End - ref.Rt.Begin)
	}
	rt := func(r *roi.ROI, scan int) float64 {
		if frequency == 0 {
			return r.Rt.Begin
		}
		return r.Rt.Begin + float64(scan)/frequency
	}

	var features []*Feature
	var errs []error
	for _, label := range c.Labels() {
		members := c.Members(label)
		if err := checkGroup(c, members, borders); err != nil {
			errs = append(errs, fmt.Errorf("similarity group %d: %w", label, err))
			continue
		}
		peakNumber := len(borders[c.Samples[members[0]]])
		for p := 0; p < peakNumber; p++ {
			f := &Feature{MzRtGroup: group, SimilarityGroup: label}
			for _, k := range members {
				r := c.ROIs[k]
				b := borders[c.Samples[k]][p]
				f.Append(c.Samples[k], r, b, c.Shifts[k],
					floats.Sum(r.I[b.Begin:b.End]), r.MzMean,
					rt(r, b.Begin), rt(r, b.End))
			}
			features = append(features, f)
		}
	}
	return features, errors.Join(errs...)
}

func checkGroup(c *roi.Component, members []int, borders border.Borders) error {
	peakNumber := len(borders[c.Samples[members[0]]])
	for _, k := range members {
		sample := c.Samples[k]
		if len(borders[sample]) != peakNumber {
			return fmt.Errorf("%w: %s has %d, %s has %d", ErrPeakCount,
				c.Samples[members[0]], peakNumber, sample, len(borders[sample]))
		}
		for _, b := range borders[sample] {
			if b.Begin < 0 || b.Begin >= b.End || b.End > len(c.ROIs[k].I) {
				return fmt.Errorf("%w: %s border %d:%d", ErrBorderRange, sample, b.Begin, b.End)
			}
		}
	}
	return nil
}
