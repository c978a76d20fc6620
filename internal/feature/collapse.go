package feature

import (
	"sort"

	"gonum.org/v1/gonum/floats"
)

// Collapse merges features of the same mzrt group that describe the same
// compound. Features are grouped by MzRtGroup, in order of first
// appearance, so the input does not need to be sorted.
func Collapse(features []*Feature, cfg Config) []*Feature {
	var order []int
	groups := make(map[int][]*Feature)
	for _, f := range features {
		if _, ok := groups[f.MzRtGroup]; !ok {
			order = append(order, f.MzRtGroup)
		}
		groups[f.MzRtGroup] = append(groups[f.MzRtGroup], f)
	}

	collapsed := make([]*Feature, 0, len(features))
	for _, code := range order {
		collapsed = append(collapsed, CollapseGroup(groups[code], code, cfg)...)
	}
	return collapsed
}

// CollapseGroup merges features of one mzrt group. Features of different
// similarity groups are merged when their base peaks (the peak of the
// most intense sample) correlate strictly above cfg.CorrelationThreshold.
// For every feature, the best correlating unused feature of each later
// similarity group is taken. All returned features are new, with mzrt
// group code and no similarity group.
func CollapseGroup(group []*Feature, code int, cfg Config) []*Feature {
	label2idx := make(map[int][]int)
	var labels []int
	for idx, f := range group {
		if _, ok := label2idx[f.SimilarityGroup]; !ok {
			labels = append(labels, f.SimilarityGroup)
		}
		label2idx[f.SimilarityGroup] = append(label2idx[f.SimilarityGroup], idx)
	}
	sort.Ints(labels)

	basePeaks := make([][]float64, len(group))
	for idx, f := range group {
		basePeaks[idx] = basePeak(f)
	}

	var collapsed []*Feature
	used := make([]bool, len(group))
	for i, label := range labels {
		for _, idx := range label2idx[label] {
			if used[idx] {
				continue
			}
			compose := []int{idx}
			for _, compLabel := range labels[i+1:] {
				candidates := label2idx[compLabel]
				coefs := make([]float64, len(candidates))
				for n, jdx := range candidates {
					if used[jdx] {
						continue
					}
					if corr := Correlation(basePeaks[idx], basePeaks[jdx]); len(corr) > 0 {
						coefs[n] = floats.Max(corr)
					}
				}
				if n := floats.MaxIdx(coefs); coefs[n] > cfg.CorrelationThreshold {
					compose = append(compose, candidates[n])
				}
			}

			f := &Feature{MzRtGroup: code, SimilarityGroup: Ungrouped}
			for _, jdx := range compose {
				f.Extend(group[jdx])
				used[jdx] = true
			}
			collapsed = append(collapsed, f)
		}
	}
	return collapsed
}

// basePeak returns the intensities within the border of the most
// intense sample of f
func basePeak(f *Feature) []float64 {
	if f.Len() == 0 {
		return nil
	}
	n := floats.MaxIdx(f.Intensities)
	b := f.Borders[n]
	return f.ROIs[n].I[b.Begin:b.End]
}
