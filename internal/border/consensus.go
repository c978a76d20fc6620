package border

import (
	"cmp"
	"errors"
	"fmt"
	"maps"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/524D/mzpeaks/internal/roi"
)

// ErrManyToMany is returned when a border that was already resolved as a
// missing separation is also part of a redundant separation
var ErrManyToMany = errors.New(`"many-to-many" border match`)

// Correct makes the borders of every similarity group in c consistent
// with the consensus borders of that group. The result is a new mapping
// that contains every sample of c; borders is not modified.
func Correct(c *roi.Component, borders Borders, cfg Config) (Borders, error) {
	corrected := make(Borders, len(c.Samples))
	for _, label := range c.Labels() {
		g, err := CorrectGroup(c, label, borders, cfg)
		if err != nil {
			return nil, fmt.Errorf("similarity group %d: %w", label, err)
		}
		maps.Copy(corrected, g)
	}
	return corrected, nil
}

// CorrectGroup corrects the borders of the samples with similarity label
// label and returns them, keyed by sample name
func CorrectGroup(c *roi.Component, label int, borders Borders, cfg Config) (Borders, error) {
	members := c.Members(label)
	if len(members) == 0 {
		return Borders{}, nil
	}

	// Move all borders to the common scan frame
	shifted := make([][]Border, len(members))
	for m, k := range members {
		off := frameOffset(c, k)
		for _, b := range borders[c.Samples[k]] {
			shifted[m] = append(shifted[m], b.Shift(off))
		}
	}

	begin, end := groupExtent(c, members)
	avg := Consensus(begin, end, shifted, cfg.OccupancyThreshold)

	out := make(Borders, len(members))
	for m, k := range members {
		corrected, err := AverageCorrection(shifted[m], avg, cfg.OverlapThreshold)
		if err != nil {
			return nil, fmt.Errorf("sample %s: %w", c.Samples[k], err)
		}
		off := frameOffset(c, k)
		length := len(c.ROIs[k].I)
		res := make([]Border, 0, len(corrected))
		for _, b := range corrected {
			b = b.Shift(-off)
			b.Begin = min(max(b.Begin, 0), length)
			b.End = max(min(b.End, length), b.Begin)
			if b.End == b.Begin && length > 0 {
				// Consensus peak outside this ROI
				b.Begin = min(b.Begin, length-1)
				b.End = b.Begin + 1
			}
			res = append(res, b)
		}
		out[c.Samples[k]] = untangle(res)
	}
	return out, nil
}

func frameOffset(c *roi.Component, k int) int {
	return c.ROIs[k].Scan.Begin + c.Shifts[k]
}

// groupExtent returns the scan window in which consensus borders are
// searched: the minimum of the scan begins and the minimum of the scan
// ends of the group's ROIs
func groupExtent(c *roi.Component, members []int) (int, int) {
	begin := c.ROIs[members[0]].Scan.Begin
	end := c.ROIs[members[0]].Scan.End
	for _, k := range members[1:] {
		begin = min(begin, c.ROIs[k].Scan.Begin)
		end = min(end, c.ROIs[k].Scan.End)
	}
	return begin, end
}

// Consensus computes the averaged borders of a group in the scan window
// [begin, end). Every scan covered by more than threshold of the samples
// in shifted belongs to a consensus peak.
func Consensus(begin, end int, shifted [][]Border, threshold float64) []Border {
	if end <= begin || len(shifted) == 0 {
		return nil
	}
	occupancy := make([]float64, end-begin)
	for _, bs := range shifted {
		for _, b := range bs {
			for p := max(b.Begin-begin, 0); p < min(b.End-begin, len(occupancy)); p++ {
				occupancy[p]++
			}
		}
	}
	floats.Scale(1/float64(len(shifted)), occupancy)

	mask := make([]bool, len(occupancy))
	for p, o := range occupancy {
		mask[p] = o > threshold
	}
	avg := runs(mask)
	for i := range avg {
		avg[i] = avg[i].Shift(begin)
	}
	return avg
}

// AverageCorrection corrects the borders of one sample using the averaged
// borders of its similarity group. Both must be in the same scan frame.
//
//   - a border that matches several averaged borders is split along them
//   - a border that matches no averaged border is dropped
//   - borders that match the same averaged border are joined
//   - an averaged border without match is added
//
// The result is sorted and overlapping neighbours are cut apart.
func AverageCorrection(borders, avg []Border, threshold float64) ([]Border, error) {
	nb, na := len(borders), len(avg)
	if nb == 0 {
		return slices.Clone(avg), nil
	}
	if na == 0 {
		return nil, nil
	}

	// FIXME: equal counts do not guarantee that the borders correspond
	m := mat.NewDense(nb, na, nil)
	if nb == na {
		for i := 0; i < nb; i++ {
			m.Set(i, i, 1)
		}
	} else {
		for i, b := range borders {
			for j, a := range avg {
				if Matches(b, a, threshold) {
					m.Set(i, j, 1)
				}
			}
		}
	}

	// Break links between neighbours when a border matches several
	// averaged borders
	for i := 0; i < nb; i++ {
		ones := nonZero(m.RawRowView(i))
		if len(ones) < 2 {
			continue
		}
		for _, j := range ones[:len(ones)-1] {
			if j+1 < nb && m.At(j+1, j) != 0 {
				m.Set(j+1, j, 0)
			}
			if j+1 < nb && m.At(j+1, j+1) != 0 {
				m.Set(j, j+1, 0)
			}
		}
	}

	var corrected []Border
	added := make([]bool, nb)
	for i, b := range borders {
		ones := nonZero(m.RawRowView(i))
		switch len(ones) {
		case 0: // extra peak
			added[i] = true
		case 1:
		default: // missing separation
			for n, j := range ones {
				switch n {
				case 0:
					corrected = append(corrected, Border{Begin: min(b.Begin, avg[j].Begin), End: avg[j].End})
				case len(ones) - 1:
					corrected = append(corrected, Border{Begin: avg[j].Begin, End: max(b.End, avg[j].End)})
				default:
					corrected = append(corrected, avg[j])
				}
			}
			added[i] = true
		}
	}

	for j, a := range avg {
		ones := nonZero(mat.Col(nil, j, m))
		switch len(ones) {
		case 0: // missed peak
			corrected = append(corrected, a)
		case 1:
		default: // redundant separation
			joined := borders[ones[0]]
			for _, i := range ones {
				if added[i] {
					return nil, fmt.Errorf("%w: border %d:%d", ErrManyToMany, borders[i].Begin, borders[i].End)
				}
				added[i] = true
				joined.Begin = min(joined.Begin, borders[i].Begin)
				joined.End = max(joined.End, borders[i].End)
			}
			corrected = append(corrected, joined)
		}
	}

	for i, a := range added {
		if !a {
			corrected = append(corrected, borders[i])
		}
	}

	slices.SortFunc(corrected, func(a, b Border) int {
		if c := cmp.Compare(a.Begin, b.Begin); c != 0 {
			return c
		}
		return cmp.Compare(a.End, b.End)
	})
	return untangle(corrected), nil
}

func nonZero(v []float64) []int {
	var idx []int
	for i, x := range v {
		if x != 0 {
			idx = append(idx, i)
		}
	}
	return idx
}

// untangle makes a sorted border list non-overlapping. Overlapping
// neighbours are cut at the middle of their overlap, and borders that are
// empty or end inside their predecessor are dropped. The result shares
// the backing array of bs.
func untangle(bs []Border) []Border {
	out := bs[:0]
	for _, b := range bs {
		if b.End <= b.Begin {
			continue
		}
		if len(out) == 0 {
			out = append(out, b)
			continue
		}
		prev := &out[len(out)-1]
		if b.End <= prev.End {
			continue
		}
		if b.Begin < prev.End {
			lo := max(b.Begin, prev.Begin)
			cut := max((lo+prev.End)/2, prev.Begin+1)
			prev.End = cut
			b.Begin = cut
		}
		out = append(out, b)
	}
	return out
}
