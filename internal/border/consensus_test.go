package border

import (
	"errors"
	"slices"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/524D/mzpeaks/internal/roi"
)

func testComponent(scans []roi.Range[int], shifts, grouping []int) *roi.Component {
	c := &roi.Component{Shifts: shifts, Grouping: grouping}
	for k, s := range scans {
		c.Samples = append(c.Samples, string(rune('A'+k)))
		c.ROIs = append(c.ROIs, &roi.ROI{
			I:    ones(s.End - s.Begin),
			Scan: s,
			Rt:   roi.Range[float64]{Begin: float64(s.Begin), End: float64(s.End)},
		})
	}
	return c
}

func TestConsensus(t *testing.T) {
	shifted := [][]Border{
		{{12, 15}},
		{{12, 15}},
		{{16, 18}},
	}
	got := Consensus(10, 20, shifted, 0.5)
	if diff := cmp.Diff([]Border{{12, 16}}, got); diff != "" {
		t.Errorf("Consensus mismatch (-want +got):\n%s", diff)
	}
	if got := Consensus(20, 20, shifted, 0.5); got != nil {
		t.Errorf("Expected no consensus for empty window, got %v", got)
	}
}

func TestAverageCorrection(t *testing.T) {
	tests := []struct {
		name    string
		borders []Border
		avg     []Border
		want    []Border
	}{
		{
			name:    "extra peak",
			borders: []Border{{0, 10}, {40, 45}, {60, 70}},
			avg:     []Border{{0, 10}, {60, 70}},
			want:    []Border{{0, 10}, {60, 70}},
		},
		{
			name:    "missed peak",
			borders: []Border{{0, 10}},
			avg:     []Border{{0, 10}, {20, 30}},
			want:    []Border{{0, 10}, {20, 30}},
		},
		{
			name:    "missing separation",
			borders: []Border{{0, 30}},
			avg:     []Border{{0, 10}, {20, 32}},
			want:    []Border{{0, 10}, {20, 32}},
		},
		{
			name:    "redundant separation",
			borders: []Border{{0, 8}, {10, 20}, {40, 50}},
			avg:     []Border{{0, 20}, {40, 50}},
			want:    []Border{{0, 20}, {40, 50}},
		},
		{
			name:    "equal counts are taken as one-to-one",
			borders: []Border{{0, 5}},
			avg:     []Border{{100, 110}},
			want:    []Border{{0, 5}},
		},
		{
			name:    "no sample borders",
			borders: nil,
			avg:     []Border{{3, 9}},
			want:    []Border{{3, 9}},
		},
		{
			name:    "no averaged borders",
			borders: []Border{{3, 9}, {20, 25}},
			avg:     nil,
			want:    nil,
		},
		{
			// b0 splits along a0 and a1; b1 would join with b0 on a0
			name:    "split wins over neighbour on the same averaged border",
			borders: []Border{{0, 30}, {0, 10}},
			avg:     []Border{{0, 10}, {20, 30}, {40, 50}},
			want:    []Border{{0, 10}, {20, 30}, {40, 50}},
		},
		{
			// b1 alone matches a1, so b0 keeps only a0
			name:    "neighbour keeps its own averaged border",
			borders: []Border{{0, 28}, {20, 30}},
			avg:     []Border{{0, 10}, {20, 30}, {40, 50}},
			want:    []Border{{0, 24}, {24, 30}, {40, 50}},
		},
		{
			name:    "nested border is dropped",
			borders: []Border{{0, 20}, {2, 25}, {3, 6}},
			avg:     []Border{{0, 8}, {9, 18}, {19, 25}},
			want:    []Border{{0, 11}, {11, 25}},
		},
		{
			name:    "overlap is cut",
			borders: []Border{{0, 10}},
			avg:     []Border{{0, 10}, {5, 20}},
			want:    []Border{{0, 7}, {7, 20}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := AverageCorrection(tt.borders, tt.avg, 0.6)
			if err != nil {
				t.Fatalf("AverageCorrection: error return %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("AverageCorrection mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestAverageCorrectionManyToMany(t *testing.T) {
	borders := []Border{{20, 50}, {22, 28}}
	avg := []Border{{0, 10}, {20, 30}, {40, 50}}
	_, err := AverageCorrection(borders, avg, 0.6)
	if !errors.Is(err, ErrManyToMany) {
		t.Errorf("Expected error %v, got %v", ErrManyToMany, err)
	}
}

func TestCorrectUnchangedWhenConsistent(t *testing.T) {
	c := testComponent(
		[]roi.Range[int]{{Begin: 100, End: 130}, {Begin: 90, End: 120}, {Begin: 100, End: 130}},
		[]int{0, 10, 0},
		[]int{0, 0, 0})
	borders := Borders{
		"A": {{5, 10}, {15, 20}},
		"B": {{5, 10}, {15, 20}},
		"C": {{5, 10}, {15, 20}},
	}
	got, err := Correct(c, borders, DefaultConfig())
	if err != nil {
		t.Fatalf("Correct: error return %v", err)
	}
	if diff := cmp.Diff(borders, got); diff != "" {
		t.Errorf("Correct mismatch (-want +got):\n%s", diff)
	}
}

func TestCorrectAddsMissedPeak(t *testing.T) {
	c := testComponent(
		[]roi.Range[int]{{Begin: 100, End: 130}, {Begin: 100, End: 130}, {Begin: 100, End: 130}},
		[]int{0, 0, 0},
		[]int{0, 0, 0})
	borders := Borders{
		"A": {{5, 10}},
		"B": {{5, 10}},
		"C": nil,
	}
	got, err := Correct(c, borders, DefaultConfig())
	if err != nil {
		t.Fatalf("Correct: error return %v", err)
	}
	want := Borders{
		"A": {{5, 10}},
		"B": {{5, 10}},
		"C": {{5, 11}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Correct mismatch (-want +got):\n%s", diff)
	}
	if borders["C"] != nil {
		t.Errorf("Correct modified its input: %v", borders["C"])
	}
}

func TestUntangle(t *testing.T) {
	tests := []struct {
		in   []Border
		want []Border
	}{
		{[]Border{{0, 10}, {20, 30}}, []Border{{0, 10}, {20, 30}}},
		{[]Border{{0, 10}, {5, 20}}, []Border{{0, 7}, {7, 20}}},
		{[]Border{{5, 6}, {5, 20}}, []Border{{5, 6}, {6, 20}}},
		{[]Border{{0, 20}, {2, 25}, {3, 6}}, []Border{{0, 11}, {11, 25}}},
		{[]Border{{0, 10}, {4, 4}, {10, 12}}, []Border{{0, 10}, {10, 12}}},
		{[]Border{{0, 30}, {2, 5}, {4, 10}}, []Border{{0, 30}}},
	}
	for _, tt := range tests {
		got := untangle(slices.Clone(tt.in))
		if diff := cmp.Diff(tt.want, got); diff != "" {
			t.Errorf("untangle(%v) mismatch (-want +got):\n%s", tt.in, diff)
		}
		for k := 1; k < len(got); k++ {
			if got[k].Begin < got[k-1].End || got[k].Begin >= got[k].End {
				t.Errorf("untangle(%v) = %v is not sorted and disjoint", tt.in, got)
			}
		}
	}
}

func TestCorrectPeakOutsideROI(t *testing.T) {
	// After its shift, C's ROI starts past the consensus peak
	c := testComponent(
		[]roi.Range[int]{{Begin: 0, End: 30}, {Begin: 0, End: 30}, {Begin: 0, End: 30}},
		[]int{0, 0, 20},
		[]int{0, 0, 0})
	borders := Borders{
		"A": {{5, 10}},
		"B": {{5, 10}},
		"C": nil,
	}
	got, err := Correct(c, borders, DefaultConfig())
	if err != nil {
		t.Fatalf("Correct: error return %v", err)
	}
	want := Borders{
		"A": {{5, 10}},
		"B": {{5, 10}},
		"C": {{0, 1}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Correct mismatch (-want +got):\n%s", diff)
	}
}

func TestCorrectGroupsIndependently(t *testing.T) {
	c := testComponent(
		[]roi.Range[int]{{Begin: 0, End: 50}, {Begin: 0, End: 50}, {Begin: 0, End: 50}, {Begin: 0, End: 50}},
		[]int{0, 0, 0, 0},
		[]int{1, 1, 2, 2})
	borders := Borders{
		"A": {{5, 10}},
		"B": {{5, 10}},
		"C": {{30, 40}},
		"D": {{30, 40}, {44, 47}},
	}
	got, err := Correct(c, borders, DefaultConfig())
	if err != nil {
		t.Fatalf("Correct: error return %v", err)
	}
	// Group 2 has a single consensus peak [30,41); D's extra peak is dropped
	want := Borders{
		"A": {{5, 10}},
		"B": {{5, 10}},
		"C": {{30, 40}},
		"D": {{30, 40}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Correct mismatch (-want +got):\n%s", diff)
	}
}

func TestGroupExtentUsesShortestEnd(t *testing.T) {
	c := testComponent(
		[]roi.Range[int]{{Begin: 100, End: 130}, {Begin: 110, End: 150}},
		[]int{0, 0},
		[]int{0, 0})
	begin, end := groupExtent(c, []int{0, 1})
	if begin != 100 || end != 130 {
		t.Errorf("groupExtent = %d:%d, want 100:130", begin, end)
	}
}

func TestCorrectIgnoresPeaksBeyondShortestROI(t *testing.T) {
	// The consensus window ends at the end of the shortest ROI, so the peak
	// that B and C share after scan 20 has no consensus and is dropped
	c := testComponent(
		[]roi.Range[int]{{Begin: 0, End: 20}, {Begin: 0, End: 40}, {Begin: 0, End: 40}},
		[]int{0, 0, 0},
		[]int{0, 0, 0})
	borders := Borders{
		"A": nil,
		"B": {{25, 35}},
		"C": {{25, 35}},
	}
	got, err := Correct(c, borders, DefaultConfig())
	if err != nil {
		t.Fatalf("Correct: error return %v", err)
	}
	for sample, bs := range got {
		if len(bs) != 0 {
			t.Errorf("Expected no borders for %s, got %v", sample, bs)
		}
	}
}
