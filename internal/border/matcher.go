package border

// Overlap returns the length of the intersection of a and b, divided by
// the length of the shorter of the two. Empty borders never overlap.
func Overlap(a, b Border) float64 {
	shortest := min(a.Len(), b.Len())
	if shortest <= 0 {
		return 0
	}
	inter := min(a.End, b.End) - max(a.Begin, b.Begin)
	if inter <= 0 {
		return 0
	}
	return float64(inter) / float64(shortest)
}

// Matches reports whether border and avgBorder describe the same peak
func Matches(border, avgBorder Border, threshold float64) bool {
	return Overlap(border, avgBorder) >= threshold
}
