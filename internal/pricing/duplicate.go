package pricing

import "math"

// Dimension comparisons tolerate sub-centimillimeter noise from form input.
const dimensionTolerance = 0.01

// FindDuplicate scans existing items in insertion order and returns the index
// of the first one that matches the candidate under the category's equality
// rule. Items of other categories never match.
func FindDuplicate(existing []LineItem, candidate LineItem) (int, bool) {
	for i := range existing {
		if existing[i].Category != candidate.Category {
			continue
		}
		switch candidate.Category {
		case CategoryBlanket:
			if blanketMatches(existing[i].Blanket, candidate.Blanket) {
				return i, true
			}
		case CategoryMpack:
			if mpackMatches(existing[i].Mpack, candidate.Mpack) {
				return i, true
			}
		}
	}
	return -1, false
}

func blanketMatches(a, b *BlanketSpec) bool {
	if a == nil || b == nil {
		return false
	}
	return math.Abs(a.Length-b.Length) < dimensionTolerance &&
		math.Abs(a.Width-b.Width) < dimensionTolerance &&
		a.Thickness == b.Thickness &&
		a.BarType == b.BarType
}

func mpackMatches(a, b *MpackSpec) bool {
	if a == nil || b == nil {
		return false
	}
	return a.Machine == b.Machine &&
		a.Thickness == b.Thickness &&
		a.Size == b.Size
}
