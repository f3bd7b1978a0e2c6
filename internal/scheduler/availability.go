package scheduler

// Block represents a maintainer's recurring weekly availability window on a
// given weekday. Hours form the half-open range [StartHour, EndHour).
type Block struct {
	Weekday   Weekday
	StartHour int
	EndHour   int
}

// CoveredBy reports whether the block alone covers the half-open hour range
// [startHour, endHour).
func (b Block) CoveredBy(startHour, endHour int) bool {
	return b.StartHour <= startHour && b.EndHour >= endHour
}

// Covers reports whether at least one block fully covers [startHour, endHour).
// Coverage is never assembled from adjacent blocks: a single block must span
// the whole requested range. An empty block list covers nothing.
func Covers(blocks []Block, startHour, endHour int) bool {
	if startHour >= endHour {
		return false
	}
	for _, block := range blocks {
		if block.CoveredBy(startHour, endHour) {
			return true
		}
	}
	return false
}
