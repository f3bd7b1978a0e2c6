package scheduler

// Assignment represents a maintenance activity occupying a slot on a
// maintainer's day: a start hour plus an estimated duration in minutes.
type Assignment struct {
	ActivityID       int64
	StartHour        int
	EstimatedMinutes int
}

// Conflict details an overlapping assignment that callers can surface to users.
type Conflict struct {
	WithActivityID int64
}

// HourSpan converts a start hour and an estimated duration into the half-open
// hour range the assignment occupies. A sub-hour activity still occupies the
// full hour containing its end, so the end hour is start + ceil(minutes/60).
func HourSpan(startHour, estimatedMinutes int) (int, int) {
	if estimatedMinutes <= 0 {
		return startHour, startHour
	}
	hours := (estimatedMinutes + 59) / 60
	return startHour, startHour + hours
}

// Overlaps reports whether two half-open hour ranges [aStart,aEnd) and
// [bStart,bEnd) intersect. Touching endpoints do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd int) bool {
	return aStart < bEnd && bStart < aEnd
}

// Span returns the half-open hour range occupied by the assignment.
func (a Assignment) Span() (int, int) {
	return HourSpan(a.StartHour, a.EstimatedMinutes)
}

// DetectConflicts identifies existing assignments whose occupied hours overlap
// the candidate's. Entries sharing the candidate's activity id are skipped so
// that reassigning an activity never conflicts with its own current slot.
func DetectConflicts(existing []Assignment, candidate Assignment) []Conflict {
	candidateStart, candidateEnd := candidate.Span()
	if candidateStart >= candidateEnd {
		return nil
	}

	var conflicts []Conflict
	for _, assignment := range existing {
		if assignment.ActivityID == candidate.ActivityID {
			continue
		}
		start, end := assignment.Span()
		if Overlaps(start, end, candidateStart, candidateEnd) {
			conflicts = append(conflicts, Conflict{WithActivityID: assignment.ActivityID})
		}
	}
	return conflicts
}

// HasConflict reports whether any existing assignment overlaps the candidate.
func HasConflict(existing []Assignment, candidate Assignment) bool {
	return len(DetectConflicts(existing, candidate)) > 0
}
