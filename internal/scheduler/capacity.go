package scheduler

// TotalEstimatedTime sums the estimated duration in minutes across the given
// assignments. An empty or nil slice yields zero.
func TotalEstimatedTime(assignments []Assignment) int {
	total := 0
	for _, assignment := range assignments {
		total += assignment.EstimatedMinutes
	}
	return total
}
