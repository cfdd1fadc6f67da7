package aggregate

import "prism-dashboard/domain"

// StatusDistribution counts tasks per status.
func StatusDistribution(tasks []domain.Task) domain.StatusDistribution {
	var counts [len(domain.TaskStatuses)]int
	for _, t := range tasks {
		if i := statusIndex(t.Status); i >= 0 {
			counts[i]++
		}
	}
	return statusBuckets(counts)
}

// StatusDistributionFromCounts builds the distribution from pre-aggregated
// counts. Statuses outside the known set are ignored and repeated statuses
// are summed.
func StatusDistributionFromCounts(rows []domain.StatusCount) domain.StatusDistribution {
	var counts [len(domain.TaskStatuses)]int
	for _, r := range rows {
		if i := statusIndex(r.Status); i >= 0 && r.Count > 0 {
			counts[i] += r.Count
		}
	}
	return statusBuckets(counts)
}

func statusBuckets(counts [len(domain.TaskStatuses)]int) domain.StatusDistribution {
	total := 0
	for _, c := range counts {
		total += c
	}
	d := domain.StatusDistribution{
		ByStatus: make([]domain.StatusBucket, len(domain.TaskStatuses)),
		Total:    total,
	}
	for i, st := range domain.TaskStatuses {
		d.ByStatus[i] = domain.StatusBucket{Status: st, Count: counts[i], Percentage: Percent(counts[i], total)}
	}
	return d
}

func statusIndex(s domain.TaskStatus) int {
	for i, st := range domain.TaskStatuses {
		if st == s {
			return i
		}
	}
	return -1
}

// PriorityDistribution counts tasks per priority.
func PriorityDistribution(tasks []domain.Task) domain.PriorityDistribution {
	var counts [len(domain.TaskPriorities)]int
	total := 0
	for _, t := range tasks {
		for i, p := range domain.TaskPriorities {
			if t.Priority == p {
				counts[i]++
				total++
				break
			}
		}
	}
	d := domain.PriorityDistribution{
		ByPriority: make([]domain.PriorityBucket, len(domain.TaskPriorities)),
		Total:      total,
	}
	for i, p := range domain.TaskPriorities {
		d.ByPriority[i] = domain.PriorityBucket{Priority: p, Count: counts[i], Percentage: Percent(counts[i], total)}
	}
	return d
}
