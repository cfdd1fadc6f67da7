// Package aggregate computes the dashboard aggregates. Every function is a
// single pass over its input, never fails and returns the zero-filled shape for
// empty input.
package aggregate

import (
	"math"
	"time"
)

const (
	// RecentWindow is the trailing period counted as recent activity.
	RecentWindow = 7 * 24 * time.Hour
	// TrendDays is the number of daily buckets in a weekly trend.
	TrendDays = 7
)

// Percent returns round(count/total*100), or 0 when total is 0.
func Percent(count, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(count) * 100 / float64(total)))
}

// average returns round(sum/n), or 0 when n is 0.
func average(sum, n int) int {
	if n <= 0 {
		return 0
	}
	return int(math.Round(float64(sum) / float64(n)))
}
