package aggregate

import (
	"time"

	"prism-dashboard/domain"
)

const dayLayout = "2006-01-02"

// StartOfDay truncates t to midnight UTC.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// TrendStart is midnight UTC of the oldest day in the trend ending at now.
func TrendStart(now time.Time) time.Time {
	return StartOfDay(now).AddDate(0, 0, -(TrendDays - 1))
}

// WeeklyTrend buckets task creation and completion into the seven UTC days
// ending today, oldest first.
func WeeklyTrend(tasks []domain.Task, now time.Time) domain.WeeklyTrend {
	start := TrendStart(now)
	days := make([]domain.TrendDay, TrendDays)
	for i := range days {
		days[i].Date = start.AddDate(0, 0, i).Format(dayLayout)
	}

	var totals domain.TrendTotals
	for _, t := range tasks {
		if i := dayIndex(start, t.CreatedAt); i >= 0 {
			days[i].Created++
			totals.Created++
		}
		if t.Status != domain.TaskCompleted {
			continue
		}
		if i := dayIndex(start, t.UpdatedAt); i >= 0 {
			days[i].Completed++
			totals.Completed++
		}
	}

	return domain.WeeklyTrend{
		Days:   days,
		Totals: totals,
		Averages: domain.TrendAverages{
			CreatedPerDay:   average(totals.Created, TrendDays),
			CompletedPerDay: average(totals.Completed, TrendDays),
		},
	}
}

func dayIndex(start, t time.Time) int {
	if t.IsZero() {
		return -1
	}
	day := StartOfDay(t)
	if day.Before(start) {
		return -1
	}
	i := int(day.Sub(start) / (24 * time.Hour))
	if i >= TrendDays {
		return -1
	}
	return i
}
