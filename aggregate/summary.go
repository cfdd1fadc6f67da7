package aggregate

import (
	"time"

	"prism-dashboard/domain"
)

// Summarize builds the headline statistics for callerID over projects and
// their tasks at now.
func Summarize(projects []domain.Project, tasks []domain.Task, callerID string, now time.Time) domain.Summary {
	s := domain.Summary{
		TotalProjects: len(projects),
		TotalTasks:    len(tasks),
	}

	for _, p := range projects {
		switch p.Status {
		case domain.ProjectPlanning:
			s.ProjectsByStatus.Planning++
		case domain.ProjectActive:
			s.ProjectsByStatus.Active++
		case domain.ProjectOnHold:
			s.ProjectsByStatus.OnHold++
		case domain.ProjectCompleted:
			s.ProjectsByStatus.Completed++
		}
	}

	windowStart := now.Add(-RecentWindow)
	for _, t := range tasks {
		switch t.Status {
		case domain.TaskNotStarted:
			s.TasksByStatus.NotStarted++
		case domain.TaskInProgress:
			s.TasksByStatus.InProgress++
		case domain.TaskCompleted:
			s.TasksByStatus.Completed++
		}

		switch t.Priority {
		case domain.PriorityNone:
			s.TasksByPriority.None++
		case domain.PriorityLow:
			s.TasksByPriority.Low++
		case domain.PriorityMedium:
			s.TasksByPriority.Medium++
		case domain.PriorityHigh:
			s.TasksByPriority.High++
		}

		if callerID != "" && t.AssigneeID == callerID {
			s.MyTasks++
		}
		if t.Overdue(now) {
			s.OverdueTasks++
		}
		if !t.CreatedAt.Before(windowStart) {
			s.RecentActivity.TasksCreated++
		}
		// Completion time is not recorded; the last update stands in for it.
		if t.Status == domain.TaskCompleted && !t.UpdatedAt.Before(windowStart) {
			s.RecentActivity.TasksCompleted++
		}
	}

	s.CompletionRate = Percent(s.TasksByStatus.Completed, s.TotalTasks)
	return s
}
