package domain

import "time"

// TaskStatus is the workflow state of a task.
type TaskStatus string

const (
	TaskNotStarted TaskStatus = "not_started"
	TaskInProgress TaskStatus = "in_progress"
	TaskCompleted  TaskStatus = "completed"
)

// TaskStatuses lists every status in display order.
var TaskStatuses = [...]TaskStatus{TaskNotStarted, TaskInProgress, TaskCompleted}

// TaskPriority ranks a task.
type TaskPriority string

const (
	PriorityNone   TaskPriority = "none"
	PriorityLow    TaskPriority = "low"
	PriorityMedium TaskPriority = "medium"
	PriorityHigh   TaskPriority = "high"
)

// TaskPriorities lists every priority in display order.
var TaskPriorities = [...]TaskPriority{PriorityNone, PriorityLow, PriorityMedium, PriorityHigh}

// Task represents a single work item. Tasks carry no access control of their
// own, visibility comes from the parent project.
type Task struct {
	ID         string       `json:"id"`
	ProjectID  string       `json:"projectId"`
	Status     TaskStatus   `json:"status"`
	Priority   TaskPriority `json:"priority"`
	AssigneeID string       `json:"assigneeId,omitempty"`
	DueDate    *time.Time   `json:"dueDate,omitempty"`
	CreatedAt  time.Time    `json:"createdAt"`
	UpdatedAt  time.Time    `json:"updatedAt"`
}

// Overdue reports whether the task is past due and still open at now.
func (t Task) Overdue(now time.Time) bool {
	return t.DueDate != nil && t.DueDate.Before(now) && t.Status != TaskCompleted
}

// StatusCount is a pre-aggregated number of tasks sharing a status.
type StatusCount struct {
	Status TaskStatus `json:"status"`
	Count  int        `json:"count"`
}
