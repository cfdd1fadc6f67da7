package domain

// TaskStatusCounts holds one counter per task status.
type TaskStatusCounts struct {
	NotStarted int `json:"not_started"`
	InProgress int `json:"in_progress"`
	Completed  int `json:"completed"`
}

// TaskPriorityCounts holds one counter per task priority.
type TaskPriorityCounts struct {
	None   int `json:"none"`
	Low    int `json:"low"`
	Medium int `json:"medium"`
	High   int `json:"high"`
}

// ProjectStatusCounts holds one counter per project status.
type ProjectStatusCounts struct {
	Planning  int `json:"planning"`
	Active    int `json:"active"`
	OnHold    int `json:"on_hold"`
	Completed int `json:"completed"`
}

// RecentActivity counts task activity over the trailing seven days.
// TasksCompleted is inferred from UpdatedAt on completed tasks, so a completed
// task that is merely edited inside the window is counted too.
type RecentActivity struct {
	TasksCreated   int `json:"tasksCreated"`
	TasksCompleted int `json:"tasksCompleted"`
}

// Summary is the headline dashboard aggregate.
type Summary struct {
	TotalProjects    int                 `json:"totalProjects"`
	TotalTasks       int                 `json:"totalTasks"`
	TasksByStatus    TaskStatusCounts    `json:"tasksByStatus"`
	TasksByPriority  TaskPriorityCounts  `json:"tasksByPriority"`
	ProjectsByStatus ProjectStatusCounts `json:"projectsByStatus"`
	CompletionRate   int                 `json:"completionRate"`
	MyTasks          int                 `json:"myTasks"`
	OverdueTasks     int                 `json:"overdueTasks"`
	RecentActivity   RecentActivity      `json:"recentActivity"`
}

// StatusBucket is one slice of the status distribution.
type StatusBucket struct {
	Status     TaskStatus `json:"status"`
	Count      int        `json:"count"`
	Percentage int        `json:"percentage"`
}

// StatusDistribution lists every task status with its share of the total.
type StatusDistribution struct {
	ByStatus []StatusBucket `json:"byStatus"`
	Total    int            `json:"total"`
}

// PriorityBucket is one slice of the priority distribution.
type PriorityBucket struct {
	Priority   TaskPriority `json:"priority"`
	Count      int          `json:"count"`
	Percentage int          `json:"percentage"`
}

// PriorityDistribution lists every task priority with its share of the total.
type PriorityDistribution struct {
	ByPriority []PriorityBucket `json:"byPriority"`
	Total      int              `json:"total"`
}

// TrendDay counts activity on one calendar day (UTC).
type TrendDay struct {
	Date      string `json:"date"`
	Created   int    `json:"created"`
	Completed int    `json:"completed"`
}

// TrendTotals sums a trend window.
type TrendTotals struct {
	Created   int `json:"created"`
	Completed int `json:"completed"`
}

// TrendAverages are rounded per-day means over a trend window.
type TrendAverages struct {
	CreatedPerDay   int `json:"createdPerDay"`
	CompletedPerDay int `json:"completedPerDay"`
}

// WeeklyTrend holds seven daily buckets ordered oldest to newest.
type WeeklyTrend struct {
	Days     []TrendDay    `json:"days"`
	Totals   TrendTotals   `json:"totals"`
	Averages TrendAverages `json:"averages"`
}
