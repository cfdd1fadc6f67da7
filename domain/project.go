package domain

import "time"

// Visibility controls who may read a project.
type Visibility string

const (
	VisibilityPrivate Visibility = "private"
	VisibilityTeam    Visibility = "team"
	VisibilityPublic  Visibility = "public"
)

// ProjectStatus is the lifecycle state of a project.
type ProjectStatus string

const (
	ProjectPlanning  ProjectStatus = "planning"
	ProjectActive    ProjectStatus = "active"
	ProjectOnHold    ProjectStatus = "on_hold"
	ProjectCompleted ProjectStatus = "completed"
)

// ProjectStatuses lists every project status in display order.
var ProjectStatuses = [...]ProjectStatus{ProjectPlanning, ProjectActive, ProjectOnHold, ProjectCompleted}

// Project groups tasks and owns their access control.
type Project struct {
	ID         string        `json:"id"`
	Name       string        `json:"name"`
	OwnerID    string        `json:"ownerId"`
	Members    []string      `json:"members"`
	Visibility Visibility    `json:"visibility"`
	Status     ProjectStatus `json:"status"`
	CreatedAt  time.Time     `json:"createdAt"`
	UpdatedAt  time.Time     `json:"updatedAt"`
}

// VisibleTo reports whether userID may read the project without admin rights.
func (p Project) VisibleTo(userID string) bool {
	if p.Visibility == VisibilityPublic {
		return true
	}
	if userID == "" {
		return false
	}
	return p.OwnerID == userID || p.HasMember(userID)
}

// HasMember reports whether userID is listed as a member.
func (p Project) HasMember(userID string) bool {
	for _, m := range p.Members {
		if m == userID {
			return true
		}
	}
	return false
}
