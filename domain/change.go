package domain

// ChangeKind names the mutation that produced a Change.
type ChangeKind string

const (
	ProjectCreated    ChangeKind = "project-created"
	ProjectUpdated    ChangeKind = "project-updated"
	ProjectDeleted    ChangeKind = "project-deleted"
	VisibilityChanged ChangeKind = "visibility-changed"
	MembersChanged    ChangeKind = "members-changed"
	TaskCreated       ChangeKind = "task-created"
	TaskUpdated       ChangeKind = "task-updated"
	TaskDeleted       ChangeKind = "task-deleted"
)

// Change describes a project or task mutation made by the write side. It
// carries enough of the project's access data to work out which cached
// aggregates went stale.
type Change struct {
	ID                 string     `json:"id,omitempty"`
	Kind               ChangeKind `json:"kind"`
	ProjectID          string     `json:"projectId"`
	TaskID             string     `json:"taskId,omitempty"`
	OwnerID            string     `json:"ownerId"`
	Members            []string   `json:"members,omitempty"`
	RemovedMembers     []string   `json:"removedMembers,omitempty"`
	Visibility         Visibility `json:"visibility"`
	PreviousVisibility Visibility `json:"previousVisibility,omitempty"`
	Timestamp          int64      `json:"timestamp"`
}

// Public reports whether the project was readable by everyone before or after
// the change.
func (c Change) Public() bool {
	return c.Visibility == VisibilityPublic || c.PreviousVisibility == VisibilityPublic
}

// AffectedUsers returns the owner, current members and removed members, each
// once.
func (c Change) AffectedUsers() []string {
	seen := make(map[string]struct{}, 1+len(c.Members)+len(c.RemovedMembers))
	users := make([]string, 0, 1+len(c.Members)+len(c.RemovedMembers))
	add := func(id string) {
		if id == "" {
			return
		}
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		users = append(users, id)
	}
	add(c.OwnerID)
	for _, m := range c.Members {
		add(m)
	}
	for _, m := range c.RemovedMembers {
		add(m)
	}
	return users
}
