package domain

import "time"

// ProjectFilter selects projects from a store. All selects every project and
// ignores VisibleTo. Otherwise the filter selects projects owned by VisibleTo,
// listing VisibleTo as a member, or with public visibility; an empty VisibleTo
// matches no owner or member, leaving only public projects.
type ProjectFilter struct {
	All       bool
	VisibleTo string
}

// Matches reports whether p satisfies the filter.
func (f ProjectFilter) Matches(p Project) bool {
	return f.All || p.VisibleTo(f.VisibleTo)
}

// TaskFilter selects tasks belonging to ProjectIDs. A non-zero TouchedSince
// further restricts to tasks created or updated at or after that instant.
type TaskFilter struct {
	ProjectIDs   []string
	TouchedSince time.Time
}

// Matches reports whether t satisfies the filter.
func (f TaskFilter) Matches(t Task) bool {
	found := false
	for _, id := range f.ProjectIDs {
		if id == t.ProjectID {
			found = true
			break
		}
	}
	if !found {
		return false
	}
	if f.TouchedSince.IsZero() {
		return true
	}
	return !t.CreatedAt.Before(f.TouchedSince) || !t.UpdatedAt.Before(f.TouchedSince)
}
