// Package access derives the set of projects a caller may aggregate over.
package access

import (
	"context"

	"prism-dashboard/domain"
)

// ProjectStore fetches projects.
type ProjectStore interface {
	FindProjects(ctx context.Context, filter domain.ProjectFilter) ([]domain.Project, error)
}

// Scope is the ordered, duplicate-free set of projects visible to one caller.
type Scope struct {
	projects []domain.Project
	ids      []string
}

// NewScope builds a scope, dropping repeated project IDs while keeping the
// first occurrence.
func NewScope(projects []domain.Project) Scope {
	seen := make(map[string]struct{}, len(projects))
	s := Scope{
		projects: make([]domain.Project, 0, len(projects)),
		ids:      make([]string, 0, len(projects)),
	}
	for _, p := range projects {
		if _, ok := seen[p.ID]; ok {
			continue
		}
		seen[p.ID] = struct{}{}
		s.projects = append(s.projects, p)
		s.ids = append(s.ids, p.ID)
	}
	return s
}

// Projects returns the projects in scope.
func (s Scope) Projects() []domain.Project { return s.projects }

// ProjectIDs returns the identifiers of the projects in scope.
func (s Scope) ProjectIDs() []string { return s.ids }

// Len is the number of projects in scope.
func (s Scope) Len() int { return len(s.ids) }

// Empty reports whether the caller can see no project at all.
func (s Scope) Empty() bool { return len(s.ids) == 0 }

// Strategy resolves the scope for one role.
type Strategy interface {
	Scope(ctx context.Context, userID string) (Scope, error)
}

// StrategyFunc adapts a function to Strategy.
type StrategyFunc func(ctx context.Context, userID string) (Scope, error)

func (f StrategyFunc) Scope(ctx context.Context, userID string) (Scope, error) { return f(ctx, userID) }

// AllProjects grants every project in the store.
func AllProjects(store ProjectStore) Strategy {
	return StrategyFunc(func(ctx context.Context, _ string) (Scope, error) {
		projects, err := store.FindProjects(ctx, domain.ProjectFilter{All: true})
		if err != nil {
			return Scope{}, err
		}
		return NewScope(projects), nil
	})
}

// VisibleProjects grants projects the user owns, is a member of, or that are
// public.
func VisibleProjects(store ProjectStore) Strategy {
	return StrategyFunc(func(ctx context.Context, userID string) (Scope, error) {
		projects, err := store.FindProjects(ctx, domain.ProjectFilter{VisibleTo: userID})
		if err != nil {
			return Scope{}, err
		}
		return NewScope(projects), nil
	})
}

// Resolver picks the scope strategy for a caller's role.
type Resolver struct {
	strategies map[domain.Role]Strategy
}

// NewResolver wires the standard strategies: admins see every project, users
// see what they own, belong to, or is public.
func NewResolver(store ProjectStore) *Resolver {
	if store == nil {
		panic("access.NewResolver: store is nil")
	}
	return &Resolver{strategies: map[domain.Role]Strategy{
		domain.RoleAdmin: AllProjects(store),
		domain.RoleUser:  VisibleProjects(store),
	}}
}

// Resolve returns the projects userID may aggregate over under role. Unknown
// roles fall back to the standard user strategy.
func (r *Resolver) Resolve(ctx context.Context, userID string, role domain.Role) (Scope, error) {
	s, ok := r.strategies[role]
	if !ok {
		s = r.strategies[domain.RoleUser]
	}
	return s.Scope(ctx, userID)
}
