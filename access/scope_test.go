package access

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"prism-dashboard/domain"
)

// memoryProjects evaluates filters the way a real store would.
type memoryProjects struct {
	projects []domain.Project
	filters  []domain.ProjectFilter
	err      error
}

func (m *memoryProjects) FindProjects(_ context.Context, filter domain.ProjectFilter) ([]domain.Project, error) {
	m.filters = append(m.filters, filter)
	if m.err != nil {
		return nil, m.err
	}
	var out []domain.Project
	for _, p := range m.projects {
		if filter.Matches(p) {
			out = append(out, p)
		}
	}
	return out, nil
}

func fixtureProjects() []domain.Project {
	return []domain.Project{
		{ID: "owned", OwnerID: "alice", Visibility: domain.VisibilityPrivate},
		{ID: "member", OwnerID: "bob", Members: []string{"alice"}, Visibility: domain.VisibilityTeam},
		{ID: "public", OwnerID: "carol", Visibility: domain.VisibilityPublic},
		{ID: "private", OwnerID: "carol", Members: []string{"dave"}, Visibility: domain.VisibilityPrivate},
		{ID: "all-three", OwnerID: "alice", Members: []string{"alice"}, Visibility: domain.VisibilityPublic},
	}
}

func TestResolveAdminUsesUnfilteredFetch(t *testing.T) {
	store := &memoryProjects{projects: fixtureProjects()}
	r := NewResolver(store)

	scope, err := r.Resolve(context.Background(), "root", domain.RoleAdmin)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(store.filters) != 1 || !store.filters[0].All {
		t.Fatalf("expected one unfiltered query, got %#v", store.filters)
	}
	if scope.Len() != len(fixtureProjects()) {
		t.Fatalf("expected every project in scope, got %v", scope.ProjectIDs())
	}
}

func TestResolveUserUnionOfOwnerMemberPublic(t *testing.T) {
	store := &memoryProjects{projects: fixtureProjects()}
	r := NewResolver(store)

	scope, err := r.Resolve(context.Background(), "alice", domain.RoleUser)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if want := (domain.ProjectFilter{VisibleTo: "alice"}); len(store.filters) != 1 || store.filters[0] != want {
		t.Fatalf("unexpected filters %#v", store.filters)
	}
	want := []string{"owned", "member", "public", "all-three"}
	if !reflect.DeepEqual(scope.ProjectIDs(), want) {
		t.Fatalf("got %v, want %v", scope.ProjectIDs(), want)
	}
}

func TestResolveExcludesPrivateIncludesPublicForStranger(t *testing.T) {
	store := &memoryProjects{projects: fixtureProjects()}
	r := NewResolver(store)

	scope, err := r.Resolve(context.Background(), "eve", domain.RoleUser)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	want := []string{"public", "all-three"}
	if !reflect.DeepEqual(scope.ProjectIDs(), want) {
		t.Fatalf("got %v, want %v", scope.ProjectIDs(), want)
	}
}

func TestResolveUserWithoutIDSeesOnlyPublic(t *testing.T) {
	store := &memoryProjects{projects: append(fixtureProjects(),
		domain.Project{ID: "ownerless", Visibility: domain.VisibilityPrivate})}
	r := NewResolver(store)

	scope, err := r.Resolve(context.Background(), "", domain.RoleUser)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(store.filters) != 1 || store.filters[0].All {
		t.Fatalf("empty user id must not issue an unfiltered query, got %#v", store.filters)
	}
	want := []string{"public", "all-three"}
	if !reflect.DeepEqual(scope.ProjectIDs(), want) {
		t.Fatalf("got %v, want %v", scope.ProjectIDs(), want)
	}
}

func TestNewScopeDeduplicates(t *testing.T) {
	scope := NewScope([]domain.Project{{ID: "a"}, {ID: "b"}, {ID: "a"}, {ID: "c"}, {ID: "b"}})
	if !reflect.DeepEqual(scope.ProjectIDs(), []string{"a", "b", "c"}) {
		t.Fatalf("unexpected ids %v", scope.ProjectIDs())
	}
	if len(scope.Projects()) != 3 {
		t.Fatalf("unexpected projects %v", scope.Projects())
	}
	if !NewScope(nil).Empty() {
		t.Fatalf("nil input must give an empty scope")
	}
}

func TestResolvePropagatesStoreErrors(t *testing.T) {
	boom := errors.New("table unavailable")
	r := NewResolver(&memoryProjects{err: boom})

	for _, role := range []domain.Role{domain.RoleAdmin, domain.RoleUser} {
		if _, err := r.Resolve(context.Background(), "u", role); err != boom {
			t.Fatalf("role %v: expected store error, got %v", role, err)
		}
	}
}

func TestResolveUnknownRoleFallsBackToUser(t *testing.T) {
	store := &memoryProjects{projects: fixtureProjects()}
	r := NewResolver(store)

	if _, err := r.Resolve(context.Background(), "alice", domain.Role(42)); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if store.filters[0].All {
		t.Fatalf("unknown role must not get the unfiltered scope")
	}
}
