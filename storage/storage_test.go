package storage

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"prism-dashboard/domain"
)

// fakeTable answers List by exact filter string and Get by pk/rk.
type fakeTable struct {
	mu      sync.Mutex
	lists   map[string][][]byte
	rows    map[string][]byte
	listErr error
	filters []string
	selects []string
}

func newFakeTable() *fakeTable {
	return &fakeTable{lists: map[string][][]byte{}, rows: map[string][]byte{}}
}

func (f *fakeTable) List(_ context.Context, filter, sel string) ([][]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.filters = append(f.filters, filter)
	f.selects = append(f.selects, sel)
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.lists[filter], nil
}

func (f *fakeTable) Get(_ context.Context, pk, rk string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[pk+"/"+rk]
	if !ok {
		return nil, ErrNotFound
	}
	return row, nil
}

func rows(entities ...string) [][]byte {
	out := make([][]byte, len(entities))
	for i, e := range entities {
		out[i] = []byte(e)
	}
	return out
}

const (
	ownedProject   = `{"PartitionKey":"alice","RowKey":"p1","Name":"Alpha","Members":"[]","Visibility":"private","Status":"active","CreatedAt":"2024-05-01T10:00:00Z","UpdatedAt":"2024-05-02T10:00:00Z"}`
	sharedProject  = `{"PartitionKey":"bob","RowKey":"p2","Name":"Beta","Members":"[\"alice\"]","Visibility":"team","Status":"planning"}`
	publicProject  = `{"PartitionKey":"carol","RowKey":"p3","Name":"Gamma","Visibility":"public","Status":"on_hold"}`
	removedProject = `{"PartitionKey":"dave","RowKey":"p4","Name":"Delta","Members":"[]","Visibility":"team","Status":"active"}`
)

func newTestTableStore() (*TableStore, *fakeTable, *fakeTable, *fakeTable) {
	projects, members, tasks := newFakeTable(), newFakeTable(), newFakeTable()
	return &TableStore{projects: projects, members: members, tasks: tasks, fanOut: 2}, projects, members, tasks
}

func TestFindProjectsMergesOwnedSharedAndPublic(t *testing.T) {
	s, projects, members, _ := newTestTableStore()
	projects.lists["PartitionKey eq 'alice'"] = rows(ownedProject)
	projects.lists["Visibility eq 'public'"] = rows(publicProject, ownedProject)
	members.lists["PartitionKey eq 'alice'"] = rows(
		`{"PartitionKey":"alice","RowKey":"p2","OwnerID":"bob"}`,
		`{"PartitionKey":"alice","RowKey":"p4","OwnerID":"dave"}`,
		`{"PartitionKey":"alice","RowKey":"gone","OwnerID":"erin"}`,
	)
	projects.rows["bob/p2"] = []byte(sharedProject)
	// Stale index row: alice is no longer a member of p4.
	projects.rows["dave/p4"] = []byte(removedProject)

	got, err := s.FindProjects(context.Background(), domain.ProjectFilter{VisibleTo: "alice"})
	if err != nil {
		t.Fatalf("FindProjects: %v", err)
	}
	var ids []string
	for _, p := range got {
		ids = append(ids, p.ID)
	}
	if want := []string{"p1", "p2", "p3"}; !reflect.DeepEqual(ids, want) {
		t.Fatalf("ids = %v, want %v", ids, want)
	}
	if got[1].OwnerID != "bob" || !reflect.DeepEqual(got[1].Members, []string{"alice"}) {
		t.Fatalf("unexpected shared project %+v", got[1])
	}
}

func TestFindProjectsAllListsEverything(t *testing.T) {
	s, projects, members, _ := newTestTableStore()
	projects.lists[""] = rows(ownedProject, sharedProject, publicProject)

	got, err := s.FindProjects(context.Background(), domain.ProjectFilter{All: true})
	if err != nil {
		t.Fatalf("FindProjects: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 projects, got %d", len(got))
	}
	if len(members.filters) != 0 {
		t.Fatalf("unfiltered listing must not consult the membership index")
	}
}

func TestFindProjectsWithoutUserReturnsPublicOnly(t *testing.T) {
	s, projects, members, _ := newTestTableStore()
	projects.lists[""] = rows(ownedProject, sharedProject, publicProject)
	projects.lists["Visibility eq 'public'"] = rows(publicProject)

	got, err := s.FindProjects(context.Background(), domain.ProjectFilter{})
	if err != nil {
		t.Fatalf("FindProjects: %v", err)
	}
	if len(got) != 1 || got[0].ID != "p3" {
		t.Fatalf("expected only the public project, got %+v", got)
	}
	if want := []string{"Visibility eq 'public'"}; !reflect.DeepEqual(projects.filters, want) {
		t.Fatalf("project queries = %q, want %q", projects.filters, want)
	}
	if len(members.filters) != 0 {
		t.Fatalf("membership index must not be queried without a user")
	}
}

func TestFindProjectsPropagatesErrors(t *testing.T) {
	s, _, members, _ := newTestTableStore()
	boom := errors.New("throttled")
	members.listErr = boom

	if _, err := s.FindProjects(context.Background(), domain.ProjectFilter{VisibleTo: "alice"}); !errors.Is(err, boom) {
		t.Fatalf("expected %v, got %v", boom, err)
	}
}

func TestFindTasksQueriesEachPartition(t *testing.T) {
	s, _, _, tasks := newTestTableStore()
	since := time.Date(2024, 5, 9, 0, 0, 0, 0, time.UTC)
	f1 := taskFilter("p1", since)
	f2 := taskFilter("p2", since)
	tasks.lists[f1] = rows(`{"PartitionKey":"p1","RowKey":"t1","Status":"completed","Priority":"high","CreatedAt":"2024-05-10T08:00:00Z","UpdatedAt":"2024-05-11T08:00:00Z"}`)
	tasks.lists[f2] = rows(
		`{"PartitionKey":"p2","RowKey":"t2","Status":"in_progress","Priority":"low","AssigneeID":"alice","DueDate":"2024-05-12T00:00:00Z"}`,
		`{"PartitionKey":"p2","RowKey":"t3","Status":"not_started","Priority":"none"}`,
	)

	got, err := s.FindTasks(context.Background(), domain.TaskFilter{ProjectIDs: []string{"p1", "p2"}, TouchedSince: since})
	if err != nil {
		t.Fatalf("FindTasks: %v", err)
	}
	if len(got) != 3 || got[0].ID != "t1" || got[1].ID != "t2" || got[2].ID != "t3" {
		t.Fatalf("unexpected tasks %+v", got)
	}
	if got[1].ProjectID != "p2" || got[1].AssigneeID != "alice" || got[1].DueDate == nil {
		t.Fatalf("task fields not decoded: %+v", got[1])
	}
	if !got[0].UpdatedAt.Equal(time.Date(2024, 5, 11, 8, 0, 0, 0, time.UTC)) {
		t.Fatalf("UpdatedAt = %v", got[0].UpdatedAt)
	}
}

func TestFindTasksWithoutProjectsDoesNothing(t *testing.T) {
	s, _, _, tasks := newTestTableStore()
	got, err := s.FindTasks(context.Background(), domain.TaskFilter{})
	if err != nil || len(got) != 0 {
		t.Fatalf("got %v, %v", got, err)
	}
	if len(tasks.filters) != 0 {
		t.Fatalf("expected no queries, got %v", tasks.filters)
	}
}

func TestStatusCountsSelectsStatusOnly(t *testing.T) {
	s, _, _, tasks := newTestTableStore()
	tasks.lists["PartitionKey eq 'p1'"] = rows(`{"Status":"completed"}`, `{"Status":"completed"}`)
	tasks.lists["PartitionKey eq 'p2'"] = rows(`{"Status":"not_started"}`)

	got, err := s.StatusCounts(context.Background(), []string{"p1", "p2"})
	if err != nil {
		t.Fatalf("StatusCounts: %v", err)
	}
	want := []domain.StatusCount{
		{Status: domain.TaskCompleted, Count: 2},
		{Status: domain.TaskNotStarted, Count: 1},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
	for _, sel := range tasks.selects {
		if sel != "Status" {
			t.Fatalf("expected Status projection, got %q", sel)
		}
	}
}

func TestDecodeProjectEntityRejectsBadMembers(t *testing.T) {
	_, err := decodeProjectEntity([]byte(`{"PartitionKey":"a","RowKey":"p","Members":"not-json"}`))
	if err == nil {
		t.Fatalf("expected error")
	}
}

func TestODataFilters(t *testing.T) {
	tests := []struct {
		name string
		got  string
		want string
	}{
		{"partition", partitionFilter("alice"), "PartitionKey eq 'alice'"},
		{"quote escaped", partitionFilter("o'brien"), "PartitionKey eq 'o''brien'"},
		{"task no window", taskFilter("p1", time.Time{}), "PartitionKey eq 'p1'"},
		{
			"task window",
			taskFilter("p1", time.Date(2024, 5, 9, 2, 0, 0, 0, time.FixedZone("x", 2*3600))),
			"PartitionKey eq 'p1' and (CreatedAt ge datetime'2024-05-09T00:00:00Z' or UpdatedAt ge datetime'2024-05-09T00:00:00Z')",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Fatalf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
	if strings.Contains(eqFilter("Visibility", "public"), "\"") {
		t.Fatalf("OData literals use single quotes")
	}
}
