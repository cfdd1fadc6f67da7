// Package storage reads projects and tasks for the dashboard from Azure Tables
// or MongoDB and consumes the project change queue.
package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
	"golang.org/x/sync/errgroup"

	"prism-dashboard/domain"
)

// ErrNotFound is returned when a point lookup finds no entity.
var ErrNotFound = errors.New("storage: not found")

const defaultFanOut = 8

// TableNames names the tables backing a TableStore.
type TableNames struct {
	Projects string
	Members  string
	Tasks    string
}

// entityReader is the subset of table access TableStore needs.
type entityReader interface {
	List(ctx context.Context, filter, sel string) ([][]byte, error)
	Get(ctx context.Context, partitionKey, rowKey string) ([]byte, error)
}

// TableStore serves project and task reads from Azure Tables.
//
// Projects are partitioned by owner, the members table indexes
// member -> project, and tasks are partitioned by project.
type TableStore struct {
	svc      *aztables.ServiceClient
	projects entityReader
	members  entityReader
	tasks    entityReader
	fanOut   int
}

func tableClientOptions() *aztables.ClientOptions {
	return &aztables.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    3,
				TryTimeout:    time.Minute,
				RetryDelay:    time.Second,
				MaxRetryDelay: time.Second * 15,
				StatusCodes:   []int{408, 429, 500, 502, 503, 504},
			},
		},
	}
}

// NewTableStore creates a TableStore from a storage connection string.
func NewTableStore(connStr string, names TableNames) (*TableStore, error) {
	svc, err := aztables.NewServiceClientFromConnectionString(connStr, tableClientOptions())
	if err != nil {
		return nil, fmt.Errorf("table service: %w", err)
	}
	return &TableStore{
		svc:      svc,
		projects: tableReader{svc.NewClient(names.Projects)},
		members:  tableReader{svc.NewClient(names.Members)},
		tasks:    tableReader{svc.NewClient(names.Tasks)},
		fanOut:   defaultFanOut,
	}, nil
}

// FindProjects returns the projects matching filter. Without a user only
// public projects are returned.
func (s *TableStore) FindProjects(ctx context.Context, filter domain.ProjectFilter) ([]domain.Project, error) {
	if filter.All {
		return s.listProjects(ctx, "")
	}
	userID := filter.VisibleTo

	var owned, public []domain.Project
	var memberships [][]byte
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		public, err = s.listProjects(gctx, eqFilter("Visibility", string(domain.VisibilityPublic)))
		return err
	})
	if userID != "" {
		g.Go(func() error {
			var err error
			owned, err = s.listProjects(gctx, partitionFilter(userID))
			return err
		})
		g.Go(func() error {
			var err error
			memberships, err = s.members.List(gctx, partitionFilter(userID), "")
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	shared, err := s.memberProjects(ctx, memberships)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	var out []domain.Project
	for _, group := range [][]domain.Project{owned, shared, public} {
		for _, p := range group {
			if _, dup := seen[p.ID]; dup || !filter.Matches(p) {
				continue
			}
			seen[p.ID] = struct{}{}
			out = append(out, p)
		}
	}
	sortProjects(out)
	return out, nil
}

// memberProjects loads the projects referenced by membership index rows.
// Rows whose project no longer exists are skipped.
func (s *TableStore) memberProjects(ctx context.Context, rows [][]byte) ([]domain.Project, error) {
	refs := make([]membershipEntity, 0, len(rows))
	for _, row := range rows {
		ref, err := decodeMembershipEntity(row)
		if err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}

	found := make([]*domain.Project, len(refs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.fanOut)
	for i, ref := range refs {
		g.Go(func() error {
			data, err := s.projects.Get(gctx, ref.OwnerID, ref.RowKey)
			if errors.Is(err, ErrNotFound) {
				return nil
			}
			if err != nil {
				return err
			}
			p, err := decodeProjectEntity(data)
			if err != nil {
				return err
			}
			found[i] = &p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]domain.Project, 0, len(found))
	for _, p := range found {
		if p != nil {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (s *TableStore) listProjects(ctx context.Context, filter string) ([]domain.Project, error) {
	rows, err := s.projects.List(ctx, filter, "")
	if err != nil {
		return nil, err
	}
	projects := make([]domain.Project, 0, len(rows))
	for _, row := range rows {
		p, err := decodeProjectEntity(row)
		if err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, nil
}

// FindTasks returns the tasks of filter.ProjectIDs, querying each project
// partition concurrently. Results keep the order of ProjectIDs.
func (s *TableStore) FindTasks(ctx context.Context, filter domain.TaskFilter) ([]domain.Task, error) {
	perProject, err := s.eachProject(ctx, filter.ProjectIDs, func(ctx context.Context, projectID string) ([][]byte, error) {
		return s.tasks.List(ctx, taskFilter(projectID, filter.TouchedSince), "")
	})
	if err != nil {
		return nil, err
	}
	var tasks []domain.Task
	for _, rows := range perProject {
		for _, row := range rows {
			t, err := decodeTaskEntity(row)
			if err != nil {
				return nil, err
			}
			tasks = append(tasks, t)
		}
	}
	return tasks, nil
}

// StatusCounts counts tasks per status across projectIDs, fetching only the
// Status column.
func (s *TableStore) StatusCounts(ctx context.Context, projectIDs []string) ([]domain.StatusCount, error) {
	perProject, err := s.eachProject(ctx, projectIDs, func(ctx context.Context, projectID string) ([][]byte, error) {
		return s.tasks.List(ctx, partitionFilter(projectID), "Status")
	})
	if err != nil {
		return nil, err
	}
	counts := make(map[domain.TaskStatus]int)
	for _, rows := range perProject {
		for _, row := range rows {
			st, err := decodeTaskStatus(row)
			if err != nil {
				return nil, err
			}
			counts[st]++
		}
	}
	return statusCountRows(counts), nil
}

func (s *TableStore) eachProject(ctx context.Context, projectIDs []string, fetch func(context.Context, string) ([][]byte, error)) ([][][]byte, error) {
	results := make([][][]byte, len(projectIDs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.fanOut)
	for i, id := range projectIDs {
		g.Go(func() error {
			rows, err := fetch(gctx, id)
			if err != nil {
				return err
			}
			results[i] = rows
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Ping checks that the table service answers.
func (s *TableStore) Ping(ctx context.Context) error {
	top := int32(1)
	pager := s.svc.NewListTablesPager(&aztables.ListTablesOptions{Top: &top})
	if _, err := pager.NextPage(ctx); err != nil {
		return fmt.Errorf("ping tables: %w", err)
	}
	return nil
}

func statusCountRows(counts map[domain.TaskStatus]int) []domain.StatusCount {
	out := make([]domain.StatusCount, 0, len(counts))
	for st, n := range counts {
		out = append(out, domain.StatusCount{Status: st, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Status < out[j].Status })
	return out
}

func sortProjects(ps []domain.Project) {
	sort.SliceStable(ps, func(i, j int) bool { return ps[i].ID < ps[j].ID })
}

// tableReader adapts an aztables.Client to entityReader.
type tableReader struct {
	client *aztables.Client
}

func (r tableReader) List(ctx context.Context, filter, sel string) ([][]byte, error) {
	opts := &aztables.ListEntitiesOptions{}
	if filter != "" {
		opts.Filter = &filter
	}
	if sel != "" {
		opts.Select = &sel
	}
	pager := r.client.NewListEntitiesPager(opts)
	var rows [][]byte
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		rows = append(rows, resp.Entities...)
	}
	return rows, nil
}

func (r tableReader) Get(ctx context.Context, partitionKey, rowKey string) ([]byte, error) {
	resp, err := r.client.GetEntity(ctx, partitionKey, rowKey, nil)
	if err != nil {
		var respErr *azcore.ResponseError
		if errors.As(err, &respErr) && respErr.StatusCode == 404 {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return resp.Value, nil
}
