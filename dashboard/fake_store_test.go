package dashboard

import (
	"context"
	"sync"

	"prism-dashboard/domain"
)

// fakeStore evaluates filters over in-memory fixtures and counts calls.
type fakeStore struct {
	mu       sync.Mutex
	projects []domain.Project
	tasks    []domain.Task
	err      error

	projectCalls int
	taskCalls    int
	countCalls   int
	taskFilters  []domain.TaskFilter
}

func (f *fakeStore) FindProjects(_ context.Context, filter domain.ProjectFilter) ([]domain.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.projectCalls++
	if f.err != nil {
		return nil, f.err
	}
	var out []domain.Project
	for _, p := range f.projects {
		if filter.Matches(p) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeStore) FindTasks(_ context.Context, filter domain.TaskFilter) ([]domain.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.taskCalls++
	f.taskFilters = append(f.taskFilters, filter)
	if f.err != nil {
		return nil, f.err
	}
	var out []domain.Task
	for _, t := range f.tasks {
		if filter.Matches(t) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeStore) StatusCounts(_ context.Context, projectIDs []string) ([]domain.StatusCount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.countCalls++
	if f.err != nil {
		return nil, f.err
	}
	filter := domain.TaskFilter{ProjectIDs: projectIDs}
	counts := map[domain.TaskStatus]int{}
	for _, t := range f.tasks {
		if filter.Matches(t) {
			counts[t.Status]++
		}
	}
	out := make([]domain.StatusCount, 0, len(counts))
	for st, n := range counts {
		out = append(out, domain.StatusCount{Status: st, Count: n})
	}
	return out, nil
}

func (f *fakeStore) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.projectCalls + f.taskCalls + f.countCalls
}
