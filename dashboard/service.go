// Package dashboard serves the four dashboard aggregates through the
// cache-aside gateway.
package dashboard

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"prism-dashboard/access"
	"prism-dashboard/aggregate"
	"prism-dashboard/cache"
	"prism-dashboard/domain"
)

// DefaultTTL applies to every dashboard aggregate, empty ones included.
const DefaultTTL = 300 * time.Second

// Cache key namespaces, one per aggregate.
const (
	keyNamespace     = "dashboard"
	SummaryQuery     = keyNamespace + ".summary"
	StatusQuery      = keyNamespace + ".status"
	PriorityQuery    = keyNamespace + ".priority"
	WeeklyTrendQuery = keyNamespace + ".trend"
)

// ScopeResolver yields the projects a caller may aggregate over.
type ScopeResolver interface {
	Resolve(ctx context.Context, userID string, role domain.Role) (access.Scope, error)
}

// TaskStore fetches the task data behind the aggregates.
type TaskStore interface {
	FindTasks(ctx context.Context, filter domain.TaskFilter) ([]domain.Task, error)
	StatusCounts(ctx context.Context, projectIDs []string) ([]domain.StatusCount, error)
}

// Service computes dashboard aggregates. It only reads project and task state.
type Service struct {
	scopes ScopeResolver
	tasks  TaskStore
	cache  *cache.Gateway
	ttl    time.Duration
	logger *log.Logger
	now    func() time.Time
}

// NewService wires a Service. A ttl <= 0 selects DefaultTTL.
func NewService(scopes ScopeResolver, tasks TaskStore, gw *cache.Gateway, ttl time.Duration, logger *log.Logger) *Service {
	if scopes == nil || tasks == nil || gw == nil {
		panic("dashboard.NewService: missing dependency")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Service{scopes: scopes, tasks: tasks, cache: gw, ttl: ttl, logger: logger, now: time.Now}
}

// request is what an aggregate sees once the scope is known.
type request struct {
	userID string
	scope  access.Scope
	now    time.Time
}

// query describes one dashboard aggregate.
type query[T any] struct {
	name      string
	empty     func(now time.Time) T
	aggregate func(ctx context.Context, s *Service, r request) (T, error)
}

var summaryQuery = query[domain.Summary]{
	name:  SummaryQuery,
	empty: func(time.Time) domain.Summary { return domain.Summary{} },
	aggregate: func(ctx context.Context, s *Service, r request) (domain.Summary, error) {
		tasks, err := s.tasks.FindTasks(ctx, domain.TaskFilter{ProjectIDs: r.scope.ProjectIDs()})
		if err != nil {
			return domain.Summary{}, err
		}
		return aggregate.Summarize(r.scope.Projects(), tasks, r.userID, r.now), nil
	},
}

var statusQuery = query[domain.StatusDistribution]{
	name:  StatusQuery,
	empty: func(time.Time) domain.StatusDistribution { return aggregate.StatusDistribution(nil) },
	aggregate: func(ctx context.Context, s *Service, r request) (domain.StatusDistribution, error) {
		counts, err := s.tasks.StatusCounts(ctx, r.scope.ProjectIDs())
		if err != nil {
			return domain.StatusDistribution{}, err
		}
		return aggregate.StatusDistributionFromCounts(counts), nil
	},
}

var priorityQuery = query[domain.PriorityDistribution]{
	name:  PriorityQuery,
	empty: func(time.Time) domain.PriorityDistribution { return aggregate.PriorityDistribution(nil) },
	aggregate: func(ctx context.Context, s *Service, r request) (domain.PriorityDistribution, error) {
		tasks, err := s.tasks.FindTasks(ctx, domain.TaskFilter{ProjectIDs: r.scope.ProjectIDs()})
		if err != nil {
			return domain.PriorityDistribution{}, err
		}
		return aggregate.PriorityDistribution(tasks), nil
	},
}

var weeklyTrendQuery = query[domain.WeeklyTrend]{
	name:  WeeklyTrendQuery,
	empty: func(now time.Time) domain.WeeklyTrend { return aggregate.WeeklyTrend(nil, now) },
	aggregate: func(ctx context.Context, s *Service, r request) (domain.WeeklyTrend, error) {
		tasks, err := s.tasks.FindTasks(ctx, domain.TaskFilter{
			ProjectIDs:   r.scope.ProjectIDs(),
			TouchedSince: aggregate.TrendStart(r.now),
		})
		if err != nil {
			return domain.WeeklyTrend{}, err
		}
		return aggregate.WeeklyTrend(tasks, r.now), nil
	},
}

// Summary returns the headline statistics visible to the caller.
func (s *Service) Summary(ctx context.Context, userID string, role domain.Role) (domain.Summary, error) {
	return run(ctx, s, summaryQuery, userID, role)
}

// StatusDistribution returns the share of tasks per status.
func (s *Service) StatusDistribution(ctx context.Context, userID string, role domain.Role) (domain.StatusDistribution, error) {
	return run(ctx, s, statusQuery, userID, role)
}

// PriorityDistribution returns the share of tasks per priority.
func (s *Service) PriorityDistribution(ctx context.Context, userID string, role domain.Role) (domain.PriorityDistribution, error) {
	return run(ctx, s, priorityQuery, userID, role)
}

// WeeklyTrend returns daily created/completed counts for the last seven days.
func (s *Service) WeeklyTrend(ctx context.Context, userID string, role domain.Role) (domain.WeeklyTrend, error) {
	return run(ctx, s, weeklyTrendQuery, userID, role)
}

// cacheKey is queryType:userID:role.
func cacheKey(queryType, userID string, role domain.Role) string {
	return cache.Key(queryType, userID, role.String())
}

func run[T any](ctx context.Context, s *Service, q query[T], userID string, role domain.Role) (T, error) {
	return cache.GetOrCompute(ctx, s.cache, cacheKey(q.name, userID, role), s.ttl, func(ctx context.Context) (T, error) {
		start := time.Now()
		now := s.now()
		scope, err := s.scopes.Resolve(ctx, userID, role)
		if err != nil {
			var zero T
			return zero, err
		}
		fields := log.Fields{"query": q.name, "user": userID, "role": role.String(), "projects": scope.Len()}
		if scope.Empty() {
			s.logger.WithFields(fields).Debug("empty dashboard scope")
			return q.empty(now), nil
		}
		result, err := q.aggregate(ctx, s, request{userID: userID, scope: scope, now: now})
		if err != nil {
			return result, err
		}
		fields["compute_ms"] = float64(time.Since(start)) / float64(time.Millisecond)
		s.logger.WithFields(fields).Debug("dashboard aggregate computed")
		return result, nil
	})
}
