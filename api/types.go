package api

import (
	"context"

	"prism-dashboard/domain"
)

// Authenticator resolves the caller from an Authorization header.
type Authenticator interface {
	PrincipalFromAuthHeader(string) (Principal, error)
}

// Dashboard computes the dashboard aggregates for a caller.
type Dashboard interface {
	Summary(ctx context.Context, userID string, role domain.Role) (domain.Summary, error)
	StatusDistribution(ctx context.Context, userID string, role domain.Role) (domain.StatusDistribution, error)
	PriorityDistribution(ctx context.Context, userID string, role domain.Role) (domain.PriorityDistribution, error)
	WeeklyTrend(ctx context.Context, userID string, role domain.Role) (domain.WeeklyTrend, error)
}

// Pinger reports whether a backend is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type dataResponse[T any] struct {
	Data T `json:"data"`
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}
