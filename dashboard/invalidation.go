package dashboard

import (
	"context"
	"errors"

	log "github.com/sirupsen/logrus"

	"prism-dashboard/cache"
	"prism-dashboard/domain"
)

// Invalidator drops cached aggregates made stale by a project or task change.
type Invalidator struct {
	cache  *cache.Gateway
	logger *log.Logger
}

// NewInvalidator creates an Invalidator over gw.
func NewInvalidator(gw *cache.Gateway, logger *log.Logger) *Invalidator {
	if gw == nil {
		panic("dashboard.NewInvalidator: gateway is nil")
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Invalidator{cache: gw, logger: logger}
}

// allPattern matches every dashboard entry.
func allPattern() string { return keyNamespace + ".*" }

// rolePattern matches every dashboard entry computed for role.
func rolePattern(role domain.Role) string {
	return keyNamespace + ".*:*:" + cache.Segment(role.String())
}

// userPattern matches every dashboard entry computed for userID.
func userPattern(userID string) string {
	return keyNamespace + ".*:" + cache.Segment(userID) + ":*"
}

// Invalidate removes the entries that may aggregate over the changed project:
// everything when the project is or was public, otherwise admin entries plus
// those of the owner, members and removed members. It returns the number of
// keys removed.
func (i *Invalidator) Invalidate(ctx context.Context, c domain.Change) (int, error) {
	patterns := []string{allPattern()}
	if !c.Public() {
		users := c.AffectedUsers()
		patterns = make([]string, 0, 1+len(users))
		patterns = append(patterns, rolePattern(domain.RoleAdmin))
		for _, u := range users {
			patterns = append(patterns, userPattern(u))
		}
	}

	deleted := 0
	var errs []error
	for _, p := range patterns {
		n, err := i.cache.InvalidateMatching(ctx, p)
		deleted += n
		if err != nil {
			errs = append(errs, err)
		}
	}
	entry := i.logger.WithFields(log.Fields{
		"kind":     c.Kind,
		"project":  c.ProjectID,
		"patterns": len(patterns),
		"deleted":  deleted,
	})
	if len(errs) > 0 {
		err := errors.Join(errs...)
		entry.WithError(err).Error("dashboard cache invalidation failed")
		return deleted, err
	}
	entry.Debug("dashboard cache invalidated")
	return deleted, nil
}

// InvalidateUser drops every cached aggregate for one user, e.g. after a role
// change.
func (i *Invalidator) InvalidateUser(ctx context.Context, userID string) (int, error) {
	return i.cache.InvalidateMatching(ctx, userPattern(userID))
}

// InvalidateAll drops every cached dashboard aggregate.
func (i *Invalidator) InvalidateAll(ctx context.Context) (int, error) {
	return i.cache.InvalidateMatching(ctx, allPattern())
}
