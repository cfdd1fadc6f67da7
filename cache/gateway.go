package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	log "github.com/sirupsen/logrus"
)

// Gateway performs cache-aside reads and explicit invalidation over a Store.
// Two concurrent misses for the same key both compute and both write; the
// last write wins.
type Gateway struct {
	store  Store
	logger *log.Logger
}

// NewGateway wraps store. A nil logger falls back to the logrus standard logger.
func NewGateway(store Store, logger *log.Logger) *Gateway {
	if store == nil {
		panic("cache.NewGateway: store is nil")
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Gateway{store: store, logger: logger}
}

// GetOrCompute returns the cached value under key, or computes, stores and
// returns it. On a hit compute is never called. Errors reading the store are
// returned as is and compute is skipped; an undecodable entry is dropped and
// recomputed. A failed write is logged and the fresh value still returned.
// A ttl <= 0 disables the write.
func GetOrCompute[T any](ctx context.Context, g *Gateway, key string, ttl time.Duration, compute func(context.Context) (T, error)) (T, error) {
	var zero T
	query := queryLabel(key)

	data, ok, err := g.store.Get(ctx, key)
	if err != nil {
		lookupsTotal.WithLabelValues(query, "error").Inc()
		return zero, fmt.Errorf("cache read %s: %w", key, err)
	}
	if ok {
		var cached T
		if err := sonic.Unmarshal(data, &cached); err == nil {
			lookupsTotal.WithLabelValues(query, "hit").Inc()
			return cached, nil
		}
		lookupsTotal.WithLabelValues(query, "decode_error").Inc()
		g.logger.WithField("key", key).Warn("dropping undecodable cache entry")
		if err := g.store.Delete(ctx, key); err != nil {
			g.logger.WithError(err).WithField("key", key).Warn("failed to delete undecodable cache entry")
		}
	} else {
		lookupsTotal.WithLabelValues(query, "miss").Inc()
	}

	value, err := compute(ctx)
	if err != nil {
		return zero, err
	}
	if ttl <= 0 {
		return value, nil
	}

	payload, err := sonic.Marshal(value)
	if err != nil {
		writesTotal.WithLabelValues(query, "error").Inc()
		g.logger.WithError(err).WithField("key", key).Error("failed to encode cache entry")
		return value, nil
	}
	if err := g.store.Set(ctx, key, payload, ttl); err != nil {
		writesTotal.WithLabelValues(query, "error").Inc()
		g.logger.WithError(err).WithField("key", key).Error("failed to store cache entry")
		return value, nil
	}
	writesTotal.WithLabelValues(query, "ok").Inc()
	return value, nil
}

// Invalidate deletes the given keys.
func (g *Gateway) Invalidate(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := g.store.Delete(ctx, keys...); err != nil {
		return fmt.Errorf("cache delete: %w", err)
	}
	invalidatedKeysTotal.Add(float64(len(keys)))
	return nil
}

// InvalidateMatching deletes every key matching pattern and returns the count.
func (g *Gateway) InvalidateMatching(ctx context.Context, pattern string) (int, error) {
	n, err := g.store.DeleteMatching(ctx, pattern)
	if err != nil {
		return n, fmt.Errorf("cache delete matching %q: %w", pattern, err)
	}
	invalidatedKeysTotal.Add(float64(n))
	if n > 0 {
		g.logger.WithFields(log.Fields{"pattern": pattern, "deleted": n}).Debug("cache entries invalidated")
	}
	return n, nil
}
