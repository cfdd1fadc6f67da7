package cache

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	lookupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "prism_dashboard_cache_lookups_total",
		Help: "Cache lookups by query and result (hit, miss, decode_error, error)",
	}, []string{"query", "result"})

	writesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "prism_dashboard_cache_writes_total",
		Help: "Cache writes by query and result",
	}, []string{"query", "result"})

	invalidatedKeysTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "prism_dashboard_cache_invalidated_keys_total",
		Help: "Keys removed by explicit invalidation",
	})
)

// queryLabel is the key's first segment, the query namespace built by Key.
func queryLabel(key string) string {
	query, _, _ := strings.Cut(key, keySeparator)
	return query
}
