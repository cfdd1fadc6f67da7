// Package cache implements the cache-aside gateway used by the dashboard
// read path and the key-value stores behind it.
package cache

import (
	"context"
	"strings"
	"time"
)

// Store is the key-value capability the gateway needs. Get reports a missing
// key with ok == false and a nil error; any non-nil error means the store could
// not be read.
type Store interface {
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	// DeleteMatching removes every key matching a glob pattern (Redis MATCH
	// syntax) and returns how many were removed.
	DeleteMatching(ctx context.Context, pattern string) (int, error)
}

const keySeparator = ":"

var segmentEscaper = strings.NewReplacer(
	"%", "%25",
	":", "%3A",
	"*", "%2A",
	"?", "%3F",
	"[", "%5B",
	"]", "%5D",
	"\\", "%5C",
	"/", "%2F",
)

// Key builds queryType:callerID:discriminators... Segments are escaped so a
// caller ID or filter value can neither alias another key nor act as a glob.
func Key(queryType, callerID string, discriminators ...string) string {
	var b strings.Builder
	b.WriteString(segmentEscaper.Replace(queryType))
	b.WriteString(keySeparator)
	b.WriteString(segmentEscaper.Replace(callerID))
	for _, d := range discriminators {
		b.WriteString(keySeparator)
		b.WriteString(segmentEscaper.Replace(d))
	}
	return b.String()
}

// Segment escapes a single key segment for use inside a hand-built pattern.
func Segment(s string) string {
	return segmentEscaper.Replace(s)
}

var globEscaper = strings.NewReplacer(
	"\\", "\\\\",
	"*", "\\*",
	"?", "\\?",
	"[", "\\[",
	"]", "\\]",
)

// PrefixPattern returns a pattern matching every key that starts with prefix.
func PrefixPattern(prefix string) string {
	return globEscaper.Replace(prefix) + "*"
}
