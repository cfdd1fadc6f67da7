package storage

import (
	"strings"
	"time"
)

// quote renders s as an OData string literal.
func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func eqFilter(field, value string) string {
	return field + " eq " + quote(value)
}

func partitionFilter(pk string) string {
	return eqFilter("PartitionKey", pk)
}

func datetime(t time.Time) string {
	return "datetime'" + t.UTC().Format(time.RFC3339Nano) + "'"
}

// taskFilter selects one project partition, optionally narrowed to tasks
// created or updated at or after since.
func taskFilter(projectID string, since time.Time) string {
	f := partitionFilter(projectID)
	if since.IsZero() {
		return f
	}
	d := datetime(since)
	return f + " and (CreatedAt ge " + d + " or UpdatedAt ge " + d + ")"
}
