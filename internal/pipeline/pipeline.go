// Package pipeline holds the pure operations applied to a parsed batch of log
// records. None of them mutate their input.
package pipeline

import (
	"maps"
	"slices"
	"strings"

	"github.com/Nao-Mk2/logpipe/internal/model"
)

// DefaultLevel is the level FilterErrors selects.
const DefaultLevel = model.LevelError

// FilterByLevel returns the records whose level equals level exactly,
// in their original order.
func FilterByLevel(records []model.LogRecord, level string) []model.LogRecord {
	out := make([]model.LogRecord, 0)
	for _, r := range records {
		if r.Level == level {
			out = append(out, r)
		}
	}
	return out
}

// FilterErrors is FilterByLevel with DefaultLevel.
func FilterErrors(records []model.LogRecord) []model.LogRecord {
	return FilterByLevel(records, DefaultLevel)
}

// CountByLevel returns the number of records per distinct level.
func CountByLevel(records []model.LogRecord) map[string]int {
	counts := make(map[string]int)
	for _, r := range records {
		counts[r.Level]++
	}
	return counts
}

// SortByTimestamp returns a copy of records stably sorted by timestamp.
func SortByTimestamp(records []model.LogRecord) []model.LogRecord {
	out := make([]model.LogRecord, len(records))
	copy(out, records)
	slices.SortStableFunc(out, func(a, b model.LogRecord) int {
		return strings.Compare(a.Timestamp, b.Timestamp)
	})
	return out
}

// GroupByLevel buckets records by level. Each bucket keeps input order.
func GroupByLevel(records []model.LogRecord) map[string][]model.LogRecord {
	groups := make(map[string][]model.LogRecord)
	for _, r := range records {
		groups[r.Level] = append(groups[r.Level], r)
	}
	return groups
}

// Levels returns the keys of a count or group map in ascending order.
func Levels[V any](m map[string]V) []string {
	return slices.Sorted(maps.Keys(m))
}
