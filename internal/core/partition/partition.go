package partition

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
)

// DefaultCount is the shard count shared with the producer side.
// Changing it orphans already-written days, so it is a deployment constant.
const DefaultCount = 16

// DateLayout is the canonical day format used in partition keys and aggregate keys.
const DateLayout = "2006-01-02"

// sortKeyLayout is fixed-width so lexicographic order equals time order.
const sortKeyLayout = "2006-01-02T15:04:05.000Z"

// For returns the shard for an event ID.
// Stable and deterministic: the same ID always maps to the same shard.
func For(eventID string, count int) int {
	if count <= 0 {
		count = DefaultCount
	}
	return int(xxhash.Sum64String(eventID) % uint64(count))
}

// Key returns the raw partition key "{FAMILY}#{yyyy-mm-dd}#{shard}".
func Key(family string, day time.Time, shard int) string {
	return strings.ToUpper(family) + "#" + day.UTC().Format(DateLayout) + "#" + strconv.Itoa(shard)
}

// SortKey returns the raw sort key for an event: its timestamp followed by its ID.
func SortKey(occurredAt time.Time, eventID string) string {
	return SortBound(occurredAt) + "#" + eventID
}

// SortBound renders a range boundary comparable with SortKey values.
// Every event at exactly t sorts after SortBound(t).
func SortBound(t time.Time) string {
	return t.UTC().Format(sortKeyLayout)
}

// DayWindow returns the half-open UTC window [start, end) for a day.
func DayWindow(day time.Time) (time.Time, time.Time) {
	y, m, d := day.UTC().Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return start, start.Add(24 * time.Hour)
}

// ParseDate parses a yyyy-mm-dd day.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (want yyyy-mm-dd): %w", s, err)
	}
	return t, nil
}

// Yesterday returns the UTC day before now. The default run target, so the
// day's data is fully collected before it is aggregated.
func Yesterday(now time.Time) time.Time {
	start, _ := DayWindow(now)
	return start.AddDate(0, 0, -1)
}
