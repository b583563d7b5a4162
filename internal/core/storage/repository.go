package storage

import (
	"context"
	"errors"
	"time"

	v1 "github.com/aevon-lab/telemetry-rollup/internal/api/v1"
	"github.com/aevon-lab/telemetry-rollup/internal/core/aggregation"
	"github.com/aevon-lab/telemetry-rollup/internal/core/partition"
)

// ErrNotFound is returned when a point read finds no aggregate record.
var ErrNotFound = errors.New("aggregate not found")

// ShardQuery is one page request against a single raw-event shard:
// partition "{FAMILY}#{day}#{shard}", sort keys in [Start, End), after Cursor.
type ShardQuery struct {
	Family v1.Family
	Shard  int
	Start  time.Time
	End    time.Time
	// Cursor is the last sort key of the previous page, empty for the first page.
	Cursor string
	Limit  int
}

// PartitionKey returns the raw partition the query reads.
func (q ShardQuery) PartitionKey() string {
	return partition.Key(string(q.Family), q.Start, q.Shard)
}

// ShardPage is one page of a shard. An empty Next means the shard is exhausted.
type ShardPage struct {
	Events []*v1.RawEvent
	Next   string
}

// EventStore is the raw event source, partitioned by day and hashed into shards.
type EventStore interface {
	// SaveEvents stores events, skipping any already stored, and returns how many were new.
	// Every event must have its Shard assigned.
	SaveEvents(ctx context.Context, events []*v1.RawEvent) (int, error)

	// QueryShard reads one page of a shard in sort key order.
	QueryShard(ctx context.Context, q ShardQuery) (ShardPage, error)
}

// AggregateStore holds aggregate records addressed by (pk, sk).
type AggregateStore interface {
	// BatchWrite upserts records and returns the ones the store did not accept
	// this time. A non-nil error means the batch failed outright.
	BatchWrite(ctx context.Context, records []*aggregation.AggregateRecord) ([]*aggregation.AggregateRecord, error)

	// Get returns one record or ErrNotFound.
	Get(ctx context.Context, pk, sk string) (*aggregation.AggregateRecord, error)

	// QueryIndex returns the records whose index pair in slot has the given pk
	// and a date in [fromDate, toDate], ordered by date.
	QueryIndex(ctx context.Context, slot int, pk, fromDate, toDate string) ([]*aggregation.AggregateRecord, error)
}

// Pinger is implemented by stores that can report their health.
type Pinger interface {
	Ping(ctx context.Context) error
}
