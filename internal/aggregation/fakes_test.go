package aggregation

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	v1 "github.com/aevon-lab/telemetry-rollup/internal/api/v1"
	"github.com/aevon-lab/telemetry-rollup/internal/core/aggregation"
	"github.com/aevon-lab/telemetry-rollup/internal/core/partition"
	"github.com/aevon-lab/telemetry-rollup/internal/core/storage"
)

// fakeEvents serves shard pages from memory.
type fakeEvents struct {
	mu      sync.Mutex
	byPK    map[string][]*v1.RawEvent
	queries int
	failPK  string
}

func newFakeEvents(shards int, events ...*v1.RawEvent) *fakeEvents {
	f := &fakeEvents{byPK: map[string][]*v1.RawEvent{}}
	for _, e := range events {
		e.Shard = partition.For(e.ID, shards)
		pk := partition.Key(string(e.Family), e.OccurredAt, e.Shard)
		f.byPK[pk] = append(f.byPK[pk], e)
	}
	for _, list := range f.byPK {
		sort.Slice(list, func(i, j int) bool {
			return partition.SortKey(list[i].OccurredAt, list[i].ID) < partition.SortKey(list[j].OccurredAt, list[j].ID)
		})
	}
	return f
}

func (f *fakeEvents) SaveEvents(context.Context, []*v1.RawEvent) (int, error) {
	return 0, errors.New("not supported")
}

func (f *fakeEvents) QueryShard(ctx context.Context, q storage.ShardQuery) (storage.ShardPage, error) {
	f.mu.Lock()
	f.queries++
	f.mu.Unlock()

	pk := q.PartitionKey()
	if pk == f.failPK {
		return storage.ShardPage{}, errors.New("shard unavailable")
	}
	if err := ctx.Err(); err != nil {
		return storage.ShardPage{}, err
	}

	lo, hi := partition.SortBound(q.Start), partition.SortBound(q.End)
	var page storage.ShardPage
	for _, e := range f.byPK[pk] {
		sk := partition.SortKey(e.OccurredAt, e.ID)
		if sk < lo || sk >= hi || (q.Cursor != "" && sk <= q.Cursor) {
			continue
		}
		page.Events = append(page.Events, e)
		if len(page.Events) == q.Limit {
			page.Next = sk
			break
		}
	}
	return page, nil
}

// fakeAggregates accepts writes, optionally rejecting records per attempt.
type fakeAggregates struct {
	mu      sync.Mutex
	calls   [][]*aggregation.AggregateRecord
	stored  map[string]*aggregation.AggregateRecord
	reject  func(call int, batch []*aggregation.AggregateRecord) []*aggregation.AggregateRecord
	failErr error
}

func newFakeAggregates() *fakeAggregates {
	return &fakeAggregates{stored: map[string]*aggregation.AggregateRecord{}}
}

func (f *fakeAggregates) BatchWrite(_ context.Context, records []*aggregation.AggregateRecord) ([]*aggregation.AggregateRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	call := len(f.calls)
	f.calls = append(f.calls, append([]*aggregation.AggregateRecord{}, records...))
	if f.failErr != nil {
		return nil, f.failErr
	}

	var rejected []*aggregation.AggregateRecord
	if f.reject != nil {
		rejected = f.reject(call, records)
	}
	skip := make(map[*aggregation.AggregateRecord]bool, len(rejected))
	for _, r := range rejected {
		skip[r] = true
	}
	for _, r := range records {
		if !skip[r] {
			f.stored[r.PK+"|"+r.SK] = r
		}
	}
	return rejected, nil
}

func (f *fakeAggregates) Get(_ context.Context, pk, sk string) (*aggregation.AggregateRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.stored[pk+"|"+sk]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return r, nil
}

func (f *fakeAggregates) QueryIndex(context.Context, int, string, string, string) ([]*aggregation.AggregateRecord, error) {
	return nil, nil
}

func (f *fakeAggregates) callSizes() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	sizes := make([]int, len(f.calls))
	for i, c := range f.calls {
		sizes[i] = len(c)
	}
	return sizes
}

func apiEvent(id string, at time.Time, method, route, platform, country string, status, latency float64) *v1.RawEvent {
	return &v1.RawEvent{
		ID:         id,
		Family:     v1.FamilyAPI,
		OccurredAt: at,
		Attributes: map[string]string{
			AttrMethod:   method,
			AttrRoute:    route,
			AttrPlatform: platform,
			AttrCountry:  country,
		},
		Values: map[string]float64{
			aggregation.ValueStatus:    status,
			aggregation.ValueLatencyMs: latency,
		},
	}
}

func records(n int) []*aggregation.AggregateRecord {
	out := make([]*aggregation.AggregateRecord, n)
	for i := range out {
		out[i] = &aggregation.AggregateRecord{PK: "2025-01-01", SK: string(rune('a'+i%26)) + string(rune('0'+i/26))}
	}
	return out
}
