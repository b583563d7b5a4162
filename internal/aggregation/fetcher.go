package aggregation

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	v1 "github.com/aevon-lab/telemetry-rollup/internal/api/v1"
	"github.com/aevon-lab/telemetry-rollup/internal/core/partition"
	"github.com/aevon-lab/telemetry-rollup/internal/core/storage"
)

// Fetcher reads a whole day of raw events by fanning out over every shard.
type Fetcher struct {
	store       storage.EventStore
	shards      int
	concurrency int
	pageSize    int
}

// NewFetcher creates a fetcher over shards [0, shards).
func NewFetcher(store storage.EventStore, shards, concurrency, pageSize int) *Fetcher {
	return &Fetcher{store: store, shards: shards, concurrency: concurrency, pageSize: pageSize}
}

// FetchDay returns every event of family in the day's [start, end) window.
// Each shard follows its continuation cursor until exhausted. The first shard
// error cancels the others and fails the fetch: partial results would
// understate counts. Order of the result is unspecified.
func (f *Fetcher) FetchDay(ctx context.Context, family v1.Family, day time.Time) ([]*v1.RawEvent, error) {
	start, end := partition.DayWindow(day)

	var (
		mu  sync.Mutex
		all []*v1.RawEvent
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.concurrency)

	for shard := 0; shard < f.shards; shard++ {
		shard := shard
		g.Go(func() error {
			events, err := f.fetchShard(gctx, storage.ShardQuery{
				Family: family,
				Shard:  shard,
				Start:  start,
				End:    end,
				Limit:  f.pageSize,
			})
			if err != nil {
				return fmt.Errorf("shard %d: %w", shard, err)
			}

			mu.Lock()
			all = append(all, events...)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("fetch %s %s: %w", family, start.Format(partition.DateLayout), err)
	}
	return all, nil
}

func (f *Fetcher) fetchShard(ctx context.Context, q storage.ShardQuery) ([]*v1.RawEvent, error) {
	var events []*v1.RawEvent
	pages := 0
	for {
		page, err := f.store.QueryShard(ctx, q)
		if err != nil {
			return nil, err
		}
		pages++
		events = append(events, page.Events...)
		if page.Next == "" {
			break
		}
		q.Cursor = page.Next
	}

	slog.Debug("[Fetcher] Shard exhausted",
		"partition", q.PartitionKey(),
		"pages", pages,
		"events", len(events))
	return events, nil
}
