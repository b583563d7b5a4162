package aggregation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	v1 "github.com/aevon-lab/telemetry-rollup/internal/api/v1"
	"github.com/aevon-lab/telemetry-rollup/internal/core/aggregation"
	"github.com/aevon-lab/telemetry-rollup/internal/core/partition"
	"github.com/aevon-lab/telemetry-rollup/internal/core/storage"
)

const defaultLockTTL = 15 * time.Minute

// RunSummary describes one completed run.
type RunSummary struct {
	RunID        string    `json:"runId"`
	Family       v1.Family `json:"family"`
	Date         string    `json:"date"`
	Events       int       `json:"events"`
	Records      int       `json:"records"`
	Written      int       `json:"written"`
	Retries      int       `json:"retries"`
	Unclassified int64     `json:"unclassified"`
	// Expired counts records already past their expiry when written: the day
	// is older than the retention window and stores drop or hide them.
	Expired    int   `json:"expired"`
	DurationMs int64 `json:"durationMs"`
}

// Pipeline runs the daily rollup of one family and day: fetch every shard,
// group into the cube, summarize each group, key it and write it.
type Pipeline struct {
	events     storage.EventStore
	aggregates storage.AggregateStore
	params     JobParameter
	models     map[v1.Family]*FamilyModel

	locker  Locker
	lockTTL time.Duration
	metrics *Metrics
	now     func() time.Time
}

// PipelineOption configures optional collaborators.
type PipelineOption func(*Pipeline)

// WithLocker replaces the in-process locker.
func WithLocker(l Locker, ttl time.Duration) PipelineOption {
	return func(p *Pipeline) {
		p.locker = l
		if ttl > 0 {
			p.lockTTL = ttl
		}
	}
}

// WithMetrics records run metrics.
func WithMetrics(m *Metrics) PipelineOption {
	return func(p *Pipeline) { p.metrics = m }
}

// NewPipeline builds a pipeline serving every family.
func NewPipeline(events storage.EventStore, aggregates storage.AggregateStore, params JobParameter, opts ...PipelineOption) (*Pipeline, error) {
	params = params.normalized()
	p := &Pipeline{
		events:     events,
		aggregates: aggregates,
		params:     params,
		models:     make(map[v1.Family]*FamilyModel, len(v1.Families)),
		locker:     NewLocalLocker(),
		lockTTL:    defaultLockTTL,
		now:        time.Now,
	}
	for _, f := range v1.Families {
		m, err := NewFamilyModel(f, params.ApdexThresholdMs)
		if err != nil {
			return nil, err
		}
		p.models[f] = m
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Model returns the model of family.
func (p *Pipeline) Model(family v1.Family) (*FamilyModel, error) {
	m, ok := p.models[family]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFamily, family)
	}
	return m, nil
}

// Run aggregates one family for one UTC day. A day without raw events
// succeeds and writes nothing. A rerun of the same day overwrites the same
// keys with the same values.
func (p *Pipeline) Run(ctx context.Context, family v1.Family, day time.Time) (RunSummary, error) {
	started := time.Now()
	start, end := partition.DayWindow(day)
	date := start.Format(partition.DateLayout)
	summary := RunSummary{RunID: uuid.NewString(), Family: family, Date: date}
	log := slog.With("run_id", summary.RunID, "family", family, "date", date)

	model, err := p.Model(family)
	if err != nil {
		return summary, err
	}

	unlock, err := p.locker.Acquire(ctx, LockKey(family, date), p.lockTTL)
	if err != nil {
		if errors.Is(err, ErrRunInProgress) {
			log.Warn("[Pipeline] Run already in progress")
			p.metrics.recordRun(string(family), OutcomeLocked, time.Since(started))
		}
		return summary, err
	}
	defer func() {
		if err := unlock(context.Background()); err != nil {
			log.Error("[Pipeline] Failed to release run lock", "error", err)
		}
	}()

	log.Info("[Pipeline] Run started")

	events, err := NewFetcher(p.events, p.params.ShardCount, p.params.FetchConcurrency, p.params.PageSize).FetchDay(ctx, family, start)
	if err != nil {
		log.Error("[Pipeline] Fetch failed", "error", err)
		p.metrics.recordRun(string(family), OutcomeError, time.Since(started))
		return summary, err
	}
	summary.Events = len(events)
	p.metrics.recordFetched(string(family), len(events))

	if len(events) == 0 {
		summary.DurationMs = time.Since(started).Milliseconds()
		log.Info("[Pipeline] No raw events for day, nothing to write")
		p.metrics.recordRun(string(family), OutcomeEmpty, time.Since(started))
		return summary, nil
	}

	expiresAt := end.AddDate(0, 0, p.params.RetentionDays).Unix()
	records := BuildRecords(model, date, events, expiresAt)
	summary.Records = len(records)
	summary.Unclassified = unclassified(records)
	if summary.Unclassified > 0 {
		log.Warn("[Pipeline] Events with unclassifiable status", "count", summary.Unclassified)
	}
	if expiresAt <= p.now().Unix() {
		summary.Expired = len(records)
		log.Warn("[Pipeline] Day is past the retention window, aggregates expire on write",
			"retention_days", p.params.RetentionDays,
			"expired", summary.Expired)
	}

	res, err := NewWriter(p.aggregates, p.params).Write(ctx, records)
	summary.Written = res.Written
	summary.Retries = res.Retries
	summary.DurationMs = time.Since(started).Milliseconds()
	p.metrics.recordWrite(string(family), res)

	if err != nil {
		outcome := OutcomeError
		var unprocessed *UnprocessedError
		if errors.As(err, &unprocessed) {
			outcome = OutcomeUnprocessed
		}
		log.Error("[Pipeline] Write failed",
			"error", err,
			"written", res.Written,
			"unprocessed", res.Unprocessed)
		p.metrics.recordRun(string(family), outcome, time.Since(started))
		return summary, fmt.Errorf("write %s %s: %w", family, date, err)
	}

	log.Info("[Pipeline] Run completed",
		"events", summary.Events,
		"records", summary.Records,
		"written", summary.Written,
		"retries", summary.Retries,
		"expired", summary.Expired,
		"duration_ms", summary.DurationMs)
	p.metrics.recordRun(string(family), OutcomeSuccess, time.Since(started))
	return summary, nil
}

// BuildRecords turns a day's events into one aggregate record per group.
func BuildRecords(model *FamilyModel, date string, events []*v1.RawEvent, expiresAt int64) []*aggregation.AggregateRecord {
	groups := model.Cube.Build(events)
	records := make([]*aggregation.AggregateRecord, 0, len(groups))

	for _, g := range groups {
		fields := model.Summarizer.Summarize(g.Records)
		fields.IndexKeys = model.Keys.IndexKeys(date, g.Filters, g.Reported)
		fields.ExpiresAt = expiresAt

		records = append(records, aggregation.BuildRecord(aggregation.RecordBase{
			PK:        model.Keys.PartitionKey(date, g.Filters),
			SK:        model.Keys.SortKey(g.Reported),
			Date:      date,
			Family:    model.Family,
			Filters:   g.Filters,
			Dimension: g.Reported,
			Count:     int64(len(g.Records)),
		}, fields))
	}
	return records
}

// unclassified reads the count from the unfiltered summary, which covers every event.
func unclassified(records []*aggregation.AggregateRecord) int64 {
	for _, r := range records {
		if len(r.Filters) == 0 && r.Dimension == nil && r.API != nil {
			return r.API.Status.Unclassified
		}
	}
	return 0
}
