package projection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	rollup "github.com/aevon-lab/telemetry-rollup/internal/aggregation"
	v1 "github.com/aevon-lab/telemetry-rollup/internal/api/v1"
	coreagg "github.com/aevon-lab/telemetry-rollup/internal/core/aggregation"
	"github.com/aevon-lab/telemetry-rollup/internal/core/keys"
	"github.com/aevon-lab/telemetry-rollup/internal/core/partition"
	"github.com/aevon-lab/telemetry-rollup/internal/core/storage"
)

const (
	// maxRangeDays bounds one query; aggregates older than the retention window are gone anyway.
	maxRangeDays    = 92
	maxFilters      = 2
	readParallelism = 8
)

// ErrInvalidQuery marks request validation errors that should return HTTP 400.
var ErrInvalidQuery = errors.New("invalid aggregate query")

// ModelSource resolves the grouping and keying model of a family.
type ModelSource interface {
	Model(family v1.Family) (*rollup.FamilyModel, error)
}

// Service implements the read side over stored daily aggregates.
// Multi-day answers are combined from the stored histograms and counts;
// raw events are never read.
type Service struct {
	store  storage.AggregateStore
	models ModelSource
}

// NewService creates a new projection service.
func NewService(store storage.AggregateStore, models ModelSource) *Service {
	return &Service{store: store, models: models}
}

// QuerySeries reads one group for every day of the range. Days without a
// record are listed as missing.
func (s *Service) QuerySeries(ctx context.Context, req SeriesRequest) (*SeriesResponse, error) {
	model, err := s.model(req.Family)
	if err != nil {
		return nil, err
	}
	dates, err := dayRange(req.From, req.To)
	if err != nil {
		return nil, err
	}
	if err := validateGroup(model, req.Filters, req.Dimension); err != nil {
		return nil, err
	}

	sk := model.Keys.SortKey(req.Dimension)
	found := make([]*coreagg.AggregateRecord, len(dates))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(readParallelism)
	for i, date := range dates {
		i := i
		pk := model.Keys.PartitionKey(date, req.Filters)
		g.Go(func() error {
			rec, err := s.store.Get(gctx, pk, sk)
			if errors.Is(err, storage.ErrNotFound) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("read %s / %s: %w", pk, sk, err)
			}
			found[i] = rec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	resp := &SeriesResponse{
		Family:  req.Family,
		From:    dates[0],
		To:      dates[len(dates)-1],
		Filters: req.Filters,
		SortKey: sk,
		Days:    []*coreagg.AggregateRecord{},
	}
	if resp.Filters == nil {
		resp.Filters = []coreagg.Filter{}
	}
	for i, rec := range found {
		if rec == nil {
			resp.Missing = append(resp.Missing, dates[i])
			continue
		}
		resp.Days = append(resp.Days, rec)
	}
	resp.Combined = combineDays(model.Summarizer, resp.Days)

	slog.Debug("[Projection] Series read",
		"family", req.Family,
		"sk", sk,
		"days", len(resp.Days),
		"missing", len(resp.Missing))
	return resp, nil
}

// QueryIndex reads the unfiltered breakdown of tag=value over the range
// through the secondary index of tag.
func (s *Service) QueryIndex(ctx context.Context, req IndexRequest) (*IndexResponse, error) {
	model, err := s.model(req.Family)
	if err != nil {
		return nil, err
	}
	dates, err := dayRange(req.From, req.To)
	if err != nil {
		return nil, err
	}
	if req.Value == "" {
		return nil, invalidQueryf("value is required")
	}
	slot := model.Keys.IndexSlot(req.Tag)
	if slot == 0 {
		return nil, invalidQueryf("dimension %q is not indexed for %s", req.Tag, req.Family)
	}

	from, to := dates[0], dates[len(dates)-1]
	days, err := s.store.QueryIndex(ctx, slot, keys.Segment(req.Tag, req.Value), from, to)
	if err != nil {
		return nil, fmt.Errorf("query index %d: %w", slot, err)
	}
	if days == nil {
		days = []*coreagg.AggregateRecord{}
	}

	return &IndexResponse{
		Family:   req.Family,
		Tag:      req.Tag,
		Value:    req.Value,
		From:     from,
		To:       to,
		Days:     days,
		Combined: combineDays(model.Summarizer, days),
	}, nil
}

func (s *Service) model(family v1.Family) (*rollup.FamilyModel, error) {
	m, err := s.models.Model(family)
	if err != nil {
		return nil, invalidQueryf("%v", err)
	}
	return m, nil
}

func validateGroup(model *rollup.FamilyModel, filters []coreagg.Filter, dim *coreagg.Filter) error {
	if len(filters) > maxFilters {
		return invalidQueryf("at most %d filters, got %d", maxFilters, len(filters))
	}
	seen := map[string]bool{}
	for _, f := range filters {
		if !model.HasTag(f.Tag) {
			return invalidQueryf("unknown dimension %q for %s", f.Tag, model.Family)
		}
		if f.Value == "" {
			return invalidQueryf("filter %s has no value", f.Tag)
		}
		if seen[f.Tag] {
			return invalidQueryf("dimension %q filtered twice", f.Tag)
		}
		seen[f.Tag] = true
	}
	if dim != nil {
		if !model.HasTag(dim.Tag) {
			return invalidQueryf("unknown dimension %q for %s", dim.Tag, model.Family)
		}
		if dim.Value == "" {
			return invalidQueryf("dimension %s has no value", dim.Tag)
		}
		if seen[dim.Tag] {
			return invalidQueryf("dimension %q is both filtered and reported", dim.Tag)
		}
	}
	return nil
}

// dayRange lists the UTC days of the inclusive range [from, to].
func dayRange(from, to time.Time) ([]string, error) {
	if from.IsZero() || to.IsZero() {
		return nil, invalidQueryf("from and to are required")
	}
	start, _ := partition.DayWindow(from)
	end, _ := partition.DayWindow(to)
	if end.Before(start) {
		return nil, invalidQueryf("to must not be before from")
	}

	n := int(end.Sub(start).Hours()/24) + 1
	if n > maxRangeDays {
		return nil, invalidQueryf("range of %d days exceeds %d", n, maxRangeDays)
	}
	dates := make([]string, 0, n)
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d.Format(partition.DateLayout))
	}
	return dates, nil
}

func invalidQueryf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidQuery, fmt.Sprintf(format, args...))
}
