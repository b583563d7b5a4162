package projection

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	rollup "github.com/aevon-lab/telemetry-rollup/internal/aggregation"
	v1 "github.com/aevon-lab/telemetry-rollup/internal/api/v1"
	coreagg "github.com/aevon-lab/telemetry-rollup/internal/core/aggregation"
	"github.com/aevon-lab/telemetry-rollup/internal/core/storage"
	storagemocks "github.com/aevon-lab/telemetry-rollup/internal/mocks/storage"
)

var (
	day1 = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	day2 = day1.AddDate(0, 0, 1)
	day3 = day1.AddDate(0, 0, 2)
)

type models struct{}

func (models) Model(family v1.Family) (*rollup.FamilyModel, error) {
	return rollup.NewFamilyModel(family, 0)
}

func apiEvents(at time.Time, latencies ...float64) []*v1.RawEvent {
	events := make([]*v1.RawEvent, len(latencies))
	for i, l := range latencies {
		status := 200.0
		if l >= 1000 {
			status = 503
		}
		events[i] = &v1.RawEvent{
			ID:         fmt.Sprintf("%s-%d", at.Format("0102"), i),
			Family:     v1.FamilyAPI,
			OccurredAt: at,
			Attributes: map[string]string{"method": "GET", "route": "/a", "platform": "ios", "country": "US"},
			Values:     map[string]float64{"status": status, "latency_ms": l},
		}
	}
	return events
}

// dayRecord returns the stored record of pk/sk built from events of date.
func dayRecord(t *testing.T, date string, events []*v1.RawEvent, pk, sk string) *coreagg.AggregateRecord {
	t.Helper()
	m, err := rollup.NewFamilyModel(v1.FamilyAPI, 0)
	require.NoError(t, err)
	for _, r := range rollup.BuildRecords(m, date, events, 0) {
		if r.PK == pk && r.SK == sk {
			return r
		}
	}
	t.Fatalf("no record %s / %s", pk, sk)
	return nil
}

func TestService_QuerySeries_CombinesDays(t *testing.T) {
	first := apiEvents(day1, 20, 40, 600)
	second := apiEvents(day2, 30, 3000)

	store := storagemocks.NewAggregateStore(t)
	store.EXPECT().Get(mock.Anything, "2025-01-01#P#ios", "E#GET/a").
		Return(dayRecord(t, "2025-01-01", first, "2025-01-01#P#ios", "E#GET/a"), nil).Once()
	store.EXPECT().Get(mock.Anything, "2025-01-02#P#ios", "E#GET/a").
		Return(dayRecord(t, "2025-01-02", second, "2025-01-02#P#ios", "E#GET/a"), nil).Once()
	store.EXPECT().Get(mock.Anything, "2025-01-03#P#ios", "E#GET/a").
		Return(nil, storage.ErrNotFound).Once()

	svc := NewService(store, models{})
	resp, err := svc.QuerySeries(context.Background(), SeriesRequest{
		Family:    v1.FamilyAPI,
		From:      day1,
		To:        day3,
		Filters:   []coreagg.Filter{{Tag: "P", Value: "ios"}},
		Dimension: &coreagg.Filter{Tag: "E", Value: "GET/a"},
	})
	require.NoError(t, err)

	assert.Equal(t, "2025-01-01", resp.From)
	assert.Equal(t, "2025-01-03", resp.To)
	assert.Equal(t, "E#GET/a", resp.SortKey)
	require.Len(t, resp.Days, 2)
	assert.Equal(t, []string{"2025-01-03"}, resp.Missing)

	// The combination equals a single summary over both days of raw events.
	all := append(append([]*v1.RawEvent{}, first...), second...)
	want := dayRecord(t, "2025-01-01", all, "2025-01-01#P#ios", "E#GET/a")

	require.NotNil(t, resp.Combined)
	assert.Equal(t, 2, resp.Combined.Days)
	assert.Equal(t, int64(5), resp.Combined.Count)
	assert.Equal(t, want.API, resp.Combined.API)
}

func TestService_QuerySeries_SummaryDefault(t *testing.T) {
	store := storagemocks.NewAggregateStore(t)
	store.EXPECT().Get(mock.Anything, "2025-01-01", "SUMMARY").Return(nil, storage.ErrNotFound).Once()

	svc := NewService(store, models{})
	resp, err := svc.QuerySeries(context.Background(), SeriesRequest{Family: v1.FamilyVitals, From: day1, To: day1})
	require.NoError(t, err)
	assert.Empty(t, resp.Days)
	assert.Equal(t, []coreagg.Filter{}, resp.Filters)
	assert.Nil(t, resp.Combined)
}

func TestService_QuerySeries_StoreError(t *testing.T) {
	store := storagemocks.NewAggregateStore(t)
	store.EXPECT().Get(mock.Anything, "2025-01-01", "SUMMARY").Return(nil, fmt.Errorf("db failure")).Once()

	svc := NewService(store, models{})
	_, err := svc.QuerySeries(context.Background(), SeriesRequest{Family: v1.FamilyAPI, From: day1, To: day1})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidQuery)
}

func TestService_QuerySeries_Validation(t *testing.T) {
	svc := NewService(storagemocks.NewAggregateStore(t), models{})

	tests := []struct {
		name string
		req  SeriesRequest
	}{
		{name: "unknown family", req: SeriesRequest{Family: "logs", From: day1, To: day1}},
		{name: "to before from", req: SeriesRequest{Family: v1.FamilyAPI, From: day2, To: day1}},
		{name: "missing range", req: SeriesRequest{Family: v1.FamilyAPI}},
		{name: "range too long", req: SeriesRequest{Family: v1.FamilyAPI, From: day1, To: day1.AddDate(1, 0, 0)}},
		{name: "unknown filter", req: SeriesRequest{Family: v1.FamilyAPI, From: day1, To: day1,
			Filters: []coreagg.Filter{{Tag: "R", Value: "/a"}}}},
		{name: "too many filters", req: SeriesRequest{Family: v1.FamilyVitals, From: day1, To: day1,
			Filters: []coreagg.Filter{{Tag: "R", Value: "/a"}, {Tag: "D", Value: "m"}, {Tag: "C", Value: "US"}}}},
		{name: "filtered and reported", req: SeriesRequest{Family: v1.FamilyAPI, From: day1, To: day1,
			Filters:   []coreagg.Filter{{Tag: "P", Value: "ios"}},
			Dimension: &coreagg.Filter{Tag: "P", Value: "ios"}}},
		{name: "duplicate filter", req: SeriesRequest{Family: v1.FamilyAPI, From: day1, To: day1,
			Filters: []coreagg.Filter{{Tag: "P", Value: "ios"}, {Tag: "P", Value: "android"}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.QuerySeries(context.Background(), tt.req)
			require.ErrorIs(t, err, ErrInvalidQuery)
		})
	}
}

func TestService_QueryIndex(t *testing.T) {
	rec := dayRecord(t, "2025-01-01", apiEvents(day1, 10, 20), "2025-01-01", "P#ios")

	store := storagemocks.NewAggregateStore(t)
	store.EXPECT().QueryIndex(mock.Anything, 2, "P#ios", "2025-01-01", "2025-01-02").
		Return([]*coreagg.AggregateRecord{rec}, nil).Once()

	svc := NewService(store, models{})
	resp, err := svc.QueryIndex(context.Background(), IndexRequest{
		Family: v1.FamilyAPI,
		Tag:    "P",
		Value:  "ios",
		From:   day1,
		To:     day2,
	})
	require.NoError(t, err)
	require.Len(t, resp.Days, 1)
	assert.Equal(t, int64(2), resp.Combined.Count)
	assert.Equal(t, int64(2), resp.Combined.API.RequestCount)
}

func TestService_QueryIndex_NotIndexed(t *testing.T) {
	svc := NewService(storagemocks.NewAggregateStore(t), models{})

	_, err := svc.QueryIndex(context.Background(), IndexRequest{Family: v1.FamilyVitals, Tag: "B", Value: "chrome", From: day1, To: day1})
	require.ErrorIs(t, err, ErrInvalidQuery)

	_, err = svc.QueryIndex(context.Background(), IndexRequest{Family: v1.FamilyVitals, Tag: "R", From: day1, To: day1})
	require.ErrorIs(t, err, ErrInvalidQuery)
}
