package aggregation

import (
	"fmt"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	v1 "github.com/aevon-lab/telemetry-rollup/internal/api/v1"
	"github.com/aevon-lab/telemetry-rollup/internal/core/histogram"
	"github.com/aevon-lab/telemetry-rollup/internal/core/scoring"
)

var day = time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

func apiEvent(id string, status, latency float64) *v1.RawEvent {
	return &v1.RawEvent{
		ID:         id,
		Family:     v1.FamilyAPI,
		OccurredAt: day,
		Values:     map[string]float64{ValueStatus: status, ValueLatencyMs: latency},
	}
}

func vitalsEvent(id string, values map[string]float64) *v1.RawEvent {
	return &v1.RawEvent{ID: id, Family: v1.FamilyVitals, OccurredAt: day, Values: values}
}

func TestNewSummarizer(t *testing.T) {
	s, err := NewSummarizer(v1.FamilyAPI, 0)
	require.NoError(t, err)
	assert.Equal(t, APISummarizer{ApdexThresholdMs: scoring.DefaultApdexThresholdMs}, s)

	s, err = NewSummarizer(v1.FamilyVitals, 0)
	require.NoError(t, err)
	assert.IsType(t, VitalsSummarizer{}, s)

	_, err = NewSummarizer("logs", 0)
	require.Error(t, err)
}

func TestAPISummarizer_Summarize(t *testing.T) {
	s := APISummarizer{ApdexThresholdMs: 500}
	st := s.Summarize([]*v1.RawEvent{
		apiEvent("1", 200, 100),
		apiEvent("2", 500, 900),
		apiEvent("3", 200, 50),
	}).API

	require.NotNil(t, st)
	assert.Equal(t, int64(3), st.RequestCount)
	assert.Equal(t, StatusBreakdown{Success: 2, ServerError: 1}, st.Status)
	assert.Equal(t, 0.33, st.ErrorRate)
	assert.Equal(t, int64(3), histogram.Total(st.LatencyHistogram))
	assert.Equal(t, scoring.ApdexResult{Satisfied: 2, Tolerating: 1, Score: 0.83}, st.Apdex)
	assert.True(t, st.Latency.P50 <= st.Latency.P99)
}

func TestAPISummarizer_UnclassifiedStatus(t *testing.T) {
	noStatus := &v1.RawEvent{ID: "4", Family: v1.FamilyAPI, OccurredAt: day, Values: map[string]float64{ValueLatencyMs: 10}}
	noLatency := &v1.RawEvent{ID: "5", Family: v1.FamilyAPI, OccurredAt: day, Values: map[string]float64{ValueStatus: 404}}

	st := APISummarizer{ApdexThresholdMs: 500}.Summarize([]*v1.RawEvent{
		apiEvent("1", 200, 10),
		apiEvent("2", 99, 10),
		apiEvent("3", 200.5, 10),
		noStatus,
		noLatency,
	}).API

	assert.Equal(t, int64(5), st.RequestCount)
	assert.Equal(t, StatusBreakdown{Success: 1, ClientError: 1, Unclassified: 3}, st.Status)
	assert.Equal(t, int64(4), histogram.Total(st.LatencyHistogram))
}

func TestAPISummarizer_CombineMatchesSummarize(t *testing.T) {
	s := APISummarizer{ApdexThresholdMs: 500}
	var a, b []*v1.RawEvent
	for i := 0; i < 40; i++ {
		a = append(a, apiEvent(fmt.Sprintf("a%d", i), float64(200+100*(i%4)), float64(i*37%2500)))
	}
	for i := 0; i < 25; i++ {
		b = append(b, apiEvent(fmt.Sprintf("b%d", i), float64(200+(i%2)*300), float64(i*91%4000)))
	}

	day1 := &AggregateRecord{Count: int64(len(a)), API: s.Summarize(a).API}
	day2 := &AggregateRecord{Count: int64(len(b)), API: s.Summarize(b).API}

	combined := s.Combine([]*AggregateRecord{day1, day2}).API
	direct := s.Summarize(append(append([]*v1.RawEvent{}, a...), b...)).API
	assert.Equal(t, direct, combined)
}

func TestVitalsSummarizer_Summarize(t *testing.T) {
	st := VitalsSummarizer{}.Summarize([]*v1.RawEvent{
		vitalsEvent("1", map[string]float64{scoring.LCP: 1200, scoring.CLS: 0.02, scoring.TTFB: 300}),
		vitalsEvent("2", map[string]float64{scoring.LCP: 3000, scoring.INP: 150}),
		vitalsEvent("3", map[string]float64{scoring.LCP: 5000}),
	}).Vitals

	require.NotNil(t, st)
	assert.Equal(t, int64(3), st.SampleCount)

	lcp := st.Metrics[scoring.LCP]
	require.NotNil(t, lcp)
	assert.Equal(t, int64(3), lcp.Count)
	assert.Equal(t, int64(3), histogram.Total(lcp.Histogram))
	assert.Equal(t, RatingBreakdown{Good: 1, NeedsImprovement: 1, Poor: 1}, lcp.Ratings)

	assert.Equal(t, int64(1), st.Metrics[scoring.INP].Count)
	assert.Equal(t, int64(1), st.Metrics[scoring.TTFB].Count)
	_, hasFCP := st.Metrics[scoring.FCP]
	assert.False(t, hasFCP)

	require.NotNil(t, st.Score)
	assert.GreaterOrEqual(t, *st.Score, 0.0)
	assert.LessOrEqual(t, *st.Score, 100.0)
}

func TestVitalsSummarizer_NoWeightedVitals(t *testing.T) {
	st := VitalsSummarizer{}.Summarize([]*v1.RawEvent{
		vitalsEvent("1", map[string]float64{scoring.TTFB: 300}),
	}).Vitals
	assert.Nil(t, st.Score)
	assert.Contains(t, st.Metrics, scoring.TTFB)
}

func TestVitalsSummarizer_CombineMatchesSummarize(t *testing.T) {
	var a, b []*v1.RawEvent
	for i := 0; i < 30; i++ {
		a = append(a, vitalsEvent(fmt.Sprintf("a%d", i), map[string]float64{
			scoring.LCP: float64(800 + i*150), scoring.CLS: float64(i%7) * 0.05,
		}))
	}
	for i := 0; i < 12; i++ {
		b = append(b, vitalsEvent(fmt.Sprintf("b%d", i), map[string]float64{
			scoring.LCP: float64(2000 + i*400), scoring.INP: float64(90 + i*60),
		}))
	}
	s := VitalsSummarizer{}
	combined := s.Combine([]*AggregateRecord{
		{Vitals: s.Summarize(a).Vitals},
		{Vitals: s.Summarize(b).Vitals},
	}).Vitals
	direct := s.Summarize(append(append([]*v1.RawEvent{}, a...), b...)).Vitals
	assert.Equal(t, direct, combined)
}

func TestBuildRecord(t *testing.T) {
	filters := []Filter{{Tag: "P", Value: "ios"}}
	r := BuildRecord(RecordBase{
		PK:      "2025-01-01#P#ios",
		SK:      "SUMMARY",
		Date:    "2025-01-01",
		Family:  v1.FamilyAPI,
		Filters: filters,
		Count:   2,
	}, RecordFields{API: &APIStats{RequestCount: 2}, ExpiresAt: 1700000000})

	filters[0].Value = "android"
	assert.Equal(t, "ios", r.Filters[0].Value)
	assert.Nil(t, r.Vitals)
	assert.Nil(t, r.IndexKeys)

	raw, err := json.Marshal(r)
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Contains(t, doc, "api")
	assert.NotContains(t, doc, "vitals")
	assert.NotContains(t, doc, "dimension")
	assert.NotContains(t, doc, "indexKeys")
}
