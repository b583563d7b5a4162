package aggregation

import (
	"fmt"
	"math"

	v1 "github.com/aevon-lab/telemetry-rollup/internal/api/v1"
	"github.com/aevon-lab/telemetry-rollup/internal/core/histogram"
	"github.com/aevon-lab/telemetry-rollup/internal/core/scoring"
)

// Event value names read by the summarizers.
const (
	ValueStatus    = "status"
	ValueLatencyMs = "latency_ms"
)

// Summarizer reduces a group to family statistics. Summarize works from raw
// events; Combine works from stored records of the same group on other days
// and never needs raw data, because every statistic is recomputed from
// mergeable counts and histograms.
type Summarizer interface {
	Summarize(events []*v1.RawEvent) RecordFields
	Combine(records []*AggregateRecord) RecordFields
}

// NewSummarizer returns the summarizer of a family.
func NewSummarizer(family v1.Family, apdexThresholdMs float64) (Summarizer, error) {
	switch family {
	case v1.FamilyAPI:
		if apdexThresholdMs <= 0 {
			apdexThresholdMs = scoring.DefaultApdexThresholdMs
		}
		return APISummarizer{ApdexThresholdMs: apdexThresholdMs}, nil
	case v1.FamilyVitals:
		return VitalsSummarizer{}, nil
	default:
		return nil, fmt.Errorf("no summarizer for family %q", family)
	}
}

// APISummarizer builds APIStats.
type APISummarizer struct {
	ApdexThresholdMs float64
}

// Summarize classifies every request and bins every reported latency. A missing
// or out-of-range status is counted as unclassified; a missing latency only
// leaves the request out of the latency statistics.
func (s APISummarizer) Summarize(events []*v1.RawEvent) RecordFields {
	st := &APIStats{RequestCount: int64(len(events))}
	latencies := make([]float64, 0, len(events))

	for _, e := range events {
		st.Status.Add(statusClass(e))
		if l, ok := e.Value(ValueLatencyMs); ok {
			latencies = append(latencies, l)
		}
	}

	bins := histogram.Build(latencies, histogram.LatencyMs)
	st.Latency = histogram.LatencyMs.Summarize(bins)
	st.LatencyHistogram = histogram.Compact(bins)
	st.Apdex = scoring.Apdex(latencies, s.ApdexThresholdMs)
	st.ErrorRate = scoring.Ratio(st.Status.Errors(), st.RequestCount)
	return RecordFields{API: st}
}

func statusClass(e *v1.RawEvent) scoring.StatusClass {
	code, ok := e.Value(ValueStatus)
	if !ok || code != math.Trunc(code) {
		return ""
	}
	class, err := scoring.ClassifyStatus(int(code))
	if err != nil {
		return ""
	}
	return class
}

// Combine sums breakdowns and merges histograms of stored API records.
func (s APISummarizer) Combine(records []*AggregateRecord) RecordFields {
	st := &APIStats{}
	hists := make([][]int64, 0, len(records))
	for _, r := range records {
		if r.API == nil {
			continue
		}
		st.RequestCount += r.API.RequestCount
		st.Status = st.Status.plus(r.API.Status)
		st.Apdex.Satisfied += r.API.Apdex.Satisfied
		st.Apdex.Tolerating += r.API.Apdex.Tolerating
		st.Apdex.Frustrated += r.API.Apdex.Frustrated
		hists = append(hists, r.API.LatencyHistogram)
	}

	bins := histogram.Merge(hists...)
	st.Latency = histogram.LatencyMs.Summarize(bins)
	st.LatencyHistogram = histogram.Compact(bins)
	st.Apdex.Score = scoring.ApdexScore(st.Apdex.Satisfied, st.Apdex.Tolerating, st.Apdex.Frustrated)
	st.ErrorRate = scoring.Ratio(st.Status.Errors(), st.RequestCount)
	return RecordFields{API: st}
}

// VitalsSummarizer builds VitalsStats.
type VitalsSummarizer struct{}

var vitalKinds = map[string]histogram.Kind{
	scoring.LCP:  histogram.LCP,
	scoring.FCP:  histogram.FCP,
	scoring.INP:  histogram.INP,
	scoring.CLS:  histogram.CLS,
	scoring.TTFB: histogram.TTFB,
}

// Summarize bins and rates each vital independently. A pageview that did not
// report a vital only leaves that vital's statistics.
func (VitalsSummarizer) Summarize(events []*v1.RawEvent) RecordFields {
	st := &VitalsStats{SampleCount: int64(len(events)), Metrics: map[string]*MetricSummary{}}

	for _, name := range scoring.VitalsMetrics {
		var samples []float64
		var ratings RatingBreakdown
		for _, e := range events {
			v, ok := e.Value(name)
			if !ok {
				continue
			}
			samples = append(samples, v)
			if r, ok := scoring.Rate(name, v); ok {
				ratings.Add(r)
			}
		}
		if len(samples) == 0 {
			continue
		}
		st.Metrics[name] = summarizeVital(name, histogram.Build(samples, vitalKinds[name]), ratings)
	}

	st.Score = composite(st.Metrics)
	return RecordFields{Vitals: st}
}

// Combine merges per-vital histograms and ratings of stored vitals records.
func (VitalsSummarizer) Combine(records []*AggregateRecord) RecordFields {
	st := &VitalsStats{Metrics: map[string]*MetricSummary{}}
	hists := map[string][][]int64{}
	ratings := map[string]RatingBreakdown{}

	for _, r := range records {
		if r.Vitals == nil {
			continue
		}
		st.SampleCount += r.Vitals.SampleCount
		for name, m := range r.Vitals.Metrics {
			hists[name] = append(hists[name], m.Histogram)
			rb := ratings[name]
			rb.Good += m.Ratings.Good
			rb.NeedsImprovement += m.Ratings.NeedsImprovement
			rb.Poor += m.Ratings.Poor
			ratings[name] = rb
		}
	}

	for _, name := range scoring.VitalsMetrics {
		hs, ok := hists[name]
		if !ok {
			continue
		}
		st.Metrics[name] = summarizeVital(name, histogram.Merge(hs...), ratings[name])
	}

	st.Score = composite(st.Metrics)
	return RecordFields{Vitals: st}
}

func summarizeVital(name string, bins []int64, ratings RatingBreakdown) *MetricSummary {
	kind := vitalKinds[name]
	m := &MetricSummary{
		Count:       histogram.Total(bins),
		Percentiles: kind.Summarize(bins),
		Histogram:   histogram.Compact(bins),
		Ratings:     ratings,
	}
	m.Score = scoring.VitalsCurves[name].Score(kind.Percentile(bins, 75))
	return m
}

func composite(metrics map[string]*MetricSummary) *float64 {
	scores := make(map[string]float64, len(metrics))
	for name, m := range metrics {
		scores[name] = m.Score
	}
	score, ok := scoring.Composite(scoring.VitalsWeights, scores)
	if !ok {
		return nil
	}
	return &score
}
