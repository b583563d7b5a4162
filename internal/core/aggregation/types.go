package aggregation

import (
	v1 "github.com/aevon-lab/telemetry-rollup/internal/api/v1"
	"github.com/aevon-lab/telemetry-rollup/internal/core/cube"
	"github.com/aevon-lab/telemetry-rollup/internal/core/histogram"
	"github.com/aevon-lab/telemetry-rollup/internal/core/keys"
	"github.com/aevon-lab/telemetry-rollup/internal/core/scoring"
)

type (
	Filter   = cube.Filter
	IndexKey = keys.IndexKey
)

// AggregateRecord is one precomputed rollup: the statistics of one group for
// one day. Records are written once per run and only ever overwritten whole.
type AggregateRecord struct {
	PK     string    `json:"pk"`
	SK     string    `json:"sk"`
	Date   string    `json:"date"`
	Family v1.Family `json:"family"`

	// Filters narrow the population and are encoded in PK.
	Filters []Filter `json:"filters,omitempty"`
	// Dimension is the reported breakdown encoded in SK, nil for SUMMARY.
	Dimension *Filter `json:"dimension,omitempty"`

	Count int64 `json:"count"`

	API    *APIStats    `json:"api,omitempty"`
	Vitals *VitalsStats `json:"vitals,omitempty"`

	IndexKeys []IndexKey `json:"indexKeys,omitempty"`
	ExpiresAt int64      `json:"expiresAt"` // epoch seconds
}

// StatusBreakdown counts requests per status class.
type StatusBreakdown struct {
	Success      int64 `json:"success"`
	Redirect     int64 `json:"redirect"`
	ClientError  int64 `json:"clientError"`
	ServerError  int64 `json:"serverError"`
	Unclassified int64 `json:"unclassified"`
}

// Add tallies one request of class c.
func (b *StatusBreakdown) Add(c scoring.StatusClass) {
	switch c {
	case scoring.StatusSuccess:
		b.Success++
	case scoring.StatusRedirect:
		b.Redirect++
	case scoring.StatusClientError:
		b.ClientError++
	case scoring.StatusServerError:
		b.ServerError++
	default:
		b.Unclassified++
	}
}

// Errors is the number of client and server errors.
func (b StatusBreakdown) Errors() int64 { return b.ClientError + b.ServerError }

func (b StatusBreakdown) plus(o StatusBreakdown) StatusBreakdown {
	return StatusBreakdown{
		Success:      b.Success + o.Success,
		Redirect:     b.Redirect + o.Redirect,
		ClientError:  b.ClientError + o.ClientError,
		ServerError:  b.ServerError + o.ServerError,
		Unclassified: b.Unclassified + o.Unclassified,
	}
}

// APIStats are the statistics of a group of API requests.
type APIStats struct {
	RequestCount     int64                 `json:"requestCount"`
	Status           StatusBreakdown       `json:"status"`
	ErrorRate        float64               `json:"errorRate"`
	Latency          histogram.Percentiles `json:"latency"`
	LatencyHistogram []int64               `json:"latencyHistogram"`
	Apdex            scoring.ApdexResult   `json:"apdex"`
}

// RatingBreakdown counts samples per Web Vitals rating.
type RatingBreakdown struct {
	Good             int64 `json:"good"`
	NeedsImprovement int64 `json:"needsImprovement"`
	Poor             int64 `json:"poor"`
}

// Add tallies one sample rated r.
func (b *RatingBreakdown) Add(r scoring.Rating) {
	switch r {
	case scoring.RatingGood:
		b.Good++
	case scoring.RatingNeedsImprovement:
		b.NeedsImprovement++
	default:
		b.Poor++
	}
}

// MetricSummary describes the distribution of one vital within a group.
type MetricSummary struct {
	Count       int64                 `json:"count"`
	Percentiles histogram.Percentiles `json:"percentiles"`
	Histogram   []int64               `json:"histogram"`
	Ratings     RatingBreakdown       `json:"ratings"`
	// Score is the log-normal score of the p75 value.
	Score float64 `json:"score"`
}

// VitalsStats are the statistics of a group of pageviews. Metrics only holds
// vitals that had at least one sample.
type VitalsStats struct {
	SampleCount int64                     `json:"sampleCount"`
	Metrics     map[string]*MetricSummary `json:"metrics"`
	// Score is the composite experience score, nil when no weighted vital was sampled.
	Score *float64 `json:"score,omitempty"`
}
