package projection

import (
	"time"

	v1 "github.com/aevon-lab/telemetry-rollup/internal/api/v1"
	coreagg "github.com/aevon-lab/telemetry-rollup/internal/core/aggregation"
)

// SeriesRequest selects one group, identified by its filters and reported
// dimension, over an inclusive range of days.
type SeriesRequest struct {
	Family    v1.Family
	From      time.Time
	To        time.Time
	Filters   []coreagg.Filter
	Dimension *coreagg.Filter
}

// IndexRequest selects the unfiltered breakdown of one dimension value over a range of days.
type IndexRequest struct {
	Family v1.Family
	Tag    string
	Value  string
	From   time.Time
	To     time.Time
}

// Combined is the statistics of several days merged from their stored
// counts and histograms.
type Combined struct {
	Days   int                  `json:"days"`
	Count  int64                `json:"count"`
	API    *coreagg.APIStats    `json:"api,omitempty"`
	Vitals *coreagg.VitalsStats `json:"vitals,omitempty"`
}

// SeriesResponse is the per-day series of a group plus its combination.
type SeriesResponse struct {
	Family   v1.Family                  `json:"family"`
	From     string                     `json:"from"`
	To       string                     `json:"to"`
	Filters  []coreagg.Filter           `json:"filters"`
	SortKey  string                     `json:"sk"`
	Days     []*coreagg.AggregateRecord `json:"days"`
	Missing  []string                   `json:"missing,omitempty"`
	Combined *Combined                  `json:"combined,omitempty"`
}

// IndexResponse is the per-day series read through a secondary index.
type IndexResponse struct {
	Family   v1.Family                  `json:"family"`
	Tag      string                     `json:"tag"`
	Value    string                     `json:"value"`
	From     string                     `json:"from"`
	To       string                     `json:"to"`
	Days     []*coreagg.AggregateRecord `json:"days"`
	Combined *Combined                  `json:"combined,omitempty"`
}
