package projection

import (
	coreagg "github.com/aevon-lab/telemetry-rollup/internal/core/aggregation"
)

// combineDays merges day records of one group. Percentiles and scores are
// recomputed from the merged histograms and counts, never averaged.
func combineDays(summarizer coreagg.Summarizer, days []*coreagg.AggregateRecord) *Combined {
	if len(days) == 0 {
		return nil
	}

	fields := summarizer.Combine(days)
	c := &Combined{
		Days:   len(days),
		API:    fields.API,
		Vitals: fields.Vitals,
	}
	for _, d := range days {
		c.Count += d.Count
	}
	return c
}
