package aggregation

import v1 "github.com/aevon-lab/telemetry-rollup/internal/api/v1"

// RecordBase holds the fields every aggregate record has.
type RecordBase struct {
	PK        string
	SK        string
	Date      string
	Family    v1.Family
	Filters   []Filter
	Dimension *Filter
	Count     int64
}

// RecordFields holds the optional fields. Zero values are left out of the record.
type RecordFields struct {
	API       *APIStats
	Vitals    *VitalsStats
	IndexKeys []IndexKey
	ExpiresAt int64
}

// BuildRecord assembles a record from its base and optional fields.
func BuildRecord(base RecordBase, fields RecordFields) *AggregateRecord {
	r := &AggregateRecord{
		PK:        base.PK,
		SK:        base.SK,
		Date:      base.Date,
		Family:    base.Family,
		Dimension: base.Dimension,
		Count:     base.Count,
		API:       fields.API,
		Vitals:    fields.Vitals,
		ExpiresAt: fields.ExpiresAt,
	}
	if len(base.Filters) > 0 {
		r.Filters = append([]Filter{}, base.Filters...)
	}
	if len(fields.IndexKeys) > 0 {
		r.IndexKeys = append([]IndexKey{}, fields.IndexKeys...)
	}
	return r
}
