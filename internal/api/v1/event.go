package v1

import (
	"fmt"
	"time"
)

// Family names a metric family. Each family runs its own daily pipeline
// over its own raw partitions.
type Family string

const (
	FamilyAPI    Family = "api"
	FamilyVitals Family = "vitals"
)

// Families lists every supported family in run order.
var Families = []Family{FamilyAPI, FamilyVitals}

// ParseFamily resolves a family name, rejecting unknown values.
func ParseFamily(s string) (Family, error) {
	for _, f := range Families {
		if string(f) == s {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown family %q", s)
}

// RawEvent is one immutable telemetry sample as written by the producer side:
// a single API request or a single pageview's Web Vitals.
type RawEvent struct {
	// ID is unique per family and day; it doubles as the sort-key tiebreaker.
	ID string `json:"id"`

	Family Family `json:"family"`

	// OccurredAt decides which day (and therefore which partition) the event belongs to.
	OccurredAt time.Time `json:"occurred_at"`

	// Attributes carries the categorical dimension inputs,
	// e.g. method/route/platform/country for API requests.
	Attributes map[string]string `json:"attributes,omitempty"`

	// Values carries numeric measurements, e.g. status and latency_ms,
	// or lcp/fcp/inp/ttfb/cls for a pageview.
	Values map[string]float64 `json:"values,omitempty"`

	// Shard is assigned at ingest time and is not part of the public payload.
	Shard int `json:"-"`
}

// Validate ensures the event has all required envelope attributes.
func (e *RawEvent) Validate() error {
	if e.ID == "" {
		return fmt.Errorf("id is required")
	}

	if _, err := ParseFamily(string(e.Family)); err != nil {
		return err
	}

	if e.OccurredAt.IsZero() {
		return fmt.Errorf("occurred_at is required")
	}

	return nil
}

// Attr returns an attribute value and whether it is present and non-empty.
func (e *RawEvent) Attr(name string) (string, bool) {
	v, ok := e.Attributes[name]
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// Value returns a numeric value and whether it was reported.
func (e *RawEvent) Value(name string) (float64, bool) {
	v, ok := e.Values[name]
	return v, ok
}
