// Package keys derives the deterministic partition and sort keys of
// aggregate records.
package keys

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aevon-lab/telemetry-rollup/internal/core/cube"
)

const (
	// Summary is the sort key of a group with no reported dimension.
	Summary = "SUMMARY"
	// MaxIndexSlots bounds the secondary index pairs per record.
	MaxIndexSlots = 3

	sep = "#"
)

// IndexKey is one secondary index pair. Slot is 1-based.
type IndexKey struct {
	Slot int    `json:"slot"`
	PK   string `json:"pk"`
	SK   string `json:"sk"`
}

// Encoder encodes keys for one family. Order is the canonical tag order and
// Indexed the tags whose unfiltered breakdowns get a secondary index pair.
type Encoder struct {
	order   map[string]int
	indexed []string
}

// NewEncoder builds an encoder. Every indexed tag must appear in order.
func NewEncoder(order []string, indexed []string) (*Encoder, error) {
	if len(indexed) > MaxIndexSlots {
		return nil, fmt.Errorf("at most %d indexed tags, got %d", MaxIndexSlots, len(indexed))
	}
	e := &Encoder{order: make(map[string]int, len(order)), indexed: indexed}
	for i, tag := range order {
		if strings.Contains(tag, sep) {
			return nil, fmt.Errorf("tag %q contains %q", tag, sep)
		}
		e.order[tag] = i
	}
	for _, tag := range indexed {
		if _, ok := e.order[tag]; !ok {
			return nil, fmt.Errorf("indexed tag %q is not a dimension", tag)
		}
	}
	return e, nil
}

// PartitionKey joins date and filter segments in canonical tag order, so the
// same filter set encodes identically however it was constructed.
func (e *Encoder) PartitionKey(date string, filters []cube.Filter) string {
	sorted := append([]cube.Filter{}, filters...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return e.rank(sorted[i].Tag) < e.rank(sorted[j].Tag)
	})
	var b strings.Builder
	b.WriteString(date)
	for _, f := range sorted {
		b.WriteString(sep)
		b.WriteString(segment(f))
	}
	return b.String()
}

// SortKey is Summary for a nil reported dimension, otherwise its segment.
func (e *Encoder) SortKey(reported *cube.Filter) string {
	if reported == nil {
		return Summary
	}
	return segment(*reported)
}

// IndexKeys returns the secondary index pairs of a group. Only unfiltered
// single-dimension breakdowns on an indexed tag get one.
func (e *Encoder) IndexKeys(date string, filters []cube.Filter, reported *cube.Filter) []IndexKey {
	if len(filters) != 0 || reported == nil {
		return nil
	}
	for i, tag := range e.indexed {
		if tag == reported.Tag {
			return []IndexKey{{Slot: i + 1, PK: segment(*reported), SK: date}}
		}
	}
	return nil
}

// IndexSlot returns the slot of tag, or 0 when it is not indexed.
func (e *Encoder) IndexSlot(tag string) int {
	for i, t := range e.indexed {
		if t == tag {
			return i + 1
		}
	}
	return 0
}

// Segment encodes one tag/value pair the way it appears inside keys.
func Segment(tag, value string) string {
	return segment(cube.Filter{Tag: tag, Value: value})
}

func (e *Encoder) rank(tag string) int {
	if r, ok := e.order[tag]; ok {
		return r
	}
	return len(e.order)
}

func segment(f cube.Filter) string {
	return f.Tag + sep + Escape(f.Value)
}

// Escape makes a value safe to embed between separators.
func Escape(v string) string {
	v = strings.ReplaceAll(v, "%", "%25")
	return strings.ReplaceAll(v, sep, "%23")
}
