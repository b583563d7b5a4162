// Package cube groups a day's records by the fixed set of dimension
// combinations that are rolled up.
//
// A combination has zero, one or two filter dimensions, which narrow the
// population and end up in the partition key, and an optional reported
// dimension, which the population is broken out by and ends up in the sort key.
package cube

import (
	"fmt"
	"sort"
	"strings"
)

// Dimension derives one categorical value from a record. Key returns false
// when the record has no value for the dimension.
type Dimension[T any] struct {
	Tag string
	Key func(T) (string, bool)
}

// Filter is one dimension pinned to a value.
type Filter struct {
	Tag   string `json:"tag"`
	Value string `json:"value"`
}

// Triple is the designated three-way combination: two filters and a reported dimension.
type Triple struct {
	Filters  [2]string
	Reported string
}

// Combination names the dimension tags of one grouping. Filters are in
// canonical order; an empty Reported means the SUMMARY of the filtered population.
type Combination struct {
	Filters  []string
	Reported string
}

// IsSummary reports whether the combination has no reported dimension.
func (c Combination) IsSummary() bool { return c.Reported == "" }

func (c Combination) tags() []string {
	tags := append([]string{}, c.Filters...)
	if c.Reported != "" {
		tags = append(tags, c.Reported)
	}
	return tags
}

func (c Combination) String() string {
	r := c.Reported
	if r == "" {
		r = "SUMMARY"
	}
	return "[" + strings.Join(c.Filters, ",") + "]/" + r
}

// Combinations enumerates the groupings for tags given in canonical order:
//
//	unfiltered SUMMARY and unfiltered x each dimension
//	each single filter SUMMARY and x every other dimension
//	each unordered filter pair SUMMARY
//	each designated triple
//
// which is O(D^2) for D dimensions.
func Combinations(tags []string, triples []Triple) []Combination {
	combos := []Combination{{}}
	for _, d := range tags {
		combos = append(combos, Combination{Reported: d})
	}
	for _, f := range tags {
		combos = append(combos, Combination{Filters: []string{f}})
		for _, d := range tags {
			if d != f {
				combos = append(combos, Combination{Filters: []string{f}, Reported: d})
			}
		}
	}
	for i := 0; i < len(tags); i++ {
		for j := i + 1; j < len(tags); j++ {
			combos = append(combos, Combination{Filters: []string{tags[i], tags[j]}})
		}
	}
	for _, tr := range triples {
		combos = append(combos, Combination{Filters: canonical(tags, tr.Filters[:]), Reported: tr.Reported})
	}
	return combos
}

func canonical(order []string, tags []string) []string {
	rank := make(map[string]int, len(order))
	for i, t := range order {
		rank[t] = i
	}
	out := append([]string{}, tags...)
	sort.SliceStable(out, func(i, j int) bool { return rank[out[i]] < rank[out[j]] })
	return out
}

// Group is the population of one combination for one assignment of values.
type Group[T any] struct {
	Combination Combination
	Filters     []Filter
	Reported    *Filter
	Records     []T
}

// Builder produces every group of every combination for a record set.
type Builder[T any] struct {
	dims   map[string]Dimension[T]
	combos []Combination
}

// NewBuilder validates dims and triples and precomputes the combinations.
// The order of dims is the canonical tag order.
func NewBuilder[T any](dims []Dimension[T], triples []Triple) (*Builder[T], error) {
	b := &Builder[T]{dims: make(map[string]Dimension[T], len(dims))}
	tags := make([]string, 0, len(dims))
	for _, d := range dims {
		if d.Tag == "" || d.Key == nil {
			return nil, fmt.Errorf("dimension %q: tag and key are required", d.Tag)
		}
		if _, dup := b.dims[d.Tag]; dup {
			return nil, fmt.Errorf("dimension %q: duplicate tag", d.Tag)
		}
		b.dims[d.Tag] = d
		tags = append(tags, d.Tag)
	}
	for _, tr := range triples {
		seen := map[string]bool{}
		for _, tag := range []string{tr.Filters[0], tr.Filters[1], tr.Reported} {
			if _, ok := b.dims[tag]; !ok {
				return nil, fmt.Errorf("triple: unknown dimension %q", tag)
			}
			if seen[tag] {
				return nil, fmt.Errorf("triple: dimension %q used twice", tag)
			}
			seen[tag] = true
		}
	}
	b.combos = Combinations(tags, triples)
	return b, nil
}

// Combinations returns the precomputed combinations.
func (b *Builder[T]) Combinations() []Combination { return b.combos }

// Build groups records for every combination, one pass per combination.
// A record missing a value is skipped only by combinations that reference
// that dimension. Groups come out ordered by combination, then by values.
func (b *Builder[T]) Build(records []T) []*Group[T] {
	var out []*Group[T]
	for _, c := range b.combos {
		out = append(out, b.group(c, records)...)
	}
	return out
}

func (b *Builder[T]) group(c Combination, records []T) []*Group[T] {
	tags := c.tags()
	groups := make(map[string]*Group[T])
	values := make([]string, len(tags))

	for _, r := range records {
		if !b.values(tags, r, values) {
			continue
		}
		key := strings.Join(values, "\x00")
		g, ok := groups[key]
		if !ok {
			g = newGroup[T](c, values)
			groups[key] = g
		}
		g.Records = append(g.Records, r)
	}

	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]*Group[T], 0, len(keys))
	for _, k := range keys {
		out = append(out, groups[k])
	}
	return out
}

func (b *Builder[T]) values(tags []string, r T, dst []string) bool {
	for i, tag := range tags {
		v, ok := b.dims[tag].Key(r)
		if !ok {
			return false
		}
		dst[i] = v
	}
	return true
}

func newGroup[T any](c Combination, values []string) *Group[T] {
	g := &Group[T]{Combination: c}
	for i, tag := range c.Filters {
		g.Filters = append(g.Filters, Filter{Tag: tag, Value: values[i]})
	}
	if c.Reported != "" {
		g.Reported = &Filter{Tag: c.Reported, Value: values[len(c.Filters)]}
	}
	return g
}
