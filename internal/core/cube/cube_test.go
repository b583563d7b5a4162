package cube

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rec struct {
	route, platform, country string
}

func attr(v string) (string, bool) { return v, v != "" }

var dims = []Dimension[rec]{
	{Tag: "E", Key: func(r rec) (string, bool) { return attr(r.route) }},
	{Tag: "P", Key: func(r rec) (string, bool) { return attr(r.platform) }},
	{Tag: "C", Key: func(r rec) (string, bool) { return attr(r.country) }},
}

var triple = Triple{Filters: [2]string{"C", "P"}, Reported: "E"}

func newTestBuilder(t *testing.T) *Builder[rec] {
	t.Helper()
	b, err := NewBuilder(dims, []Triple{triple})
	require.NoError(t, err)
	return b
}

func TestCombinations_Shape(t *testing.T) {
	combos := Combinations([]string{"E", "P", "C"}, []Triple{triple})
	// 1 summary + 3 breakdowns + 3 filter summaries + 6 filter breakdowns + 3 pairs + 1 triple
	require.Len(t, combos, 17)

	seen := map[string]bool{}
	for _, c := range combos {
		require.False(t, seen[c.String()], "duplicate %s", c)
		seen[c.String()] = true
		require.LessOrEqual(t, len(c.Filters), 2)
		for _, f := range c.Filters {
			require.NotEqual(t, f, c.Reported)
		}
	}

	assert.True(t, seen["[]/SUMMARY"])
	assert.True(t, seen["[]/E"])
	assert.True(t, seen["[P]/SUMMARY"])
	assert.True(t, seen["[P]/C"])
	assert.True(t, seen["[E,C]/SUMMARY"])
	// Triple filters are put in canonical order.
	assert.True(t, seen["[P,C]/E"])
	// Pairs are only summaries unless designated.
	assert.False(t, seen["[E,P]/C"])
}

func TestCombinations_FourDimensions(t *testing.T) {
	combos := Combinations([]string{"R", "D", "C", "B"}, []Triple{{Filters: [2]string{"D", "C"}, Reported: "R"}})
	require.Len(t, combos, 1+4+4+12+6+1)
}

func TestNewBuilder_Validation(t *testing.T) {
	_, err := NewBuilder([]Dimension[rec]{{Tag: "E"}}, nil)
	require.Error(t, err)

	_, err = NewBuilder(append(dims, dims[0]), nil)
	require.Error(t, err)

	_, err = NewBuilder(dims, []Triple{{Filters: [2]string{"P", "X"}, Reported: "E"}})
	require.Error(t, err)

	_, err = NewBuilder(dims, []Triple{{Filters: [2]string{"P", "P"}, Reported: "E"}})
	require.Error(t, err)
}

func sample() []rec {
	return []rec{
		{"GET/a", "ios", "US"},
		{"GET/a", "ios", "US"},
		{"GET/b", "android", "GB"},
		{"GET/b", "ios", "GB"},
		{"GET/c", "web", ""},
	}
}

func groupsOf(gs []*Group[rec], c string) []*Group[rec] {
	var out []*Group[rec]
	for _, g := range gs {
		if g.Combination.String() == c {
			out = append(out, g)
		}
	}
	return out
}

func TestBuild_Summary(t *testing.T) {
	groups := newTestBuilder(t).Build(sample())
	summary := groupsOf(groups, "[]/SUMMARY")
	require.Len(t, summary, 1)
	assert.Len(t, summary[0].Records, 5)
	assert.Nil(t, summary[0].Reported)
	assert.Empty(t, summary[0].Filters)
}

func TestBuild_PerDimensionSumsToTotal(t *testing.T) {
	records := sample()
	groups := newTestBuilder(t).Build(records)

	for _, tag := range []string{"E", "P"} {
		total := 0
		for _, g := range groupsOf(groups, "[]/"+tag) {
			total += len(g.Records)
		}
		assert.Equal(t, len(records), total, tag)
	}
}

func TestBuild_MissingValueExcludedOnlyWhereReferenced(t *testing.T) {
	groups := newTestBuilder(t).Build(sample())

	total := 0
	for _, g := range groupsOf(groups, "[]/C") {
		total += len(g.Records)
		assert.NotEmpty(t, g.Reported.Value)
	}
	assert.Equal(t, 4, total)

	// The record without a country still counts for platform web.
	var web *Group[rec]
	for _, g := range groupsOf(groups, "[P]/SUMMARY") {
		if g.Filters[0].Value == "web" {
			web = g
		}
	}
	require.NotNil(t, web)
	assert.Len(t, web.Records, 1)

	for _, g := range groupsOf(groups, "[P,C]/SUMMARY") {
		assert.NotEqual(t, "web", g.Filters[0].Value)
	}
}

func TestBuild_FiltersAndReported(t *testing.T) {
	groups := newTestBuilder(t).Build(sample())

	byPlatform := groupsOf(groups, "[P]/E")
	var iosA *Group[rec]
	for _, g := range byPlatform {
		if g.Filters[0] == (Filter{Tag: "P", Value: "ios"}) && g.Reported.Value == "GET/a" {
			iosA = g
		}
	}
	require.NotNil(t, iosA)
	assert.Len(t, iosA.Records, 2)
	assert.Equal(t, "E", iosA.Reported.Tag)

	tripleGroups := groupsOf(groups, "[P,C]/E")
	require.Len(t, tripleGroups, 3)
	for _, g := range tripleGroups {
		require.Len(t, g.Filters, 2)
		assert.Equal(t, "P", g.Filters[0].Tag)
		assert.Equal(t, "C", g.Filters[1].Tag)
	}
}

func TestBuild_Deterministic(t *testing.T) {
	b := newTestBuilder(t)
	first := b.Build(sample())
	second := b.Build(sample())
	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].Combination.String(), second[i].Combination.String())
		assert.Equal(t, first[i].Filters, second[i].Filters)
		assert.Equal(t, first[i].Reported, second[i].Reported)
	}
}

func TestBuild_Empty(t *testing.T) {
	assert.Empty(t, newTestBuilder(t).Build(nil))
}
