package aggregation

import (
	"errors"
	"fmt"
	"strings"

	v1 "github.com/aevon-lab/telemetry-rollup/internal/api/v1"
	"github.com/aevon-lab/telemetry-rollup/internal/core/aggregation"
	"github.com/aevon-lab/telemetry-rollup/internal/core/cube"
	"github.com/aevon-lab/telemetry-rollup/internal/core/keys"
)

// ErrUnknownFamily is returned for a family with no model.
var ErrUnknownFamily = errors.New("unknown family")

// Dimension tags. They appear verbatim in aggregate keys.
const (
	TagEndpoint = "E"
	TagPlatform = "P"
	TagCountry  = "C"
	TagRoute    = "R"
	TagDevice   = "D"
	TagBrowser  = "B"
)

// Event attribute names read by the dimensions.
const (
	AttrMethod   = "method"
	AttrRoute    = "route"
	AttrPlatform = "platform"
	AttrCountry  = "country"
	AttrDevice   = "device"
	AttrBrowser  = "browser"
)

// FamilyModel is everything needed to roll up one family: how events are
// grouped, how groups are keyed and how a group is summarized.
type FamilyModel struct {
	Family     v1.Family
	Tags       []string
	Cube       *cube.Builder[*v1.RawEvent]
	Keys       *keys.Encoder
	Summarizer aggregation.Summarizer
}

type familyShape struct {
	dims    []cube.Dimension[*v1.RawEvent]
	triples []cube.Triple
	indexed []string
}

func shapeOf(family v1.Family) (familyShape, bool) {
	switch family {
	case v1.FamilyAPI:
		return familyShape{
			dims: []cube.Dimension[*v1.RawEvent]{
				{Tag: TagEndpoint, Key: endpoint},
				{Tag: TagPlatform, Key: attr(AttrPlatform)},
				{Tag: TagCountry, Key: attr(AttrCountry)},
			},
			triples: []cube.Triple{{Filters: [2]string{TagPlatform, TagCountry}, Reported: TagEndpoint}},
			indexed: []string{TagEndpoint, TagPlatform, TagCountry},
		}, true
	case v1.FamilyVitals:
		return familyShape{
			dims: []cube.Dimension[*v1.RawEvent]{
				{Tag: TagRoute, Key: attr(AttrRoute)},
				{Tag: TagDevice, Key: attr(AttrDevice)},
				{Tag: TagCountry, Key: attr(AttrCountry)},
				{Tag: TagBrowser, Key: attr(AttrBrowser)},
			},
			triples: []cube.Triple{{Filters: [2]string{TagDevice, TagCountry}, Reported: TagRoute}},
			indexed: []string{TagRoute, TagDevice, TagCountry},
		}, true
	}
	return familyShape{}, false
}

// NewFamilyModel builds the model of family.
func NewFamilyModel(family v1.Family, apdexThresholdMs float64) (*FamilyModel, error) {
	shape, ok := shapeOf(family)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFamily, family)
	}

	tags := make([]string, len(shape.dims))
	for i, d := range shape.dims {
		tags[i] = d.Tag
	}

	builder, err := cube.NewBuilder(shape.dims, shape.triples)
	if err != nil {
		return nil, fmt.Errorf("%s cube: %w", family, err)
	}
	enc, err := keys.NewEncoder(tags, shape.indexed)
	if err != nil {
		return nil, fmt.Errorf("%s keys: %w", family, err)
	}
	sum, err := aggregation.NewSummarizer(family, apdexThresholdMs)
	if err != nil {
		return nil, err
	}

	return &FamilyModel{
		Family:     family,
		Tags:       tags,
		Cube:       builder,
		Keys:       enc,
		Summarizer: sum,
	}, nil
}

// HasTag reports whether tag is one of the family's dimensions.
func (m *FamilyModel) HasTag(tag string) bool {
	for _, t := range m.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// endpoint is the upper-cased method followed by the route, e.g. "GET/a".
// A request without a route has no endpoint.
func endpoint(e *v1.RawEvent) (string, bool) {
	route, ok := e.Attr(AttrRoute)
	if !ok {
		return "", false
	}
	method, _ := e.Attr(AttrMethod)
	return strings.ToUpper(method) + route, true
}

func attr(name string) func(*v1.RawEvent) (string, bool) {
	return func(e *v1.RawEvent) (string, bool) {
		return e.Attr(name)
	}
}
