package histogram

import (
	"fmt"
	"math"
)

var inf = math.Inf(1)

// Kind describes the fixed bins of one metric.
//
// Edges are upper bounds in bin units, strictly increasing, ending in +Inf.
// Scale converts a raw sample into bin units (0.001 for millisecond samples
// binned in seconds); a zero Scale means 1.
type Kind struct {
	Name  string
	Edges []float64
	Scale float64
}

// Metric kinds used by the api and vitals families.
var (
	LatencyMs = Kind{
		Name:  "latency_ms",
		Edges: []float64{10, 25, 50, 75, 100, 150, 200, 300, 400, 500, 750, 1000, 1500, 2000, 3000, 5000, 10000, inf},
	}
	LCP = Kind{
		Name:  "lcp",
		Edges: []float64{0.5, 1, 1.5, 2, 2.5, 3, 3.5, 4, 5, 6, 8, 10, 15, 20, inf},
		Scale: 0.001,
	}
	FCP = Kind{
		Name:  "fcp",
		Edges: []float64{0.5, 0.9, 1.2, 1.5, 1.8, 2.1, 2.5, 3, 3.5, 4, 5, 6, 8, 10, inf},
		Scale: 0.001,
	}
	TTFB = Kind{
		Name:  "ttfb",
		Edges: []float64{0.1, 0.2, 0.4, 0.6, 0.8, 1, 1.2, 1.5, 1.8, 2.5, 3, 5, inf},
		Scale: 0.001,
	}
	INP = Kind{
		Name:  "inp",
		Edges: []float64{50, 100, 150, 200, 250, 300, 400, 500, 600, 800, 1000, 1500, 2000, inf},
	}
	CLS = Kind{
		Name:  "cls",
		Edges: []float64{0.01, 0.025, 0.05, 0.075, 0.1, 0.15, 0.2, 0.25, 0.3, 0.4, 0.5, 0.75, 1, inf},
	}
)

var kinds = map[string]Kind{
	LatencyMs.Name: LatencyMs,
	LCP.Name:       LCP,
	FCP.Name:       FCP,
	TTFB.Name:      TTFB,
	INP.Name:       INP,
	CLS.Name:       CLS,
}

// Lookup returns the registered kind with the given name.
func Lookup(name string) (Kind, bool) {
	k, ok := kinds[name]
	return k, ok
}

// Validate checks the edge invariants.
func (k Kind) Validate() error {
	if len(k.Edges) == 0 {
		return fmt.Errorf("kind %q: no edges", k.Name)
	}
	for i := 1; i < len(k.Edges); i++ {
		if !(k.Edges[i] > k.Edges[i-1]) {
			return fmt.Errorf("kind %q: edges not strictly increasing at %d", k.Name, i)
		}
	}
	if !math.IsInf(k.Edges[len(k.Edges)-1], 1) {
		return fmt.Errorf("kind %q: last edge must be +Inf", k.Name)
	}
	return nil
}

func (k Kind) scale() float64 {
	if k.Scale == 0 {
		return 1
	}
	return k.Scale
}

// ToBinUnits converts a raw sample into the unit the kind bins in.
func (k Kind) ToBinUnits(raw float64) float64 { return raw * k.scale() }

// FromBinUnits converts a bin-unit value back into the raw sample unit.
func (k Kind) FromBinUnits(v float64) float64 { return v / k.scale() }
