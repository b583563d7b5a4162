package scoring

// Web Vitals metric names as they appear in event values.
const (
	LCP  = "lcp"
	FCP  = "fcp"
	INP  = "inp"
	CLS  = "cls"
	TTFB = "ttfb"
)

// VitalsMetrics lists every scored vital in reporting order.
var VitalsMetrics = []string{LCP, FCP, INP, CLS, TTFB}

// VitalsCurves holds the calibration of each vital, in raw sample units.
var VitalsCurves = map[string]LogNormalCurve{
	LCP:  {P10: 2500, Median: 4000},
	FCP:  {P10: 1800, Median: 3000},
	INP:  {P10: 200, Median: 500},
	CLS:  {P10: 0.1, Median: 0.25},
	TTFB: {P10: 800, Median: 1800},
}

// VitalsWeights are the composite weights. TTFB is scored but not weighted.
var VitalsWeights = map[string]float64{
	LCP: 0.30,
	INP: 0.30,
	CLS: 0.25,
	FCP: 0.15,
}

// Rating is the good / needs-improvement / poor bucket of a single sample.
type Rating string

const (
	RatingGood             Rating = "good"
	RatingNeedsImprovement Rating = "needsImprovement"
	RatingPoor             Rating = "poor"
)

// Rate buckets v for the named vital: <= P10 good, > Median poor.
// ok is false for a metric without calibration.
func Rate(metric string, v float64) (Rating, bool) {
	c, ok := VitalsCurves[metric]
	if !ok {
		return "", false
	}
	switch {
	case v <= c.P10:
		return RatingGood, true
	case v <= c.Median:
		return RatingNeedsImprovement, true
	default:
		return RatingPoor, true
	}
}
