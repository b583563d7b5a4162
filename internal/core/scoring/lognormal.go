package scoring

import (
	"math"
	"sort"

	"github.com/shopspring/decimal"
)

// invNormal90 is the standard normal quantile at 0.9.
const invNormal90 = 1.2815515655

// LogNormalCurve maps a metric value onto 0..100 where P10 scores 90 and
// Median scores 50. Lower values score higher.
type LogNormalCurve struct {
	P10    float64
	Median float64
}

func (c LogNormalCurve) params() (mu, sigma float64) {
	mu = math.Log(c.Median)
	sigma = (math.Log(c.Median) - math.Log(c.P10)) / invNormal90
	return mu, sigma
}

// Score returns the rounded 0..100 score of v. Values <= 0 or non-finite
// score 0, which is indistinguishable from a very slow value.
func (c LogNormalCurve) Score(v float64) float64 {
	if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	mu, sigma := c.params()
	if sigma <= 0 {
		return 0
	}
	z := (math.Log(v) - mu) / sigma
	cdf := 0.5 * (1 + erf(z/math.Sqrt2))
	score := 100 * (1 - cdf)
	return math.Round(clamp(score, 0, 100))
}

// erf is the Abramowitz-Stegun 7.1.26 approximation, max error 1.5e-7.
func erf(x float64) float64 {
	const (
		a1 = 0.254829592
		a2 = -0.284496736
		a3 = 1.421413741
		a4 = -1.453152027
		a5 = 1.061405429
		p  = 0.3275911
	)
	sign := 1.0
	if x < 0 {
		sign = -1
		x = -x
	}
	t := 1 / (1 + p*x)
	y := 1 - ((((a5*t+a4)*t+a3)*t+a2)*t+a1)*t*math.Exp(-x*x)
	return sign * y
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// Composite averages per-metric scores using weights. Metrics without a score
// are left out and the remaining weights are renormalized. With no scored
// metric the composite is 0 and ok is false. The sum is exact and taken in
// name order, so equal inputs always round the same way.
func Composite(weights map[string]float64, scores map[string]float64) (float64, bool) {
	names := make([]string, 0, len(weights))
	for name := range weights {
		names = append(names, name)
	}
	sort.Strings(names)

	sum, weight := decimal.Zero, decimal.Zero
	for _, name := range names {
		s, ok := scores[name]
		if !ok {
			continue
		}
		w := decimal.NewFromFloat(weights[name])
		sum = sum.Add(w.Mul(decimal.NewFromFloat(s)))
		weight = weight.Add(w)
	}
	if weight.IsZero() {
		return 0, false
	}
	return sum.Div(weight).Round(0).InexactFloat64(), true
}
