package scoring

import "github.com/shopspring/decimal"

// DefaultApdexThresholdMs is the satisfaction threshold T used when none is configured.
const DefaultApdexThresholdMs = 500

// ApdexResult is the satisfaction breakdown of a latency sample.
type ApdexResult struct {
	Satisfied  int64   `json:"satisfied"`
	Tolerating int64   `json:"tolerating"`
	Frustrated int64   `json:"frustrated"`
	Score      float64 `json:"score"`
}

// Apdex scores latencies against threshold t: <= t satisfied, <= 4t tolerating,
// otherwise frustrated. An empty sample scores 1.
func Apdex(latencies []float64, t float64) ApdexResult {
	var r ApdexResult
	for _, l := range latencies {
		switch {
		case l <= t:
			r.Satisfied++
		case l <= 4*t:
			r.Tolerating++
		default:
			r.Frustrated++
		}
	}
	r.Score = ApdexScore(r.Satisfied, r.Tolerating, r.Frustrated)
	return r
}

// ApdexScore computes (satisfied + tolerating/2) / total rounded to 2 decimals.
// It is used on its own when combining stored breakdowns across days.
func ApdexScore(satisfied, tolerating, frustrated int64) float64 {
	total := satisfied + tolerating + frustrated
	if total == 0 {
		return 1
	}
	num := decimal.NewFromInt(2*satisfied + tolerating)
	den := decimal.NewFromInt(2 * total)
	return num.Div(den).Round(2).InexactFloat64()
}

// Round2 rounds v half away from zero to 2 decimals.
func Round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

// Ratio returns part/total rounded to 2 decimals, 0 when total is 0.
func Ratio(part, total int64) float64 {
	if total == 0 {
		return 0
	}
	return decimal.NewFromInt(part).Div(decimal.NewFromInt(total)).Round(2).InexactFloat64()
}
