package histogram

import (
	"math"
	"sort"
)

// Build bins values of one kind in a single pass. Values are in raw units.
// The result always has len(k.Edges) entries and sums to len(values).
func Build(values []float64, k Kind) []int64 {
	bins := make([]int64, len(k.Edges))
	for _, v := range values {
		bins[binIndex(k.Edges, k.ToBinUnits(v))]++
	}
	return bins
}

// binIndex returns the first bin whose upper edge is strictly greater than v.
// Bin i covers [edges[i-1], edges[i]); negatives fall into bin 0 and NaN into the last bin.
func binIndex(edges []float64, v float64) int {
	if math.IsNaN(v) {
		return len(edges) - 1
	}
	i := sort.Search(len(edges), func(i int) bool { return v < edges[i] })
	if i == len(edges) {
		return len(edges) - 1
	}
	return i
}

// Merge sums histograms elementwise. Shorter inputs are treated as zero-padded,
// so compacted histograms from different runs combine without re-reading raw data.
func Merge(hists ...[]int64) []int64 {
	n := 0
	for _, h := range hists {
		if len(h) > n {
			n = len(h)
		}
	}
	out := make([]int64, n)
	for _, h := range hists {
		for i, c := range h {
			out[i] += c
		}
	}
	return out
}

// Compact drops trailing empty bins. Stored histograms are compacted.
func Compact(bins []int64) []int64 {
	n := len(bins)
	for n > 0 && bins[n-1] == 0 {
		n--
	}
	out := make([]int64, n)
	copy(out, bins[:n])
	return out
}

// Total returns the number of observations in bins.
func Total(bins []int64) int64 {
	var total int64
	for _, c := range bins {
		total += c
	}
	return total
}

// Percentile estimates the p-th percentile (0..100) in bin units.
//
// It walks bins until the cumulative count first reaches p/100*total inside a
// non-empty bin, then interpolates linearly between that bin's start and end
// edge. A bin ending at +Inf yields its start edge. An empty histogram yields 0.
func Percentile(bins []int64, edges []float64, p float64) float64 {
	total := Total(bins)
	if total == 0 {
		return 0
	}

	target := p / 100 * float64(total)
	var cumulative int64
	lastStart := 0.0
	for i, count := range bins {
		if count == 0 || i >= len(edges) {
			continue
		}
		start := lowerEdge(edges, i)
		lastStart = start
		if float64(cumulative+count) >= target {
			end := edges[i]
			if math.IsInf(end, 1) {
				return start
			}
			fraction := (target - float64(cumulative)) / float64(count)
			if fraction < 0 {
				fraction = 0
			}
			return start + fraction*(end-start)
		}
		cumulative += count
	}
	return lastStart
}

func lowerEdge(edges []float64, i int) float64 {
	if i == 0 {
		return 0
	}
	return edges[i-1]
}

// Percentile estimates the p-th percentile of a histogram of this kind in raw units.
func (k Kind) Percentile(bins []int64, p float64) float64 {
	return k.FromBinUnits(Percentile(bins, k.Edges, p))
}

// Percentiles is the fixed percentile set reported for every metric.
type Percentiles struct {
	P50 float64 `json:"p50"`
	P75 float64 `json:"p75"`
	P90 float64 `json:"p90"`
	P95 float64 `json:"p95"`
	P99 float64 `json:"p99"`
}

// Summarize extracts the reported percentiles from bins of kind k, in raw units.
func (k Kind) Summarize(bins []int64) Percentiles {
	return Percentiles{
		P50: round3(k.Percentile(bins, 50)),
		P75: round3(k.Percentile(bins, 75)),
		P90: round3(k.Percentile(bins, 90)),
		P95: round3(k.Percentile(bins, 95)),
		P99: round3(k.Percentile(bins, 99)),
	}
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
