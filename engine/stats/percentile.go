// Package stats computes summary statistics over sample values such as
// completed-message latencies. The CLI's run command does not call it.
package stats

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Percentile returns the p-th percentile (0 <= p <= 100) of data via linear
// interpolation between closest ranks: the value at rank p/100*(n-1) of the
// sorted data.
//
// Grounded on the teacher's hand-rolled CalculatePercentile
// (sim/metrics_utils.go: sort + floor/ceil interpolation).
func Percentile(data []float64, p float64) float64 {
	if len(data) == 0 {
		return 0
	}
	sorted := append([]float64(nil), data...)
	sort.Float64s(sorted)
	return percentileSorted(sorted, p)
}

func percentileSorted(sorted []float64, p float64) float64 {
	rank := p / 100 * float64(len(sorted)-1)
	lo, hi := int(math.Floor(rank)), int(math.Ceil(rank))
	return sorted[lo] + (rank-float64(lo))*(sorted[hi]-sorted[lo])
}

// Summary aggregates the count, mean, percentiles and maximum of a sample
// (teacher analogue: Metrics.Print in sim/metrics.go).
type Summary struct {
	Count int
	Mean  float64
	P50   float64
	P90   float64
	P99   float64
	Max   float64
}

// Summarize computes a Summary over data (e.g. per-request completion
// latencies). Order of data is not significant; it is copied and sorted
// internally.
func Summarize(data []float64) Summary {
	if len(data) == 0 {
		return Summary{}
	}
	sorted := append([]float64(nil), data...)
	sort.Float64s(sorted)
	return Summary{
		Count: len(sorted),
		Mean:  stat.Mean(sorted, nil),
		P50:   percentileSorted(sorted, 50),
		P90:   percentileSorted(sorted, 90),
		P99:   percentileSorted(sorted, 99),
		Max:   sorted[len(sorted)-1],
	}
}
