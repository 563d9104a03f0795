// Package metrics provides the pure numeric reductions used to summarize
// evaluation scores and latencies. Everything here operates on
// already-collected data; nothing is concurrent or stateful.
package metrics

import (
	"math"
	"sort"
)

// ScoreStats holds descriptive statistics over a set of values.
type ScoreStats struct {
	Avg float64 `json:"avg"`
	Min float64 `json:"min"`
	Max float64 `json:"max"`
	P50 float64 `json:"p50"`
	P95 float64 `json:"p95"`
	P99 float64 `json:"p99"`
}

// RunAggregation holds per-evaluator statistics over the repeated runs of a
// single item. Scores is a copy of the raw per-run scores, kept so downstream
// consumers can audit or recompute.
type RunAggregation struct {
	Mean   float64   `json:"mean"`
	StdDev float64   `json:"std_dev"`
	Min    float64   `json:"min"`
	Max    float64   `json:"max"`
	P50    float64   `json:"p50"`
	P95    float64   `json:"p95"`
	Scores []float64 `json:"scores"`

	// BootstrapCI is populated when at least two runs contributed scores.
	BootstrapCI *ConfidenceInterval `json:"bootstrap_ci,omitempty"`
}

// Calculate reduces values to summary statistics. Empty input yields
// all-zero stats rather than an error.
func Calculate(values []float64) ScoreStats {
	if len(values) == 0 {
		return ScoreStats{}
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	sum := 0.0
	for _, v := range values {
		sum += v
	}

	return ScoreStats{
		Avg: sum / float64(len(values)),
		Min: sorted[0],
		Max: sorted[len(sorted)-1],
		P50: percentileSorted(sorted, 50),
		P95: percentileSorted(sorted, 95),
		P99: percentileSorted(sorted, 99),
	}
}

// Percentile returns the p-th percentile of values using linear interpolation
// at the continuous rank (p/100)*(n-1). p <= 0 returns the minimum and
// p >= 100 returns the maximum. Two values [0.5, 0.9] yield a p50 of 0.7,
// not the nearest-rank 0.5.
func Percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	return percentileSorted(sorted, p)
}

// percentileSorted assumes sorted is non-empty and ascending.
func percentileSorted(sorted []float64, p float64) float64 {
	n := len(sorted)
	if p <= 0 {
		return sorted[0]
	}
	if p >= 100 {
		return sorted[n-1]
	}

	rank := p / 100 * float64(n-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}

// Mean computes the arithmetic mean. Returns 0 for empty input.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// StdDev computes the population standard deviation (divide by n, not n-1).
// Returns 0 for fewer than two samples.
func StdDev(values []float64) float64 {
	return StdDevWithMean(values, Mean(values))
}

// StdDevWithMean is StdDev with a precomputed mean, avoiding a redundant pass
// when the caller already has it.
func StdDevWithMean(values []float64, mean float64) float64 {
	if len(values) < 2 {
		return 0
	}
	sumSq := 0.0
	for _, v := range values {
		d := v - mean
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(values)))
}

// CalculateRunStats aggregates the per-run scores of one item for one
// evaluator. The returned Scores slice is a defensive copy and never aliases
// the caller's slice.
func CalculateRunStats(scores []float64) RunAggregation {
	stats := Calculate(scores)
	mean := stats.Avg

	cp := make([]float64, len(scores))
	copy(cp, scores)

	agg := RunAggregation{
		Mean:   mean,
		StdDev: StdDevWithMean(scores, mean),
		Min:    stats.Min,
		Max:    stats.Max,
		P50:    stats.P50,
		P95:    stats.P95,
		Scores: cp,
	}

	if len(scores) >= 2 {
		ci := BootstrapCI(scores, 0.95)
		agg.BootstrapCI = &ci
	}

	return agg
}
