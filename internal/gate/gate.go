// Package gate turns an experiment report plus a declarative threshold
// configuration into a pass/fail verdict with itemized violations. It is a
// pure transformation: every configured rule is checked, nothing
// short-circuits, and nothing here mutates the report.
package gate

import (
	"fmt"

	"github.com/spboyer/gauntlet/internal/metrics"
	"github.com/spboyer/gauntlet/internal/models"
)

// defaultMinScore is the per-item score an item must reach to count as
// passing for pass-rate checks when min_score is not configured.
const defaultMinScore = 0.5

// Validate checks every configured threshold against the report and returns
// the collected verdict. A report with zero violations passes.
func Validate(report *models.ExperimentReport, cfg models.ThresholdConfig) models.CIResult {
	v := &validator{report: report}

	for _, category := range cfg.Categories() {
		metric := cfg[category]
		switch category {
		case models.CategoryScore:
			v.checkQuality(category, metric, overallScoreStats(report.Summary.Scores))
		case models.CategoryLatency:
			v.checkCost(category, metric, &report.Summary.Latency)
		case models.CategoryTokens:
			v.checkCost(category, metric, report.Summary.Tokens)
		case models.CategoryCost:
			v.checkCost(category, metric, report.Summary.Cost)
		default:
			v.checkEvaluator(category, metric)
		}
	}

	passed := len(v.violations) == 0
	return models.CIResult{
		Passed:     passed,
		Violations: v.violations,
		Summary:    summarize(passed, v.checked, len(v.violations)),
	}
}

type validator struct {
	report     *models.ExperimentReport
	checked    int
	violations []models.ThresholdViolation
}

// checkQuality applies floor semantics: actual must be at least the
// configured bound for every field, including max. Treating max as a floor on
// quality categories is intentional; ceilings belong to cost-style
// categories.
func (v *validator) checkQuality(category string, m models.ThresholdMetric, stats metrics.ScoreStats) {
	v.requireAtLeast(category, "avg", m.Avg, stats.Avg)
	v.requireAtLeast(category, "min", m.Min, stats.Min)
	v.requireAtLeast(category, "max", m.Max, stats.Max)
	v.requireAtLeast(category, "p50", m.P50, stats.P50)
	v.requireAtLeast(category, "p95", m.P95, stats.P95)
}

// checkCost applies ceiling semantics: actual must not exceed the configured
// bound. A nil stats pointer means the agent never reported this metric, so
// any configured bound is unverifiable and recorded as an existence
// violation rather than silently skipped.
func (v *validator) checkCost(category string, m models.ThresholdMetric, stats *metrics.ScoreStats) {
	if stats == nil {
		v.checked++
		v.violations = append(v.violations, models.ThresholdViolation{
			Category: category,
			Metric:   "existence",
			Expected: 1,
			Actual:   0,
			Message:  fmt.Sprintf("%s thresholds configured but no %s data was recorded", category, category),
		})
		return
	}

	v.requireAtMost(category, "avg", m.Avg, stats.Avg)
	v.requireAtMost(category, "min", m.Min, stats.Min)
	v.requireAtMost(category, "max", m.Max, stats.Max)
	v.requireAtMost(category, "p50", m.P50, stats.P50)
	v.requireAtMost(category, "p95", m.P95, stats.P95)
}

// checkEvaluator applies quality semantics to one named evaluator's stats
// plus the optional pass-rate rule.
func (v *validator) checkEvaluator(name string, m models.ThresholdMetric) {
	stats, ok := v.report.Summary.Scores[name]
	if !ok {
		v.checked++
		v.violations = append(v.violations, models.ThresholdViolation{
			Category: name,
			Metric:   "existence",
			Expected: 1,
			Actual:   0,
			Message:  fmt.Sprintf("evaluator %q not found in results", name),
		})
		return
	}

	v.checkQuality(name, m, stats)

	if m.PassRate != nil {
		minScore := defaultMinScore
		if m.MinScore != nil {
			minScore = *m.MinScore
		}
		actual := passRate(v.report.Items, name, minScore)
		v.checked++
		if actual < *m.PassRate {
			v.violations = append(v.violations, models.ThresholdViolation{
				Category: name,
				Metric:   "passRate",
				Expected: *m.PassRate,
				Actual:   actual,
				Message: fmt.Sprintf("%s pass rate %.2f below threshold %.2f (items scoring >= %.2f)",
					name, actual, *m.PassRate, minScore),
			})
		}
	}
}

// passRate counts items whose first-run score for the evaluator meets
// minScore, over the full item count. Errored items have no evaluation entry
// and count as failing.
func passRate(items []models.ItemResult, evaluator string, minScore float64) float64 {
	if len(items) == 0 {
		return 0
	}
	passing := 0
	for _, item := range items {
		if ev, ok := item.Evaluations[evaluator]; ok && ev.Score >= minScore {
			passing++
		}
	}
	return float64(passing) / float64(len(items))
}

func (v *validator) requireAtLeast(category, metric string, expected *float64, actual float64) {
	if expected == nil {
		return
	}
	v.checked++
	if actual < *expected {
		v.violations = append(v.violations, models.ThresholdViolation{
			Category: category,
			Metric:   metric,
			Expected: *expected,
			Actual:   actual,
			Message:  fmt.Sprintf("%s %s %.4g below threshold %.4g", category, metric, actual, *expected),
		})
	}
}

func (v *validator) requireAtMost(category, metric string, expected *float64, actual float64) {
	if expected == nil {
		return
	}
	v.checked++
	if actual > *expected {
		v.violations = append(v.violations, models.ThresholdViolation{
			Category: category,
			Metric:   metric,
			Expected: *expected,
			Actual:   actual,
			Message:  fmt.Sprintf("%s %s %.4g exceeds limit %.4g", category, metric, actual, *expected),
		})
	}
}

// overallScoreStats averages each statistic field across every evaluator's
// summary stats, giving the "score" category a single combined view.
func overallScoreStats(scores map[string]metrics.ScoreStats) metrics.ScoreStats {
	n := len(scores)
	if n == 0 {
		return metrics.ScoreStats{}
	}

	var combined metrics.ScoreStats
	for _, s := range scores {
		combined.Avg += s.Avg
		combined.Min += s.Min
		combined.Max += s.Max
		combined.P50 += s.P50
		combined.P95 += s.P95
		combined.P99 += s.P99
	}

	f := float64(n)
	combined.Avg /= f
	combined.Min /= f
	combined.Max /= f
	combined.P50 /= f
	combined.P95 /= f
	combined.P99 /= f
	return combined
}

func summarize(passed bool, checked, violations int) string {
	if passed {
		return fmt.Sprintf("all %d threshold checks passed", checked)
	}
	return fmt.Sprintf("%d of %d threshold checks failed", violations, checked)
}
