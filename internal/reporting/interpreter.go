package reporting

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spboyer/gauntlet/internal/models"
)

// InterpretScore returns a plain-language label for a numeric score (0–1).
func InterpretScore(score float64) string {
	pct := score * 100
	switch {
	case pct > 90:
		return "Excellent (>90%)"
	case pct >= 70:
		return "Good (70-90%)"
	case pct >= 50:
		return "Needs Work (50-70%)"
	default:
		return "Poor (<50%)"
	}
}

// InterpretVariance explains a cross-run standard deviation for one item.
func InterpretVariance(stddev float64) string {
	switch {
	case stddev == 0:
		return "Results are identical across runs."
	case stddev < 0.1:
		return fmt.Sprintf("Results are stable across runs (σ=%.3f).", stddev)
	default:
		return fmt.Sprintf("Results vary across runs (σ=%.3f). Consider increasing runs or investigating non-determinism.", stddev)
	}
}

// FormatSummaryReport produces a plain-language report from an
// ExperimentReport.
func FormatSummaryReport(report *models.ExperimentReport) string {
	var b strings.Builder

	s := report.Summary
	duration := time.Duration(s.TotalDurationMs) * time.Millisecond

	b.WriteString("=== Interpretation ===\n\n")

	names := make([]string, 0, len(s.Scores))
	for name := range s.Scores {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		st := s.Scores[name]
		b.WriteString(fmt.Sprintf("%s: %.2f (%s)\n", name, st.Avg, InterpretScore(st.Avg)))
	}

	b.WriteString(fmt.Sprintf("Duration:     %v\n", duration))
	b.WriteString(fmt.Sprintf("Avg latency:  %dms\n", s.AvgLatencyMs))

	errored := 0
	for _, item := range report.Items {
		if item.Error != "" {
			errored++
		}
	}
	b.WriteString(fmt.Sprintf("Items:        %d total, %d errored\n", s.TotalItems, errored))

	if s.RunsPerItem > 1 && len(report.Items) > 0 {
		b.WriteString("\nPer-Item Variance:\n")
		for _, item := range report.Items {
			if item.Error != "" {
				b.WriteString(fmt.Sprintf("  ✗ item %d: %s\n", item.Index, item.Error))
				continue
			}
			for _, name := range names {
				agg, ok := item.Aggregated[name]
				if !ok {
					continue
				}
				b.WriteString(fmt.Sprintf("  - item %d / %s: mean %.2f: %s\n",
					item.Index, name, agg.Mean, InterpretVariance(agg.StdDev)))
			}
		}
	}

	return b.String()
}
