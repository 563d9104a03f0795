package gate

import (
	"testing"

	"github.com/spboyer/gauntlet/internal/metrics"
	"github.com/spboyer/gauntlet/internal/models"
	"github.com/stretchr/testify/require"
)

func ptr(v float64) *float64 { return &v }

func uniformStats(v float64) metrics.ScoreStats {
	return metrics.ScoreStats{Avg: v, Min: v, Max: v, P50: v, P95: v, P99: v}
}

func reportWithScores(scores map[string]metrics.ScoreStats) *models.ExperimentReport {
	return &models.ExperimentReport{
		Summary: models.ExperimentSummary{
			TotalItems: 4,
			Scores:     scores,
			Latency:    uniformStats(200),
		},
	}
}

func TestValidate_AllPass(t *testing.T) {
	report := reportWithScores(map[string]metrics.ScoreStats{
		"accuracy": uniformStats(0.9),
	})

	result := Validate(report, models.ThresholdConfig{
		"accuracy": {Avg: ptr(0.8), Min: ptr(0.5)},
		"latency":  {P95: ptr(500)},
	})

	require.True(t, result.Passed)
	require.Empty(t, result.Violations)
	require.Equal(t, "all 3 threshold checks passed", result.Summary)
}

func TestValidate_AvgBelowThreshold(t *testing.T) {
	report := reportWithScores(map[string]metrics.ScoreStats{
		"accuracy": uniformStats(0.75),
	})

	result := Validate(report, models.ThresholdConfig{
		"accuracy": {Avg: ptr(0.8)},
	})

	require.False(t, result.Passed)
	require.Len(t, result.Violations, 1)
	v := result.Violations[0]
	require.Equal(t, "accuracy", v.Category)
	require.Equal(t, "avg", v.Metric)
	require.Equal(t, 0.8, v.Expected)
	require.Equal(t, 0.75, v.Actual)
	require.Contains(t, v.Message, "below threshold")
}

func TestValidate_BoundaryPasses(t *testing.T) {
	report := reportWithScores(map[string]metrics.ScoreStats{
		"accuracy": uniformStats(0.8),
	})

	result := Validate(report, models.ThresholdConfig{
		"accuracy": {Avg: ptr(0.8)},
	})
	require.True(t, result.Passed, "exactly meeting the bound is a pass")
}

func TestValidate_MaxSemanticsAsymmetric(t *testing.T) {
	t.Run("quality max is a floor", func(t *testing.T) {
		report := reportWithScores(map[string]metrics.ScoreStats{
			"accuracy": uniformStats(0.7),
		})
		// Best item must reach at least 0.9.
		result := Validate(report, models.ThresholdConfig{
			"accuracy": {Max: ptr(0.9)},
		})
		require.False(t, result.Passed)
		require.Equal(t, "max", result.Violations[0].Metric)
		require.Contains(t, result.Violations[0].Message, "below threshold")
	})

	t.Run("latency max is a ceiling", func(t *testing.T) {
		report := reportWithScores(nil)
		report.Summary.Latency = metrics.ScoreStats{Avg: 200, Min: 50, Max: 900, P50: 180, P95: 600}
		result := Validate(report, models.ThresholdConfig{
			"latency": {Max: ptr(500)},
		})
		require.False(t, result.Passed)
		require.Equal(t, "max", result.Violations[0].Metric)
		require.Contains(t, result.Violations[0].Message, "exceeds limit")
	})
}

func TestValidate_ScoreCategoryCombines(t *testing.T) {
	report := reportWithScores(map[string]metrics.ScoreStats{
		"a": uniformStats(0.6),
		"b": uniformStats(1.0),
	})

	// Combined avg is 0.8.
	result := Validate(report, models.ThresholdConfig{
		"score": {Avg: ptr(0.8)},
	})
	require.True(t, result.Passed)

	result = Validate(report, models.ThresholdConfig{
		"score": {Avg: ptr(0.81)},
	})
	require.False(t, result.Passed)
}

func TestValidate_MissingEvaluator(t *testing.T) {
	report := reportWithScores(map[string]metrics.ScoreStats{
		"accuracy": uniformStats(0.9),
	})

	result := Validate(report, models.ThresholdConfig{
		"helpfulness": {Avg: ptr(0.5)},
	})

	require.False(t, result.Passed)
	require.Len(t, result.Violations, 1)
	require.Equal(t, "existence", result.Violations[0].Metric)
	require.Contains(t, result.Violations[0].Message, `evaluator "helpfulness" not found`)
}

func TestValidate_MissingCostData(t *testing.T) {
	report := reportWithScores(nil)
	// No tokens or cost recorded.
	result := Validate(report, models.ThresholdConfig{
		"tokens": {Avg: ptr(1000)},
		"cost":   {Max: ptr(1.0)},
	})

	require.False(t, result.Passed)
	require.Len(t, result.Violations, 2)
	for _, v := range result.Violations {
		require.Equal(t, "existence", v.Metric)
		require.Contains(t, v.Message, "no "+v.Category+" data was recorded")
	}
}

func TestValidate_PassRate(t *testing.T) {
	items := []models.ItemResult{
		{Index: 0, Evaluations: map[string]models.EvalResult{"accuracy": {Score: 0.9}}},
		{Index: 1, Evaluations: map[string]models.EvalResult{"accuracy": {Score: 0.6}}},
		{Index: 2, Evaluations: map[string]models.EvalResult{"accuracy": {Score: 0.2}}},
		{Index: 3, Error: "Agent crashed", Evaluations: map[string]models.EvalResult{}},
	}
	report := &models.ExperimentReport{
		Summary: models.ExperimentSummary{
			TotalItems: 4,
			Scores:     map[string]metrics.ScoreStats{"accuracy": uniformStats(0.57)},
		},
		Items: items,
	}

	t.Run("default min_score counts errored items as failing", func(t *testing.T) {
		// 2 of 4 items score >= 0.5.
		result := Validate(report, models.ThresholdConfig{
			"accuracy": {PassRate: ptr(0.5)},
		})
		require.True(t, result.Passed)

		result = Validate(report, models.ThresholdConfig{
			"accuracy": {PassRate: ptr(0.75)},
		})
		require.False(t, result.Passed)
		require.Equal(t, "passRate", result.Violations[0].Metric)
		require.Equal(t, 0.5, result.Violations[0].Actual)
	})

	t.Run("custom min_score", func(t *testing.T) {
		// Only 1 of 4 items scores >= 0.8.
		result := Validate(report, models.ThresholdConfig{
			"accuracy": {PassRate: ptr(0.5), MinScore: ptr(0.8)},
		})
		require.False(t, result.Passed)
		require.Equal(t, 0.25, result.Violations[0].Actual)
	})
}

func TestValidate_MultipleViolationsCollected(t *testing.T) {
	report := reportWithScores(map[string]metrics.ScoreStats{
		"accuracy": uniformStats(0.4),
	})
	report.Summary.Latency = uniformStats(2000)

	result := Validate(report, models.ThresholdConfig{
		"accuracy": {Avg: ptr(0.8), P50: ptr(0.7)},
		"latency":  {Avg: ptr(1000), P95: ptr(1500)},
	})

	require.False(t, result.Passed)
	require.Len(t, result.Violations, 4, "checking must not short-circuit")
	require.Equal(t, "4 of 4 threshold checks failed", result.Summary)
}

func TestValidate_EmptyConfigPasses(t *testing.T) {
	report := reportWithScores(nil)
	result := Validate(report, models.ThresholdConfig{})
	require.True(t, result.Passed)
	require.Empty(t, result.Violations)
}
