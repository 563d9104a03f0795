package models

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func validSpec() *ExperimentSpec {
	return &ExperimentSpec{
		Name:    "smoke",
		Dataset: "data.jsonl",
		Agent:   AgentSpec{Command: "./agent"},
		Evaluators: []EvaluatorConfig{
			{Name: "match", Kind: EvaluatorKindExactMatch},
		},
	}
}

func TestEvaluatorConfig_EffectiveKind(t *testing.T) {
	require.Equal(t, EvaluatorKindJudge, EvaluatorConfig{Name: "q", Prompt: "rate it"}.EffectiveKind())
	require.Equal(t, EvaluatorKindSimilarity, EvaluatorConfig{Name: "s", Kind: EvaluatorKindSimilarity}.EffectiveKind())
}

func TestExperimentSpec_ApplyDefaults(t *testing.T) {
	spec := validSpec()
	spec.ApplyDefaults()
	require.Equal(t, 4, spec.Concurrency)
	require.Equal(t, 60, spec.TimeoutSec)
	require.Equal(t, 1, spec.Runs)

	spec = validSpec()
	spec.Concurrency = 8
	spec.TimeoutSec = 5
	spec.Runs = 3
	spec.ApplyDefaults()
	require.Equal(t, 8, spec.Concurrency)
	require.Equal(t, 5, spec.TimeoutSec)
	require.Equal(t, 3, spec.Runs)
}

func TestExperimentSpec_Validate(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		require.NoError(t, validSpec().Validate())
	})

	t.Run("missing dataset", func(t *testing.T) {
		spec := validSpec()
		spec.Dataset = ""
		require.Error(t, spec.Validate())
	})

	t.Run("missing agent command", func(t *testing.T) {
		spec := validSpec()
		spec.Agent.Command = ""
		require.Error(t, spec.Validate())
	})

	t.Run("no evaluators", func(t *testing.T) {
		spec := validSpec()
		spec.Evaluators = nil
		require.Error(t, spec.Validate())
	})

	t.Run("unnamed evaluator", func(t *testing.T) {
		spec := validSpec()
		spec.Evaluators = append(spec.Evaluators, EvaluatorConfig{Kind: EvaluatorKindSimilarity})
		require.Error(t, spec.Validate())
	})

	t.Run("duplicate evaluator names", func(t *testing.T) {
		spec := validSpec()
		spec.Evaluators = append(spec.Evaluators, EvaluatorConfig{Name: "match", Kind: EvaluatorKindSimilarity})
		err := spec.Validate()
		require.Error(t, err)
		require.Contains(t, err.Error(), "duplicate evaluator name")
	})

	t.Run("bad thresholds", func(t *testing.T) {
		spec := validSpec()
		spec.Thresholds = ThresholdConfig{"score": {}}
		require.Error(t, spec.Validate())
	})
}

func TestLoadExperimentSpec(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "experiment.yaml")
	content := `
name: qa-bench
dataset: data/qa.jsonl
agent:
  command: ./agent.sh
  args: ["--fast"]
concurrency: 8
timeout_seconds: 30
runs: 3
evaluators:
  - name: exact
    kind: exact_match
  - name: quality
    prompt: "Rate the answer from 0 to 1."
thresholds:
  exact:
    avg: 0.8
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	spec, err := LoadExperimentSpec(path)
	require.NoError(t, err)
	require.Equal(t, "qa-bench", spec.Name)
	require.Equal(t, "data/qa.jsonl", spec.Dataset)
	require.Equal(t, "./agent.sh", spec.Agent.Command)
	require.Equal(t, []string{"--fast"}, spec.Agent.Args)
	require.Equal(t, 8, spec.Concurrency)
	require.Equal(t, 30, spec.TimeoutSec)
	require.Equal(t, 3, spec.Runs)
	require.Len(t, spec.Evaluators, 2)
	require.Equal(t, EvaluatorKindJudge, spec.Evaluators[1].EffectiveKind())
	require.Equal(t, 0.8, *spec.Thresholds["exact"].Avg)
}

func TestLoadExperimentSpec_Missing(t *testing.T) {
	_, err := LoadExperimentSpec("/does/not/exist.yaml")
	require.Error(t, err)
}
