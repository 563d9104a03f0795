package models

import (
	"fmt"
	"os"

	"github.com/spboyer/gauntlet/internal/hooks"
	"gopkg.in/yaml.v3"
)

// EvaluatorKind identifies the type of evaluator (e.g. judge, exact_match).
type EvaluatorKind string

const (
	EvaluatorKindJudge      EvaluatorKind = "judge"
	EvaluatorKindFunction   EvaluatorKind = "function"
	EvaluatorKindSimilarity EvaluatorKind = "similarity"
	EvaluatorKindExactMatch EvaluatorKind = "exact_match"
	EvaluatorKindJSONSchema EvaluatorKind = "json_schema"
)

// EvaluatorConfig defines one evaluator: a name (the unique key results are
// indexed by), a kind, and kind-specific parameters.
type EvaluatorConfig struct {
	Name string        `yaml:"name" json:"name"`
	Kind EvaluatorKind `yaml:"kind,omitempty" json:"kind,omitempty"`
	// Prompt is a shortcut for judge evaluators; a config with a prompt and
	// no kind is treated as a judge for backward compatibility.
	Prompt string `yaml:"prompt,omitempty" json:"prompt,omitempty"`
	// Model overrides the judge model for this evaluator only.
	Model string `yaml:"model,omitempty" json:"model,omitempty"`
	// Parameters carries the kind-specific payload, decoded by the evaluator
	// factory for the resolved kind.
	Parameters map[string]any `yaml:"config,omitempty" json:"parameters,omitempty"`
}

// EffectiveKind resolves the kind, defaulting to judge when unset.
func (c EvaluatorConfig) EffectiveKind() EvaluatorKind {
	if c.Kind == "" {
		return EvaluatorKindJudge
	}
	return c.Kind
}

// AgentSpec describes the external program the CLI drives as the agent
// function. The program receives {"item":…,"index":…,"run_index":…} JSON on
// stdin and writes its output to stdout.
type AgentSpec struct {
	Command string   `yaml:"command" json:"command"`
	Args    []string `yaml:"args,omitempty" json:"args,omitempty"`
	Env     []string `yaml:"env,omitempty" json:"env,omitempty"`
}

// ExperimentSpec is the YAML document the CLI runs: a dataset, an agent
// program, evaluators, execution options, and optional gate thresholds.
type ExperimentSpec struct {
	Name        string            `yaml:"name" json:"name"`
	Description string            `yaml:"description,omitempty" json:"description,omitempty"`
	Dataset     string            `yaml:"dataset" json:"dataset"`
	Agent       AgentSpec         `yaml:"agent" json:"agent"`
	Concurrency int               `yaml:"concurrency,omitempty" json:"concurrency,omitempty"`
	TimeoutSec  int               `yaml:"timeout_seconds,omitempty" json:"timeout_sec,omitempty"`
	Runs        int               `yaml:"runs,omitempty" json:"runs,omitempty"`
	Evaluators  []EvaluatorConfig `yaml:"evaluators" json:"evaluators"`
	Thresholds  ThresholdConfig   `yaml:"thresholds,omitempty" json:"thresholds,omitempty"`
	Hooks       hooks.HooksConfig `yaml:"hooks,omitempty" json:"hooks,omitempty"`
}

// LoadExperimentSpec loads a spec from a YAML file, applies defaults, and
// validates it.
func LoadExperimentSpec(path string) (*ExperimentSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var spec ExperimentSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("parsing experiment spec %s: %w", path, err)
	}

	spec.ApplyDefaults()
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return &spec, nil
}

// ApplyDefaults fills in unset execution options.
func (s *ExperimentSpec) ApplyDefaults() {
	if s.Concurrency <= 0 {
		s.Concurrency = 4
	}
	if s.TimeoutSec <= 0 {
		s.TimeoutSec = 60
	}
	if s.Runs <= 0 {
		s.Runs = 1
	}
}

// Validate checks that the spec is runnable.
func (s *ExperimentSpec) Validate() error {
	if s.Dataset == "" {
		return fmt.Errorf("spec must name a dataset file")
	}
	if s.Agent.Command == "" {
		return fmt.Errorf("spec must configure an agent command")
	}
	if len(s.Evaluators) == 0 {
		return fmt.Errorf("spec must configure at least one evaluator")
	}

	seen := make(map[string]bool, len(s.Evaluators))
	for _, ev := range s.Evaluators {
		if ev.Name == "" {
			return fmt.Errorf("every evaluator must have a name")
		}
		if seen[ev.Name] {
			return fmt.Errorf("duplicate evaluator name %q", ev.Name)
		}
		seen[ev.Name] = true
	}

	if s.Thresholds != nil {
		if err := s.Thresholds.Validate(); err != nil {
			return fmt.Errorf("thresholds: %w", err)
		}
	}
	return nil
}
