// Package models defines the data shapes shared across the harness: dataset
// items, agent outputs, per-run and per-item results, the experiment report,
// and the threshold configuration consumed by the CI gate.
package models

import (
	"time"

	"github.com/spboyer/gauntlet/internal/metrics"
)

// DatasetItem is one labeled input record to be run through the agent. It is
// an open-ended field-to-value mapping; identity is the item's index within
// the dataset, which is stable for the lifetime of a run.
type DatasetItem map[string]any

// Field returns the named field as a string, or "" when absent or not a
// string. Convenience for evaluators that compare against a single field.
func (d DatasetItem) Field(field string) string {
	v, ok := d[field]
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

// AgentOutput is what the agent function produces for one (item, run) pair.
type AgentOutput struct {
	// Output is the agent's textual output.
	Output string `json:"output"`
	// Data optionally carries a structured output value alongside (or instead
	// of) the textual form.
	Data any `json:"data,omitempty"`
	// Metadata carries agent-reported extras. The keys "tokens" and "cost"
	// are recognized by the summary builder when numeric.
	Metadata map[string]any `json:"metadata,omitempty"`
}

// EvalResult is one evaluator's verdict for one agent output. Score must be
// in [0,1]; a score outside that range is a contract violation and is
// converted to a zero-score failure at the dispatch boundary.
type EvalResult struct {
	Score  float64 `json:"score"`
	Reason string  `json:"reason,omitempty"`
}

// SingleRunResult is one execution of the agent for one item. Exactly one of
// {Evaluations populated} or {Error set, Evaluations empty} holds when the
// agent itself fails; evaluator failures instead appear as zero-score
// EvalResults with a diagnostic reason.
type SingleRunResult struct {
	Output      AgentOutput           `json:"output"`
	LatencyMs   int64                 `json:"latency_ms"`
	Evaluations map[string]EvalResult `json:"evaluations"`
	Error       string                `json:"error,omitempty"`
}

// ItemResult holds every run of one dataset item. The top-level Output,
// LatencyMs, Evaluations and Error fields are always the first run's values,
// for single-run-compatible access. Created when the item's runs complete and
// immutable thereafter.
type ItemResult struct {
	Index int               `json:"index"`
	Item  DatasetItem       `json:"item,omitempty"`
	Runs  []SingleRunResult `json:"runs"`

	Output      AgentOutput           `json:"output"`
	LatencyMs   int64                 `json:"latency_ms"`
	Evaluations map[string]EvalResult `json:"evaluations"`
	Error       string                `json:"error,omitempty"`

	// Aggregated maps evaluator name to cross-run statistics. Populated only
	// when more than one run was configured.
	Aggregated map[string]metrics.RunAggregation `json:"aggregated,omitempty"`
}

// ExperimentSummary holds the aggregate view of a whole run.
//
// When runs > 1, Scores is built from each item's per-run mean
// (RunAggregation.Mean), not its first run; the raw first-run values stay on
// each ItemResult so consumers can recompute the alternative.
type ExperimentSummary struct {
	TotalItems      int   `json:"total_items"`
	RunsPerItem     int   `json:"runs_per_item"`
	TotalDurationMs int64 `json:"total_duration_ms"`
	AvgLatencyMs    int64 `json:"avg_latency_ms"`

	TotalTokens  int64   `json:"total_tokens,omitempty"`
	TotalCostUSD float64 `json:"total_cost_usd,omitempty"`

	// Scores maps evaluator name to its stats across items.
	Scores map[string]metrics.ScoreStats `json:"scores"`
	// Latency holds stats over per-item first-run latencies, in milliseconds.
	Latency metrics.ScoreStats `json:"latency"`
	// Tokens and Cost hold per-item stats when the agent reported them.
	Tokens *metrics.ScoreStats `json:"tokens,omitempty"`
	Cost   *metrics.ScoreStats `json:"cost,omitempty"`
}

// ExperimentReport is the final aggregate object consumed by reporters,
// storage and CI gating.
type ExperimentReport struct {
	Name      string            `json:"name,omitempty"`
	StartedAt time.Time         `json:"started_at"`
	Summary   ExperimentSummary `json:"summary"`
	Items     []ItemResult      `json:"items"`
}

// EvaluatorNames returns the evaluator names present in the summary, useful
// for stable iteration by reporters.
func (r *ExperimentReport) EvaluatorNames() []string {
	names := make([]string, 0, len(r.Summary.Scores))
	for name := range r.Summary.Scores {
		names = append(names, name)
	}
	return names
}
