package models

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Reserved threshold categories. Any other key in a ThresholdConfig is
// treated as an evaluator name.
const (
	CategoryScore   = "score"
	CategoryLatency = "latency"
	CategoryTokens  = "tokens"
	CategoryCost    = "cost"
)

// ThresholdMetric holds the per-category bounds. All fields are optional and
// independently checked. For quality categories (score and named evaluators)
// every bound is a floor: actual must be >= expected, including Max. For
// cost-style categories (latency, tokens, cost) every bound is a ceiling:
// actual must be <= expected. The Max asymmetry is intentional; do not unify.
type ThresholdMetric struct {
	Avg *float64 `yaml:"avg,omitempty" json:"avg,omitempty"`
	Min *float64 `yaml:"min,omitempty" json:"min,omitempty"`
	Max *float64 `yaml:"max,omitempty" json:"max,omitempty"`
	P50 *float64 `yaml:"p50,omitempty" json:"p50,omitempty"`
	P95 *float64 `yaml:"p95,omitempty" json:"p95,omitempty"`

	// PassRate requires that the fraction of items whose score meets MinScore
	// is at least this value. Only valid on a named evaluator category.
	PassRate *float64 `yaml:"pass_rate,omitempty" json:"pass_rate,omitempty"`
	// MinScore is the per-item score an item must reach to count as passing
	// for the PassRate check. Defaults to 0.5 when unset.
	MinScore *float64 `yaml:"min_score,omitempty" json:"min_score,omitempty"`
}

// Empty reports whether no bound is configured.
func (m ThresholdMetric) Empty() bool {
	return m.Avg == nil && m.Min == nil && m.Max == nil && m.P50 == nil &&
		m.P95 == nil && m.PassRate == nil
}

// ThresholdConfig maps a metric category (score, latency, tokens, cost, or a
// specific evaluator name) to its configured bounds.
type ThresholdConfig map[string]ThresholdMetric

// Categories returns the configured category names in sorted order, so gate
// output is deterministic.
func (c ThresholdConfig) Categories() []string {
	names := make([]string, 0, len(c))
	for name := range c {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate rejects configurations that can never be checked meaningfully.
// This is the only place threshold problems surface as errors; everything
// after a run starts degrades to recorded violations instead.
func (c ThresholdConfig) Validate() error {
	for _, category := range c.Categories() {
		m := c[category]
		if m.Empty() {
			return fmt.Errorf("threshold category %q has no bounds configured", category)
		}
		if m.PassRate != nil {
			if isReservedCategory(category) {
				return fmt.Errorf("pass_rate is only valid on a named evaluator, not %q", category)
			}
			if *m.PassRate < 0 || *m.PassRate > 1 {
				return fmt.Errorf("pass_rate for %q must be in [0,1], got %g", category, *m.PassRate)
			}
		}
		if m.MinScore != nil && (*m.MinScore < 0 || *m.MinScore > 1) {
			return fmt.Errorf("min_score for %q must be in [0,1], got %g", category, *m.MinScore)
		}
	}
	return nil
}

func isReservedCategory(name string) bool {
	switch name {
	case CategoryScore, CategoryLatency, CategoryTokens, CategoryCost:
		return true
	}
	return false
}

// LoadThresholdConfig reads and validates a threshold configuration from a
// YAML file.
func LoadThresholdConfig(path string) (ThresholdConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading threshold config: %w", err)
	}

	var cfg ThresholdConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing threshold config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ThresholdViolation describes one broken rule. A report with zero
// violations is a pass.
type ThresholdViolation struct {
	Category string  `json:"category"`
	Metric   string  `json:"metric"`
	Expected float64 `json:"expected"`
	Actual   float64 `json:"actual"`
	Message  string  `json:"message"`
}

// CIResult is the gate's verdict.
type CIResult struct {
	Passed     bool                 `json:"passed"`
	Violations []ThresholdViolation `json:"violations"`
	Summary    string               `json:"summary"`
}
