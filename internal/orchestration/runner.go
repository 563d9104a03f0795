// Package orchestration drives the agent function over a dataset with
// bounded concurrency, per-call timeouts, and per-call isolation, then folds
// the collected results into an ExperimentReport. It is the only concurrent
// component of the harness; aggregation and gating are pure transformations
// over its output.
package orchestration

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/spboyer/gauntlet/internal/evaluators"
	"github.com/spboyer/gauntlet/internal/metrics"
	"github.com/spboyer/gauntlet/internal/models"
)

// AgentContext identifies one work unit handed to the agent function.
type AgentContext struct {
	Item     models.DatasetItem
	Index    int
	RunIndex int
}

// AgentFunc is the externally supplied function under evaluation. It may
// block, return an error, or panic; all three are isolated to the one
// (item, run) pair.
type AgentFunc func(ctx context.Context, ac AgentContext) (models.AgentOutput, error)

// Progress is the payload delivered once per completed work unit.
type Progress struct {
	CompletedExecutions int
	TotalExecutions     int
	ItemIndex           int
	RunIndex            int
	TotalItems          int
	TotalRuns           int
}

// ProgressFunc receives progress updates. Calls may interleave across work
// units, but CompletedExecutions is monotonic and the final call carries
// CompletedExecutions == TotalExecutions.
type ProgressFunc func(Progress)

const (
	defaultConcurrency = 4
	defaultTimeout     = 60 * time.Second
)

// Runner executes the agent over every (item, run) pair.
type Runner struct {
	agent    AgentFunc
	registry *evaluators.Registry

	name        string
	concurrency int
	timeout     time.Duration
	runs        int
	evaluators  []models.EvaluatorConfig
	onProgress  ProgressFunc
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithName labels the produced report.
func WithName(name string) RunnerOption {
	return func(r *Runner) { r.name = name }
}

// WithConcurrency caps the number of in-flight work units. Values below 1
// fall back to the default.
func WithConcurrency(n int) RunnerOption {
	return func(r *Runner) {
		if n >= 1 {
			r.concurrency = n
		}
	}
}

// WithTimeout sets the per-call timeout. Non-positive values fall back to the
// default.
func WithTimeout(d time.Duration) RunnerOption {
	return func(r *Runner) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithRuns sets how many times each item is executed, for variance
// measurement. Values below 1 fall back to 1.
func WithRuns(n int) RunnerOption {
	return func(r *Runner) {
		if n >= 1 {
			r.runs = n
		}
	}
}

// WithEvaluators sets the evaluator configurations applied, in order, to
// every successful output.
func WithEvaluators(cfgs ...models.EvaluatorConfig) RunnerOption {
	return func(r *Runner) { r.evaluators = cfgs }
}

// WithProgress registers the progress callback.
func WithProgress(fn ProgressFunc) RunnerOption {
	return func(r *Runner) { r.onProgress = fn }
}

// NewRunner creates a runner for the given agent function. The registry
// resolves evaluator kinds and must be fully populated before Run is called.
func NewRunner(agent AgentFunc, registry *evaluators.Registry, opts ...RunnerOption) *Runner {
	r := &Runner{
		agent:       agent,
		registry:    registry,
		concurrency: defaultConcurrency,
		timeout:     defaultTimeout,
		runs:        1,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Run executes every (item, run) pair and returns the aggregated report.
// Agent errors and timeouts never abort the batch; they surface as recorded
// errors on the affected run. The error return covers only setup problems.
func (r *Runner) Run(ctx context.Context, items []models.DatasetItem) (*models.ExperimentReport, error) {
	if r.agent == nil {
		return nil, fmt.Errorf("runner has no agent function")
	}
	if r.registry == nil {
		return nil, fmt.Errorf("runner has no evaluator registry")
	}

	startedAt := time.Now()
	totalExecutions := len(items) * r.runs

	// Pre-sized, index-addressed storage: each work unit writes exactly one
	// slot, and no slot is read until the pool drains. Final ordering is by
	// (itemIndex, runIndex) regardless of completion order.
	results := make([][]models.SingleRunResult, len(items))
	for i := range results {
		results[i] = make([]models.SingleRunResult, r.runs)
	}

	var completed atomic.Int64

	g := new(errgroup.Group)
	g.SetLimit(r.concurrency)

	for itemIndex := range items {
		for runIndex := 0; runIndex < r.runs; runIndex++ {
			itemIndex, runIndex := itemIndex, runIndex
			g.Go(func() error {
				results[itemIndex][runIndex] = r.executeUnit(ctx, items[itemIndex], itemIndex, runIndex)

				done := int(completed.Add(1))
				if r.onProgress != nil {
					r.onProgress(Progress{
						CompletedExecutions: done,
						TotalExecutions:     totalExecutions,
						ItemIndex:           itemIndex,
						RunIndex:            runIndex,
						TotalItems:          len(items),
						TotalRuns:           r.runs,
					})
				}
				return nil
			})
		}
	}

	// Workers never return errors; Wait is purely a drain.
	_ = g.Wait()

	report := r.buildReport(items, results, startedAt)
	return report, nil
}

// executeUnit runs the agent once and scores the output. Failures are
// terminal for this one (item, run) pair only: no retry, no effect on other
// units.
func (r *Runner) executeUnit(ctx context.Context, item models.DatasetItem, itemIndex, runIndex int) models.SingleRunResult {
	start := time.Now()
	output, err := r.callAgent(ctx, item, itemIndex, runIndex)
	latency := time.Since(start).Milliseconds()

	if err != nil {
		return models.SingleRunResult{
			Output:      models.AgentOutput{Output: "", Metadata: map[string]any{}},
			LatencyMs:   latency,
			Evaluations: map[string]models.EvalResult{},
			Error:       err.Error(),
		}
	}

	// Evaluators run sequentially in declared order; one failing evaluator
	// never blocks the rest.
	evaluations := make(map[string]models.EvalResult, len(r.evaluators))
	ec := &evaluators.Context{
		Item:     item,
		Index:    itemIndex,
		Output:   output,
		Metadata: output.Metadata,
	}
	for _, cfg := range r.evaluators {
		evaluations[cfg.Name] = r.registry.Evaluate(ctx, cfg, ec)
	}

	return models.SingleRunResult{
		Output:      output,
		LatencyMs:   latency,
		Evaluations: evaluations,
	}
}

type agentReturn struct {
	output models.AgentOutput
	err    error
}

// callAgent races one agent invocation against the per-call timeout. The
// timeout is best-effort and non-preemptive: it abandons waiting, but the
// underlying call is not forcibly cancelled and may run to completion
// detached. Callers relying on agent side effects should not assume a timed
// out call did nothing.
func (r *Runner) callAgent(ctx context.Context, item models.DatasetItem, itemIndex, runIndex int) (models.AgentOutput, error) {
	ch := make(chan agentReturn, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				ch <- agentReturn{err: fmt.Errorf("agent panicked: %v", p)}
			}
		}()
		output, err := r.agent(ctx, AgentContext{Item: item, Index: itemIndex, RunIndex: runIndex})
		ch <- agentReturn{output: output, err: err}
	}()

	timer := time.NewTimer(r.timeout)
	defer timer.Stop()

	select {
	case ret := <-ch:
		return ret.output, ret.err
	case <-timer.C:
		return models.AgentOutput{}, fmt.Errorf("Item #%d timed out after %dms", itemIndex, r.timeout.Milliseconds())
	case <-ctx.Done():
		return models.AgentOutput{}, ctx.Err()
	}
}

// buildReport assembles per-item results and the experiment summary from the
// drained results matrix.
func (r *Runner) buildReport(items []models.DatasetItem, results [][]models.SingleRunResult, startedAt time.Time) *models.ExperimentReport {
	itemResults := make([]models.ItemResult, len(items))
	for i := range items {
		itemResults[i] = r.buildItemResult(i, items[i], results[i])
	}

	return &models.ExperimentReport{
		Name:      r.name,
		StartedAt: startedAt,
		Summary:   r.buildSummary(itemResults, time.Since(startedAt)),
		Items:     itemResults,
	}
}

// buildItemResult denormalizes the first run and, for repeated runs,
// aggregates per-evaluator score statistics across them.
func (r *Runner) buildItemResult(index int, item models.DatasetItem, runs []models.SingleRunResult) models.ItemResult {
	first := runs[0]
	result := models.ItemResult{
		Index:       index,
		Item:        item,
		Runs:        runs,
		Output:      first.Output,
		LatencyMs:   first.LatencyMs,
		Evaluations: first.Evaluations,
		Error:       first.Error,
	}

	if r.runs > 1 {
		aggregated := make(map[string]metrics.RunAggregation, len(r.evaluators))
		for _, cfg := range r.evaluators {
			scores := make([]float64, 0, len(runs))
			for _, run := range runs {
				if ev, ok := run.Evaluations[cfg.Name]; ok {
					scores = append(scores, ev.Score)
				}
			}
			aggregated[cfg.Name] = metrics.CalculateRunStats(scores)
		}
		result.Aggregated = aggregated
	}

	return result
}

// buildSummary reduces the item results to global statistics. Per-evaluator
// stats use the first-run score of each item, or the item's cross-run mean
// when runs > 1; items whose agent call failed have no score for an
// evaluator and are excluded from its stats.
func (r *Runner) buildSummary(items []models.ItemResult, elapsed time.Duration) models.ExperimentSummary {
	summary := models.ExperimentSummary{
		TotalItems:      len(items),
		RunsPerItem:     r.runs,
		TotalDurationMs: elapsed.Milliseconds(),
		Scores:          make(map[string]metrics.ScoreStats, len(r.evaluators)),
	}

	for _, cfg := range r.evaluators {
		values := make([]float64, 0, len(items))
		for _, item := range items {
			if r.runs > 1 {
				if agg, ok := item.Aggregated[cfg.Name]; ok && len(agg.Scores) > 0 {
					values = append(values, agg.Mean)
				}
				continue
			}
			if ev, ok := item.Evaluations[cfg.Name]; ok {
				values = append(values, ev.Score)
			}
		}
		summary.Scores[cfg.Name] = metrics.Calculate(values)
	}

	latencies := make([]float64, 0, len(items))
	var tokens, costs []float64
	for _, item := range items {
		latencies = append(latencies, float64(item.LatencyMs))

		for _, run := range item.Runs {
			if v, ok := metadataNumber(run.Output.Metadata, "tokens"); ok {
				summary.TotalTokens += int64(v)
			}
			if v, ok := metadataNumber(run.Output.Metadata, "cost"); ok {
				summary.TotalCostUSD += v
			}
		}
		if v, ok := metadataNumber(item.Output.Metadata, "tokens"); ok {
			tokens = append(tokens, v)
		}
		if v, ok := metadataNumber(item.Output.Metadata, "cost"); ok {
			costs = append(costs, v)
		}
	}

	summary.Latency = metrics.Calculate(latencies)
	summary.AvgLatencyMs = int64(summary.Latency.Avg)
	if len(tokens) > 0 {
		stats := metrics.Calculate(tokens)
		summary.Tokens = &stats
	}
	if len(costs) > 0 {
		stats := metrics.Calculate(costs)
		summary.Cost = &stats
	}

	return summary
}

// metadataNumber extracts a numeric metadata value, tolerating the types JSON
// decoding and Go callers commonly produce.
func metadataNumber(m map[string]any, key string) (float64, bool) {
	if m == nil {
		return 0, false
	}
	switch v := m[key].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}
